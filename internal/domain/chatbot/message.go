package chatbot

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is one entry of a conversation's append-only history.
type Message struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"-"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:idx_chatbot_message_conversation_seq,priority:1" json:"-"`
	Seq            int64       `gorm:"column:seq;not null;uniqueIndex:idx_chatbot_message_conversation_seq,priority:2" json:"-"`
	Role           MessageRole `gorm:"column:role;type:text;not null;index" json:"role"`
	Content        string      `gorm:"column:content;type:text;not null" json:"content"`
	Timestamp      time.Time   `gorm:"column:sent_at;not null;index" json:"timestamp"`
}

func (Message) TableName() string { return "chatbot_message" }
