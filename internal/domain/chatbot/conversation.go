package chatbot

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// OrDefault maps unknown or empty roles to student.
func (r Role) OrDefault() Role {
	if r.Valid() {
		return r
	}
	return RoleStudent
}

// Conversation is one token-identified chatbot session between a user and the assistant.
type Conversation struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionToken string    `gorm:"column:session_token;type:text;not null;uniqueIndex" json:"sessionId"`
	UserID       string    `gorm:"column:user_id;type:text;not null;index:idx_chatbot_conversation_user_recent,priority:1" json:"userId"`
	UserRole     Role      `gorm:"column:user_role;type:text;not null" json:"userRole"`

	Context datatypes.JSON `gorm:"column:context;type:jsonb;not null;default:'{}'" json:"context"`

	IsActive        bool      `gorm:"column:is_active;not null;default:true;index:idx_chatbot_conversation_active_recent,priority:1;index:idx_chatbot_conversation_user_recent,priority:2" json:"isActive"`
	LastInteraction time.Time `gorm:"column:last_interaction;not null;index:idx_chatbot_conversation_active_recent,priority:2;index:idx_chatbot_conversation_user_recent,priority:3" json:"lastInteraction"`

	// NextSeq is advanced under a row lock so appends for one token are applied in order.
	NextSeq int64 `gorm:"column:next_seq;not null;default:0" json:"-"`

	Messages []*Message `gorm:"foreignKey:ConversationID;references:ID" json:"messages,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "chatbot_conversation" }

// ContextMap decodes the stored context. A corrupt or empty column yields an empty map.
func (c *Conversation) ContextMap() map[string]any {
	out := map[string]any{}
	if c == nil || len(c.Context) == 0 {
		return out
	}
	if err := json.Unmarshal(c.Context, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

func EncodeContext(m map[string]any) (datatypes.JSON, error) {
	if m == nil {
		m = map[string]any{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
