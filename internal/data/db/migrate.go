package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/domain/learning"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Chatbot
		&chatbot.Conversation{},
		&chatbot.Message{},

		// Learning read models
		&learning.Course{},
		&learning.CourseProgress{},
	)
}

// EnsureChatbotIndexes adds the Postgres-only partial index used by the idle
// reattach lookup and the expiry sweep. Other dialects rely on the composite
// indexes declared on the models.
func EnsureChatbotIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chatbot_conversation_active_only
		ON chatbot_conversation(user_id, last_interaction DESC)
		WHERE is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_chatbot_conversation_active_only: %w", err)
	}
	return nil
}
