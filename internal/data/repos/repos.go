package repos

import (
	"github.com/yungbote/learnlab-assistant/internal/data/repos/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/data/repos/learning"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
	"gorm.io/gorm"
)

type ConversationRepo = chatbot.ConversationRepo
type MessageRepo = chatbot.MessageRepo

type CourseRepo = learning.CourseRepo
type CourseProgressRepo = learning.CourseProgressRepo

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return chatbot.NewConversationRepo(db, baseLog)
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return chatbot.NewMessageRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}

func NewCourseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CourseProgressRepo {
	return learning.NewCourseProgressRepo(db, baseLog)
}
