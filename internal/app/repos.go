package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/learnlab-assistant/internal/data/repos"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type Repos struct {
	Conversation   repos.ConversationRepo
	Message        repos.MessageRepo
	Course         repos.CourseRepo
	CourseProgress repos.CourseProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Conversation:   repos.NewConversationRepo(db, log),
		Message:        repos.NewMessageRepo(db, log),
		Course:         repos.NewCourseRepo(db, log),
		CourseProgress: repos.NewCourseProgressRepo(db, log),
	}
}
