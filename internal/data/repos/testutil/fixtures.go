package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/domain/learning"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, id, title string) *learning.Course {
	tb.Helper()
	c := &learning.Course{
		ID:             id,
		InstructorID:   "instructor-1",
		InstructorName: "Ada Lovelace",
		Title:          title,
		Level:          "beginner",
		Category:       "programming",
		LectureCount:   12,
		PassingScore:   75,
		IsPublished:    true,
		HasFinalQuiz:   true,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, courseID string, completed, total int) *learning.CourseProgress {
	tb.Helper()
	p := &learning.CourseProgress{
		ID:              uuid.New(),
		UserID:          userID,
		CourseID:        courseID,
		CompletedVideos: completed,
		TotalVideos:     total,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
	return p
}

// SeedConversation inserts an active conversation whose last interaction is at.
func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string, role chatbot.Role, at time.Time) *chatbot.Conversation {
	tb.Helper()
	c := &chatbot.Conversation{
		ID:              uuid.New(),
		SessionToken:    uuid.NewString(),
		UserID:          userID,
		UserRole:        role,
		Context:         datatypes.JSON([]byte("{}")),
		IsActive:        true,
		LastInteraction: at,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}
