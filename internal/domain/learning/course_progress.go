package learning

import (
	"time"

	"github.com/google/uuid"
)

// CourseProgress tracks one user's advancement through one course.
type CourseProgress struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   string    `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_course_progress_user_course,priority:1" json:"userId"`
	CourseID string    `gorm:"column:course_id;type:text;not null;uniqueIndex:idx_course_progress_user_course,priority:2;index" json:"courseId"`

	CompletedVideos int        `gorm:"column:completed_videos;not null;default:0" json:"completedVideos"`
	TotalVideos     int        `gorm:"column:total_videos;not null;default:0" json:"totalVideos"`
	CurrentVideoID  string     `gorm:"column:current_video_id" json:"currentVideoId,omitempty"`
	QuizAttempts    int        `gorm:"column:quiz_attempts;not null;default:0" json:"quizAttempts"`
	BestQuizScore   *float64   `gorm:"column:best_quiz_score" json:"bestQuizScore,omitempty"`
	QuizPassed      bool       `gorm:"column:quiz_passed;not null;default:false" json:"quizPassed"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (CourseProgress) TableName() string { return "course_progress" }

// PercentComplete is the share of videos completed, 0..100.
func (p *CourseProgress) PercentComplete() int {
	if p == nil || p.TotalVideos <= 0 {
		return 0
	}
	pct := p.CompletedVideos * 100 / p.TotalVideos
	if pct > 100 {
		return 100
	}
	return pct
}

// ProgressSnapshot is the subset of progress attached to chatbot context.
type ProgressSnapshot struct {
	CourseID        string   `json:"courseId"`
	CompletedVideos int      `json:"completedVideos"`
	TotalVideos     int      `json:"totalVideos"`
	PercentComplete int      `json:"percentComplete"`
	QuizPassed      bool     `json:"quizPassed"`
	BestQuizScore   *float64 `json:"bestQuizScore,omitempty"`
	Completed       bool     `json:"completed"`
}

func (p *CourseProgress) Snapshot() *ProgressSnapshot {
	if p == nil {
		return nil
	}
	return &ProgressSnapshot{
		CourseID:        p.CourseID,
		CompletedVideos: p.CompletedVideos,
		TotalVideos:     p.TotalVideos,
		PercentComplete: p.PercentComplete(),
		QuizPassed:      p.QuizPassed,
		BestQuizScore:   p.BestQuizScore,
		Completed:       p.CompletedAt != nil,
	}
}
