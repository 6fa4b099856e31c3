package learning

import (
	"time"

	"gorm.io/gorm"
)

// Course is the read model of a catalog course as the assistant sees it.
type Course struct {
	ID             string `gorm:"column:id;type:text;primaryKey" json:"id"`
	InstructorID   string `gorm:"column:instructor_id;type:text;not null;index" json:"instructor_id"`
	InstructorName string `gorm:"column:instructor_name" json:"instructor_name"`

	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description"`
	Level       string `gorm:"column:level" json:"level"`
	Category    string `gorm:"column:category;index" json:"category"`

	LectureCount     int  `gorm:"column:lecture_count;not null;default:0" json:"lecture_count"`
	PassingScore     int  `gorm:"column:passing_score;not null;default:75" json:"passing_score"`
	IsPublished      bool `gorm:"column:is_published;not null;default:false;index" json:"is_published"`
	HasFinalQuiz     bool `gorm:"column:has_final_quiz;not null;default:true" json:"has_final_quiz"`
	TotalDurationMin int  `gorm:"column:total_duration_min;not null;default:0" json:"total_duration_min"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Course) TableName() string { return "course" }

// CourseSummary is the display snapshot of a course attached to chatbot context.
type CourseSummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Level          string `json:"level,omitempty"`
	Category       string `json:"category,omitempty"`
	InstructorName string `json:"instructorName,omitempty"`
	LectureCount   int    `json:"lectureCount"`
	PassingScore   int    `json:"passingScore"`
	HasFinalQuiz   bool   `json:"hasFinalQuiz"`
}

func (c *Course) Summary() *CourseSummary {
	if c == nil {
		return nil
	}
	return &CourseSummary{
		ID:             c.ID,
		Title:          c.Title,
		Level:          c.Level,
		Category:       c.Category,
		InstructorName: c.InstructorName,
		LectureCount:   c.LectureCount,
		PassingScore:   c.PassingScore,
		HasFinalQuiz:   c.HasFinalQuiz,
	}
}
