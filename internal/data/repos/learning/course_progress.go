package learning

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/learnlab-assistant/internal/domain/learning"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type CourseProgressRepo interface {
	GetByUserAndCourse(dbc dbctx.Context, userID, courseID string) (*types.CourseProgress, error)
	ListByUser(dbc dbctx.Context, userID string) ([]*types.CourseProgress, error)
}

type courseProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CourseProgressRepo {
	return &courseProgressRepo{db: db, log: baseLog.With("repo", "CourseProgressRepo")}
}

// GetByUserAndCourse returns (nil, nil) when the user has not started the course.
func (r *courseProgressRepo) GetByUserAndCourse(dbc dbctx.Context, userID, courseID string) (*types.CourseProgress, error) {
	userID, courseID = strings.TrimSpace(userID), strings.TrimSpace(courseID)
	if userID == "" || courseID == "" {
		return nil, fmt.Errorf("missing user_id or course_id")
	}
	var out types.CourseProgress
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *courseProgressRepo) ListByUser(dbc dbctx.Context, userID string) ([]*types.CourseProgress, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("missing user_id")
	}
	var out []*types.CourseProgress
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
