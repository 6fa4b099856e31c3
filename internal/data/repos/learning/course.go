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

type CourseRepo interface {
	Create(dbc dbctx.Context, rows []*types.Course) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, id string) (*types.Course, error)
	ListPublished(dbc dbctx.Context, limit int) ([]*types.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, rows []*types.Course) ([]*types.Course, error) {
	if len(rows) == 0 {
		return []*types.Course{}, nil
	}
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID returns (nil, nil) for an unknown course.
func (r *courseRepo) GetByID(dbc dbctx.Context, id string) (*types.Course, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("missing course_id")
	}
	var out types.Course
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *courseRepo) ListPublished(dbc dbctx.Context, limit int) ([]*types.Course, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.Course
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("is_published = ?", true).
		Order("title ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
