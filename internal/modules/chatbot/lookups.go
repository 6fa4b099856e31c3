package chatbot

import (
	"context"

	"github.com/yungbote/learnlab-assistant/internal/data/repos"
	"github.com/yungbote/learnlab-assistant/internal/domain/learning"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
)

type repoProgressLookup struct {
	repo repos.CourseProgressRepo
}

// NewRepoProgressLookup serves progress lookups from the course_progress table.
func NewRepoProgressLookup(repo repos.CourseProgressRepo) ProgressLookup {
	return &repoProgressLookup{repo: repo}
}

func (l *repoProgressLookup) GetUserCourseProgress(ctx context.Context, userID, courseID string) (*learning.CourseProgress, error) {
	return l.repo.GetByUserAndCourse(dbctx.Context{Ctx: ctx}, userID, courseID)
}

type repoCourseLookup struct {
	repo repos.CourseRepo
}

// NewRepoCourseLookup serves course summaries from the course table.
func NewRepoCourseLookup(repo repos.CourseRepo) CourseLookup {
	return &repoCourseLookup{repo: repo}
}

func (l *repoCourseLookup) GetCourseByID(ctx context.Context, courseID string) (*learning.CourseSummary, error) {
	c, err := l.repo.GetByID(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil || c == nil {
		return nil, err
	}
	return c.Summary(), nil
}
