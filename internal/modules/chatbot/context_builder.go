package chatbot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/learnlab-assistant/internal/domain/learning"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type ProgressLookup interface {
	GetUserCourseProgress(ctx context.Context, userID, courseID string) (*learning.CourseProgress, error)
}

// CourseLookup returns (nil, nil) for an unknown course.
type CourseLookup interface {
	GetCourseByID(ctx context.Context, courseID string) (*learning.CourseSummary, error)
}

// Lookup is the outcome of a best-effort lookup: a value, or absent.
type Lookup[T any] struct {
	Value T
	OK    bool
}

func Found[T any](v T) Lookup[T] { return Lookup[T]{Value: v, OK: true} }

func Absent[T any]() Lookup[T] { return Lookup[T]{} }

// ContextProviders is the set of lookups available to the builder, fixed at
// composition time.
type ContextProviders struct {
	kind     string
	progress ProgressLookup
	course   CourseLookup
}

func FullProviders(progress ProgressLookup, course CourseLookup) ContextProviders {
	switch {
	case progress == nil && course == nil:
		return NoProviders()
	case progress == nil:
		return CourseOnlyProviders(course)
	case course == nil:
		return ProgressOnlyProviders(progress)
	}
	return ContextProviders{kind: "full", progress: progress, course: course}
}

func ProgressOnlyProviders(progress ProgressLookup) ContextProviders {
	if progress == nil {
		return NoProviders()
	}
	return ContextProviders{kind: "progress_only", progress: progress}
}

func CourseOnlyProviders(course CourseLookup) ContextProviders {
	if course == nil {
		return NoProviders()
	}
	return ContextProviders{kind: "course_only", course: course}
}

func NoProviders() ContextProviders { return ContextProviders{kind: "none"} }

func (p ContextProviders) Kind() string {
	if p.kind == "" {
		return "none"
	}
	return p.kind
}

type ContextBuilder struct {
	providers     ContextProviders
	platformStats map[string]any
	lookupTimeout time.Duration
	log           *logger.Logger
}

func NewContextBuilder(providers ContextProviders, catalog *Catalog, lookupTimeout time.Duration, baseLog *logger.Logger) *ContextBuilder {
	if lookupTimeout <= 0 {
		lookupTimeout = 3 * time.Second
	}
	return &ContextBuilder{
		providers:     providers,
		platformStats: catalog.PlatformStats,
		lookupTimeout: lookupTimeout,
		log:           baseLog.With("service", "ChatbotContextBuilder", "providers", providers.Kind()),
	}
}

// Build never fails. Request fields win over the prior session context, and
// each lookup that errors, panics, or times out leaves its field nil.
func (b *ContextBuilder) Build(ctx context.Context, req Request, prior map[string]any) TurnContext {
	out := TurnContext{
		UserID:        req.UserID,
		Role:          req.Role.OrDefault(),
		CourseID:      firstNonEmpty(req.contextString(KeyCourseID), stringField(prior, KeyCourseID)),
		CurrentPage:   firstNonEmpty(req.contextString(KeyCurrentPage), stringField(prior, KeyCurrentPage)),
		PlatformStats: copyMap(b.platformStats),
	}
	if out.CourseID == "" {
		return out
	}

	lookupCtx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	var (
		progress Lookup[*learning.ProgressSnapshot]
		course   Lookup[*learning.CourseSummary]
		g        errgroup.Group
	)
	if b.providers.progress != nil {
		g.Go(func() error {
			progress = b.lookupProgress(lookupCtx, req.UserID, out.CourseID)
			return nil
		})
	}
	if b.providers.course != nil {
		g.Go(func() error {
			course = b.lookupCourse(lookupCtx, out.CourseID)
			return nil
		})
	}
	_ = g.Wait()

	if progress.OK {
		out.UserProgress = progress.Value
	}
	if course.OK {
		out.CourseInfo = course.Value
	}
	return out
}

func (b *ContextBuilder) lookupProgress(ctx context.Context, userID, courseID string) (res Lookup[*learning.ProgressSnapshot]) {
	defer b.recoverLookup("progress")
	p, err := b.providers.progress.GetUserCourseProgress(ctx, userID, courseID)
	if err != nil {
		b.log.Warn("progress lookup failed", "user_id", userID, "course_id", courseID, "error", err)
		return Absent[*learning.ProgressSnapshot]()
	}
	if p == nil {
		return Absent[*learning.ProgressSnapshot]()
	}
	return Found(p.Snapshot())
}

func (b *ContextBuilder) lookupCourse(ctx context.Context, courseID string) (res Lookup[*learning.CourseSummary]) {
	defer b.recoverLookup("course")
	c, err := b.providers.course.GetCourseByID(ctx, courseID)
	if err != nil {
		b.log.Warn("course lookup failed", "course_id", courseID, "error", err)
		return Absent[*learning.CourseSummary]()
	}
	if c == nil {
		return Absent[*learning.CourseSummary]()
	}
	return Found(c)
}

// A panicking lookup leaves its named result at the zero value, which is Absent.
func (b *ContextBuilder) recoverLookup(name string) {
	if r := recover(); r != nil {
		b.log.Error("context lookup panicked", "lookup", name, "panic", fmt.Sprint(r))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
