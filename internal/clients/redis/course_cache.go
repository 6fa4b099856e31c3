package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/learnlab-assistant/internal/domain/learning"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const courseKeyPrefix = "learnlab:course-summary:"

// CourseSource is the uncached course lookup.
type CourseSource interface {
	GetCourseByID(ctx context.Context, courseID string) (*learning.CourseSummary, error)
}

// CourseCache is a read-through cache in front of a CourseSource. Redis
// failures never fail a lookup; they only cost a trip to the source.
type CourseCache struct {
	rdb    goredis.Cmdable
	source CourseSource
	ttl    time.Duration
	log    *logger.Logger
}

func NewCourseCache(rdb goredis.Cmdable, source CourseSource, ttl time.Duration, log *logger.Logger) *CourseCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CourseCache{
		rdb:    rdb,
		source: source,
		ttl:    ttl,
		log:    log.With("service", "CourseCache"),
	}
}

func courseKey(courseID string) string { return courseKeyPrefix + courseID }

func (c *CourseCache) GetCourseByID(ctx context.Context, courseID string) (*learning.CourseSummary, error) {
	key := courseKey(courseID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out learning.CourseSummary
		if jerr := json.Unmarshal(raw, &out); jerr == nil {
			return &out, nil
		}
		c.log.Warn("course cache entry corrupt, refetching", "course_id", courseID)
	case errors.Is(err, goredis.Nil):
	default:
		c.log.Warn("course cache read failed", "course_id", courseID, "error", err)
	}

	summary, err := c.source.GetCourseByID(ctx, courseID)
	if err != nil || summary == nil {
		return summary, err
	}

	if payload, jerr := json.Marshal(summary); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			c.log.Warn("course cache write failed", "course_id", courseID, "error", serr)
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary so the next lookup reads the source.
func (c *CourseCache) Invalidate(ctx context.Context, courseID string) error {
	return c.rdb.Del(ctx, courseKey(courseID)).Err()
}
