package chatbot

import (
	"errors"
	"strings"

	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/domain/learning"
)

var ErrSessionNotFound = errors.New("chatbot session not found")

type (
	Session = domain.Conversation
	Message = domain.Message
)

// Context keys persisted on a session.
const (
	KeyUserID          = "userId"
	KeyRole            = "role"
	KeyCourseID        = "courseId"
	KeyCurrentPage     = "currentPage"
	KeyUserProgress    = "userProgress"
	KeyCourseInfo      = "courseInfo"
	KeyPlatformStats   = "platformStats"
	KeyLastQuery       = "lastQuery"
	KeyLastResponse    = "lastResponse"
	KeyLastInteraction = "lastInteraction"
)

// Request is one inbound user turn. UserID and Role come from the
// authenticated caller, never from the message body.
type Request struct {
	UserID       string
	Role         domain.Role
	Message      string
	SessionToken string
	// Context holds caller-supplied fields such as courseId and currentPage.
	Context map[string]any
}

func (r Request) contextString(key string) string {
	if r.Context == nil {
		return ""
	}
	s, _ := r.Context[key].(string)
	return strings.TrimSpace(s)
}

type Response struct {
	SessionToken string         `json:"sessionId"`
	Reply        string         `json:"response"`
	Context      map[string]any `json:"context"`
}

// TurnContext is the per-turn context assembled by the ContextBuilder.
type TurnContext struct {
	UserID        string
	Role          domain.Role
	CourseID      string
	CurrentPage   string
	UserProgress  *learning.ProgressSnapshot
	CourseInfo    *learning.CourseSummary
	PlatformStats map[string]any
}

// Fields flattens the context for persistence. Absent lookups are written as
// nil so a stale snapshot from an earlier turn does not survive.
func (c TurnContext) Fields() map[string]any {
	out := map[string]any{
		KeyUserID:       c.UserID,
		KeyRole:         string(c.Role),
		KeyUserProgress: nil,
		KeyCourseInfo:   nil,
	}
	if c.CourseID != "" {
		out[KeyCourseID] = c.CourseID
	}
	if c.CurrentPage != "" {
		out[KeyCurrentPage] = c.CurrentPage
	}
	if c.UserProgress != nil {
		out[KeyUserProgress] = c.UserProgress
	}
	if c.CourseInfo != nil {
		out[KeyCourseInfo] = c.CourseInfo
	}
	if len(c.PlatformStats) > 0 {
		out[KeyPlatformStats] = c.PlatformStats
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
