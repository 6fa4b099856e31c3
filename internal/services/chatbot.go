package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/modules/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/apierr"
	"github.com/yungbote/learnlab-assistant/internal/platform/ctxutil"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const (
	DefaultRetentionDays = 30
	MaxRetentionDays     = 3650
)

// TurnProcessor runs one chatbot turn.
type TurnProcessor interface {
	Process(ctx context.Context, req chatbot.Request) chatbot.Response
}

// ConversationStore is the session surface exposed to callers and operators.
type ConversationStore interface {
	Get(ctx context.Context, token string) (*chatbot.Session, error)
	History(ctx context.Context, token string) ([]*chatbot.Message, error)
	End(ctx context.Context, token string) (*chatbot.Session, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]*chatbot.Session, error)
	ExpireOlderThan(ctx context.Context, age time.Duration) (int64, error)
	Stats(ctx context.Context, since time.Time) (*chatbot.Stats, error)
	Now() time.Time
}

type SendMessageInput struct {
	Message      string
	SessionToken string
	Context      map[string]any
}

type CleanupResult struct {
	Deactivated int64  `json:"deactivated"`
	Days        int    `json:"days"`
	Cutoff      string `json:"cutoff"`
}

type ChatbotService interface {
	// SendMessage only fails when there is no authenticated caller; every
	// other problem is answered in the reply itself.
	SendMessage(ctx context.Context, in SendMessageInput) (chatbot.Response, error)
	History(ctx context.Context, token string) ([]*chatbot.Message, error)
	EndConversation(ctx context.Context, token string) (*chatbot.Session, error)
	ListConversations(ctx context.Context, limit int) ([]*chatbot.Session, error)
	Cleanup(ctx context.Context, days int) (*CleanupResult, error)
	Analytics(ctx context.Context, days int) (*chatbot.Stats, error)
}

type chatbotService struct {
	turns TurnProcessor
	store ConversationStore
	log   *logger.Logger
}

func NewChatbotService(baseLog *logger.Logger, turns TurnProcessor, store ConversationStore) ChatbotService {
	return &chatbotService{
		turns: turns,
		store: store,
		log:   baseLog.With("service", "ChatbotService"),
	}
}

func caller(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || strings.TrimSpace(rd.UserID) == "" {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", apierr.ErrUnauthorized)
	}
	return rd, nil
}

func (s *chatbotService) SendMessage(ctx context.Context, in SendMessageInput) (chatbot.Response, error) {
	rd, err := caller(ctx)
	if err != nil {
		return chatbot.Response{}, err
	}
	return s.turns.Process(ctx, chatbot.Request{
		UserID:       rd.UserID,
		Role:         domain.Role(rd.Role),
		Message:      in.Message,
		SessionToken: in.SessionToken,
		Context:      in.Context,
	}), nil
}

// owned loads the session and hides it from callers who neither own it nor are admins.
func (s *chatbotService) owned(ctx context.Context, token string) (*chatbot.Session, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_session_id", apierr.ErrInvalidArgument)
	}
	sess, err := s.store.Get(ctx, token)
	if errors.Is(err, chatbot.ErrSessionNotFound) {
		return nil, apierr.New(http.StatusNotFound, "conversation_not_found", apierr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if sess.UserID != rd.UserID && domain.Role(rd.Role) != domain.RoleAdmin {
		return nil, apierr.New(http.StatusNotFound, "conversation_not_found", apierr.ErrNotFound)
	}
	return sess, nil
}

func (s *chatbotService) History(ctx context.Context, token string) ([]*chatbot.Message, error) {
	if _, err := s.owned(ctx, token); err != nil {
		return nil, err
	}
	msgs, err := s.store.History(ctx, token)
	if errors.Is(err, chatbot.ErrSessionNotFound) {
		return nil, apierr.New(http.StatusNotFound, "conversation_not_found", apierr.ErrNotFound)
	}
	return msgs, err
}

func (s *chatbotService) EndConversation(ctx context.Context, token string) (*chatbot.Session, error) {
	if _, err := s.owned(ctx, token); err != nil {
		return nil, err
	}
	sess, err := s.store.End(ctx, token)
	if errors.Is(err, chatbot.ErrSessionNotFound) {
		return nil, apierr.New(http.StatusNotFound, "conversation_not_found", apierr.ErrNotFound)
	}
	return sess, err
}

func (s *chatbotService) ListConversations(ctx context.Context, limit int) ([]*chatbot.Session, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListRecent(ctx, rd.UserID, limit)
}

func requireAdmin(ctx context.Context) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	if domain.Role(rd.Role) != domain.RoleAdmin {
		return apierr.New(http.StatusForbidden, "admin_only", apierr.ErrForbidden)
	}
	return nil
}

func retentionDays(days int) (int, error) {
	if days == 0 {
		return DefaultRetentionDays, nil
	}
	if days < 1 || days > MaxRetentionDays {
		return 0, apierr.New(http.StatusBadRequest, "invalid_days", fmt.Errorf("%w: days must be between 1 and %d", apierr.ErrInvalidArgument, MaxRetentionDays))
	}
	return days, nil
}

func (s *chatbotService) Cleanup(ctx context.Context, days int) (*CleanupResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	days, err := retentionDays(days)
	if err != nil {
		return nil, err
	}
	age := time.Duration(days) * 24 * time.Hour
	n, err := s.store.ExpireOlderThan(ctx, age)
	if err != nil {
		return nil, err
	}
	s.log.Info("chatbot cleanup", "days", days, "deactivated", n)
	return &CleanupResult{
		Deactivated: n,
		Days:        days,
		Cutoff:      s.store.Now().Add(-age).Format(time.RFC3339),
	}, nil
}

func (s *chatbotService) Analytics(ctx context.Context, days int) (*chatbot.Stats, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	days, err := retentionDays(days)
	if err != nil {
		return nil, err
	}
	return s.store.Stats(ctx, s.store.Now().Add(-time.Duration(days)*24*time.Hour))
}
