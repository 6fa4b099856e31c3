package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learnlab-assistant/internal/data/repos"
	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const (
	DefaultIdleWindow = 30 * time.Minute
	DefaultListLimit  = 5
	MaxListLimit      = 50
)

type StoreDeps struct {
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Runner        dbctx.TxRunner
	Log           *logger.Logger

	IdleWindow time.Duration
	Now        func() time.Time
}

// Store owns the session lifecycle. Appends and context updates for one token
// run under that session's row lock, so they apply one at a time and in order.
type Store struct {
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	runner        dbctx.TxRunner
	idleWindow    time.Duration
	now           func() time.Time
	log           *logger.Logger
}

func NewStore(deps StoreDeps) *Store {
	idle := deps.IdleWindow
	if idle <= 0 {
		idle = DefaultIdleWindow
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		conversations: deps.Conversations,
		messages:      deps.Messages,
		runner:        deps.Runner,
		idleWindow:    idle,
		now:           func() time.Time { return now().UTC() },
		log:           deps.Log.With("service", "ChatbotStore"),
	}
}

// ResolveSession returns the user's active session for token, else the user's
// session touched within the idle window, else a brand new one. A token owned
// by a different user never resolves.
func (s *Store) ResolveSession(ctx context.Context, userID string, role domain.Role, token string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("resolve session: missing user_id")
	}
	dbc := dbctx.Context{Ctx: ctx}

	if token = strings.TrimSpace(token); token != "" {
		sess, err := s.conversations.GetActiveByToken(dbc, token)
		if err != nil {
			return nil, fmt.Errorf("resolve session by token: %w", err)
		}
		switch {
		case sess == nil:
			s.log.Debug("session token not active, falling back to recent session", "session_token", token)
		case sess.UserID != userID:
			// a foreign token is treated like an unknown one
			s.log.Warn("session token belongs to another user, ignoring it", "session_token", token, "user_id", userID)
		default:
			return sess, nil
		}
	}

	now := s.now()
	recent, err := s.conversations.LatestActiveByUser(dbc, userID, now.Add(-s.idleWindow))
	if err != nil {
		return nil, fmt.Errorf("resolve recent session: %w", err)
	}
	if recent != nil {
		s.log.Debug("reattached idle session", "session_token", recent.SessionToken, "user_id", userID)
		return recent, nil
	}

	created, err := s.conversations.Create(dbc, &Session{
		ID:              uuid.New(),
		SessionToken:    uuid.NewString(),
		UserID:          userID,
		UserRole:        role.OrDefault(),
		Context:         []byte("{}"),
		IsActive:        true,
		LastInteraction: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("session created", "session_token", created.SessionToken, "user_id", userID, "role", created.UserRole)
	return created, nil
}

// Get returns the session for token whether active or not.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	sess, err := s.conversations.GetByToken(dbctx.Context{Ctx: ctx}, token)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Append adds msg to the active session's history. The session row is locked
// and its sequence advanced in the same transaction, so a concurrent append
// either queues behind this one or fails on the (conversation, seq) index.
func (s *Store) Append(ctx context.Context, token string, msg *Message) (*Session, error) {
	if msg == nil {
		return nil, fmt.Errorf("append: missing message")
	}
	var out *Session
	err := s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		sess, err := s.lockActive(dbc, token)
		if err != nil {
			return err
		}
		now := s.now()
		seq := sess.NextSeq + 1

		msg.ID = uuid.New()
		msg.ConversationID = sess.ID
		msg.Seq = seq
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		if _, err := s.messages.Create(dbc, []*Message{msg}); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if err := s.conversations.UpdateFields(dbc, sess.ID, map[string]interface{}{
			"next_seq":         seq,
			"last_interaction": now,
			"updated_at":       now,
		}); err != nil {
			return fmt.Errorf("advance session: %w", err)
		}
		sess.NextSeq = seq
		sess.LastInteraction = now
		sess.UpdatedAt = now
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MergeContext replaces the stored context wholesale. Callers carry forward
// whatever prior fields they want to keep.
func (s *Store) MergeContext(ctx context.Context, token string, fields map[string]any) (*Session, error) {
	raw, err := domain.EncodeContext(fields)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}
	var out *Session
	err = s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		sess, err := s.lockActive(dbc, token)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.conversations.UpdateFields(dbc, sess.ID, map[string]interface{}{
			"context":          raw,
			"last_interaction": now,
			"updated_at":       now,
		}); err != nil {
			return fmt.Errorf("update context: %w", err)
		}
		sess.Context = raw
		sess.LastInteraction = now
		sess.UpdatedAt = now
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// End deactivates the session. Ending an inactive session is a no-op.
func (s *Store) End(ctx context.Context, token string) (*Session, error) {
	var out *Session
	err := s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		sess, err := s.conversations.LockByToken(dbc, strings.TrimSpace(token))
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if sess == nil {
			return ErrSessionNotFound
		}
		if sess.IsActive {
			now := s.now()
			if err := s.conversations.UpdateFields(dbc, sess.ID, map[string]interface{}{
				"is_active":        false,
				"last_interaction": now,
				"updated_at":       now,
			}); err != nil {
				return fmt.Errorf("deactivate session: %w", err)
			}
			sess.IsActive = false
			sess.LastInteraction = now
			sess.UpdatedAt = now
			s.log.Info("session ended", "session_token", sess.SessionToken)
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecent returns the user's active sessions, most recently touched first.
// limit is clamped to 1..50; zero or less means 5.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	out, err := s.conversations.ListActiveByUser(dbctx.Context{Ctx: ctx}, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// ExpireOlderThan deactivates every active session idle for longer than age.
// Expired rows keep their last interaction time.
func (s *Store) ExpireOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age < 0 {
		return 0, fmt.Errorf("expire: negative age %s", age)
	}
	now := s.now()
	n, err := s.conversations.DeactivateIdleBefore(dbctx.Context{Ctx: ctx}, now.Add(-age), now)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	if n > 0 {
		s.log.Info("sessions expired", "count", n, "older_than", age.String())
	}
	return n, nil
}

// History returns every message of an active session in order.
func (s *Store) History(ctx context.Context, token string) ([]*Message, error) {
	dbc := dbctx.Context{Ctx: ctx}
	sess, err := s.conversations.GetActiveByToken(dbc, token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	msgs, err := s.messages.ListByConversation(dbc, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

// Recent returns the newest limit messages of an active session in order.
func (s *Store) Recent(ctx context.Context, token string, limit int) ([]*Message, error) {
	dbc := dbctx.Context{Ctx: ctx}
	sess, err := s.conversations.GetActiveByToken(dbc, token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	msgs, err := s.messages.ListRecent(dbc, sess.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}
	return msgs, nil
}

type Stats struct {
	Since           time.Time                    `json:"since"`
	SessionsStarted int64                        `json:"sessionsStarted"`
	ActiveSessions  int64                        `json:"activeSessions"`
	SessionsByRole  map[domain.Role]int64        `json:"sessionsByRole"`
	MessagesByRole  map[domain.MessageRole]int64 `json:"messagesByRole"`
	TotalMessages   int64                        `json:"totalMessages"`
}

func (s *Store) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	dbc := dbctx.Context{Ctx: ctx}
	out := &Stats{Since: since.UTC()}
	var err error
	if out.SessionsStarted, err = s.conversations.CountCreatedSince(dbc, since); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	if out.ActiveSessions, err = s.conversations.CountActive(dbc); err != nil {
		return nil, fmt.Errorf("count active sessions: %w", err)
	}
	if out.SessionsByRole, err = s.conversations.CountByRoleSince(dbc, since); err != nil {
		return nil, fmt.Errorf("count sessions by role: %w", err)
	}
	if out.MessagesByRole, err = s.messages.CountByRoleSince(dbc, since); err != nil {
		return nil, fmt.Errorf("count messages by role: %w", err)
	}
	for _, n := range out.MessagesByRole {
		out.TotalMessages += n
	}
	return out, nil
}

// ActiveCount reports how many sessions are currently active.
func (s *Store) ActiveCount(ctx context.Context) (int64, error) {
	n, err := s.conversations.CountActive(dbctx.Context{Ctx: ctx})
	if err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return n, nil
}

func (s *Store) Now() time.Time { return s.now() }

func (s *Store) lockActive(dbc dbctx.Context, token string) (*Session, error) {
	sess, err := s.conversations.LockByToken(dbc, strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	if sess == nil || !sess.IsActive {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
