package chatbot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/learnlab-assistant/internal/data/repos"
	"github.com/yungbote/learnlab-assistant/internal/data/repos/testutil"
	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, clock *fakeClock) *Store {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewStore(StoreDeps{
		Conversations: repos.NewConversationRepo(db, log),
		Messages:      repos.NewMessageRepo(db, log),
		Runner:        dbctx.NewGormTxRunner(db),
		Log:           log,
		Now:           clock.Now,
	})
}

func userMessage(content string) *Message {
	return &Message{Role: domain.MessageRoleUser, Content: content}
}

func TestStore_ResolveCreatesThenReusesToken(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	first, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionToken)
	require.True(t, first.IsActive)
	require.Equal(t, domain.RoleStudent, first.UserRole)

	again, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, first.SessionToken)
	require.NoError(t, err)
	require.Equal(t, first.SessionToken, again.SessionToken)
}

func TestStore_ResolveIgnoresForeignToken(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	owned, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	_, err = s.Append(ctx, owned.SessionToken, userMessage("private question"))
	require.NoError(t, err)

	other, err := s.ResolveSession(ctx, "u2", domain.RoleStudent, owned.SessionToken)
	require.NoError(t, err)
	require.NotEqual(t, owned.SessionToken, other.SessionToken)
	require.Equal(t, "u2", other.UserID)

	// u2's own recent session wins over the foreign token
	again, err := s.ResolveSession(ctx, "u2", domain.RoleStudent, owned.SessionToken)
	require.NoError(t, err)
	require.Equal(t, other.SessionToken, again.SessionToken)

	stored, err := s.Get(ctx, owned.SessionToken)
	require.NoError(t, err)
	require.Equal(t, "u1", stored.UserID)
	msgs, err := s.History(ctx, owned.SessionToken)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestStore_ReattachWithinIdleWindow(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	first, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	_, err = s.Append(ctx, first.SessionToken, userMessage("question"))
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	reattached, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	require.Equal(t, first.SessionToken, reattached.SessionToken)

	clock.Advance(31 * time.Minute)
	fresh, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	require.NotEqual(t, first.SessionToken, fresh.SessionToken)
}

func TestStore_AppendOrderAndNotFound(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	sess, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	for _, c := range []string{"one", "two", "three"} {
		clock.Advance(time.Second)
		_, err := s.Append(ctx, sess.SessionToken, userMessage(c))
		require.NoError(t, err)
	}

	msgs, err := s.History(ctx, sess.SessionToken)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "one", msgs[0].Content)
	require.Equal(t, "three", msgs[2].Content)
	require.Equal(t, int64(3), msgs[2].Seq)

	recent, err := s.Recent(ctx, sess.SessionToken, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"two", "three"}, []string{recent[0].Content, recent[1].Content})

	_, err = s.Append(ctx, "unknown-token", userMessage("x"))
	require.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = s.End(ctx, sess.SessionToken)
	require.NoError(t, err)
	_, err = s.Append(ctx, sess.SessionToken, userMessage("late"))
	require.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = s.MergeContext(ctx, sess.SessionToken, map[string]any{"a": 1})
	require.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestStore_ConcurrentAppendsAreNotDropped(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	sess, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, sess.SessionToken, userMessage("dup"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	msgs, err := s.History(ctx, sess.SessionToken)
	require.NoError(t, err)
	require.Equal(t, ok, len(msgs))
	for i, m := range msgs {
		require.Equal(t, int64(i+1), m.Seq)
	}
}

func TestStore_EndIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	sess, err := s.ResolveSession(ctx, "u1", domain.RoleAdmin, "")
	require.NoError(t, err)

	ended, err := s.End(ctx, sess.SessionToken)
	require.NoError(t, err)
	require.False(t, ended.IsActive)

	again, err := s.End(ctx, sess.SessionToken)
	require.NoError(t, err)
	require.False(t, again.IsActive)

	_, err = s.End(ctx, "never-issued")
	require.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = s.History(ctx, sess.SessionToken)
	require.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestStore_MergeContextReplacesWholesale(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	sess, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)

	_, err = s.MergeContext(ctx, sess.SessionToken, map[string]any{KeyCourseID: "C1", "extra": "x"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	updated, err := s.MergeContext(ctx, sess.SessionToken, map[string]any{KeyCourseID: "C2"})
	require.NoError(t, err)
	require.True(t, clock.Now().Equal(updated.LastInteraction))

	got, err := s.Get(ctx, sess.SessionToken)
	require.NoError(t, err)
	m := got.ContextMap()
	require.Equal(t, "C2", m[KeyCourseID])
	require.NotContains(t, m, "extra")
}

func TestStore_ListRecentAndExpire(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	old, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	clock.Advance(40 * 24 * time.Hour)
	newer, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	require.NotEqual(t, old.SessionToken, newer.SessionToken)

	list, err := s.ListRecent(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.SessionToken, list[0].SessionToken)

	list, err = s.ListRecent(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	n, err := s.ExpireOlderThan(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	list, err = s.ListRecent(ctx, "u1", 100)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, newer.SessionToken, list[0].SessionToken)

	_, err = s.ExpireOlderThan(ctx, -time.Hour)
	require.Error(t, err)
}

func TestStore_Stats(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, clock)
	ctx := context.Background()
	since := clock.Now().Add(-time.Hour)

	a, err := s.ResolveSession(ctx, "u1", domain.RoleStudent, "")
	require.NoError(t, err)
	b, err := s.ResolveSession(ctx, "u2", domain.RoleInstructor, "")
	require.NoError(t, err)
	_, err = s.Append(ctx, a.SessionToken, userMessage("hi"))
	require.NoError(t, err)
	_, err = s.Append(ctx, a.SessionToken, &Message{Role: domain.MessageRoleAssistant, Content: "hello"})
	require.NoError(t, err)
	_, err = s.End(ctx, b.SessionToken)
	require.NoError(t, err)

	st, err := s.Stats(ctx, since)
	require.NoError(t, err)
	require.Equal(t, int64(2), st.SessionsStarted)
	require.Equal(t, int64(1), st.ActiveSessions)
	require.Equal(t, int64(1), st.SessionsByRole[domain.RoleStudent])
	require.Equal(t, int64(1), st.SessionsByRole[domain.RoleInstructor])
	require.Equal(t, int64(2), st.TotalMessages)
}
