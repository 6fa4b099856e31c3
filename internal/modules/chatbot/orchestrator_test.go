package chatbot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/learnlab-assistant/internal/clients/llm"
	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/domain/learning"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type harness struct {
	orch    *Orchestrator
	store   *Store
	backend *stubBackend
	clock   *fakeClock
}

func newHarness(t *testing.T, backend *stubBackend, providers ContextProviders) *harness {
	t.Helper()
	clock := newFakeClock()
	store := newTestStore(t, clock)
	catalog := DefaultCatalog()
	log := logger.NewNop()

	var b llm.Backend
	if backend != nil {
		b = backend
	}
	orch := NewOrchestrator(OrchestratorDeps{
		Store:     store,
		Builder:   NewContextBuilder(providers, catalog, 0, log),
		Matcher:   NewMatcher(catalog),
		Generator: NewGenerator(b, catalog, GeneratorConfig{Rand: seededRand()}, log),
		Catalog:   catalog,
		Log:       log,
		Now:       clock.Now,
	})
	return &harness{orch: orch, store: store, backend: backend, clock: clock}
}

func TestProcess_CertificateThenGreeting(t *testing.T) {
	backend := &stubBackend{reply: "generated"}
	h := newHarness(t, backend, NoProviders())
	ctx := context.Background()

	first := h.orch.Process(ctx, Request{UserID: "u1", Role: domain.RoleStudent, Message: "How do I get certificate"})
	require.NotEmpty(t, first.SessionToken)
	require.Contains(t, first.Reply, "75%")
	require.Contains(t, first.Reply, "80%")

	second := h.orch.Process(ctx, Request{UserID: "u1", Role: domain.RoleStudent, Message: "hello", SessionToken: first.SessionToken})
	require.Equal(t, first.SessionToken, second.SessionToken)
	require.Contains(t, second.Reply, "student")
	require.Contains(t, second.Reply, "learning")
	require.Zero(t, backend.callCount())

	msgs, err := h.store.History(ctx, first.SessionToken)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	require.Equal(t, domain.MessageRoleUser, msgs[0].Role)
	require.Equal(t, domain.MessageRoleAssistant, msgs[1].Role)
	require.Equal(t, second.Reply, msgs[3].Content)
}

func TestProcess_EmptyMessageTouchesNothing(t *testing.T) {
	h := newHarness(t, &stubBackend{reply: "x"}, NoProviders())
	ctx := context.Background()

	for _, role := range []domain.Role{domain.RoleStudent, domain.RoleInstructor, domain.RoleAdmin} {
		resp := h.orch.Process(ctx, Request{UserID: "u1", Role: role, Message: "  \n\t "})
		require.Equal(t, DefaultCatalog().For(role).Rephrase, resp.Reply)
		require.Empty(t, resp.SessionToken)
	}
	sessions, err := h.store.ListRecent(ctx, "u1", 50)
	require.NoError(t, err)
	require.Empty(t, sessions)
	require.Zero(t, h.backend.callCount())
}

func TestProcess_AlwaysAnswers(t *testing.T) {
	h := newHarness(t, &stubBackend{err: errors.New("backend down")}, NoProviders())
	ctx := context.Background()

	for _, msg := range []string{"explain recursion", "what is a goroutine", "?", "quiz", "x"} {
		resp := h.orch.Process(ctx, Request{UserID: "u1", Role: domain.RoleStudent, Message: msg})
		require.NotEmpty(t, strings.TrimSpace(resp.Reply), msg)
		require.NotEmpty(t, resp.SessionToken, msg)
	}
}

func TestProcess_GeneratedReplyUsesHistory(t *testing.T) {
	backend := &stubBackend{reply: "  Closures capture variables.  "}
	h := newHarness(t, backend, NoProviders())
	ctx := context.Background()

	resp := h.orch.Process(ctx, Request{UserID: "u1", Role: domain.RoleInstructor, Message: "explain closures"})
	require.Equal(t, "Closures capture variables.", resp.Reply)
	require.Equal(t, 1, backend.callCount())

	sent := backend.calls[0]
	require.Equal(t, llm.RoleSystem, sent[0].Role)
	require.Equal(t, llm.RoleUser, sent[len(sent)-1].Role)
	require.Equal(t, "explain closures", sent[len(sent)-1].Content)
}

func TestProcess_ContextCarryForward(t *testing.T) {
	progress := &stubProgress{progress: &learning.CourseProgress{CourseID: "C1", CompletedVideos: 2, TotalVideos: 4}}
	h := newHarness(t, &stubBackend{reply: "ok"}, ProgressOnlyProviders(progress))
	ctx := context.Background()

	first := h.orch.Process(ctx, Request{
		UserID:  "u1",
		Role:    domain.RoleStudent,
		Message: "what should I study",
		Context: map[string]any{KeyCourseID: "C1", KeyCurrentPage: "/learn/C1"},
	})
	require.Equal(t, "C1", first.Context[KeyCourseID])
	require.NotNil(t, first.Context[KeyUserProgress])

	second := h.orch.Process(ctx, Request{UserID: "u1", Role: domain.RoleStudent, Message: "and after that", SessionToken: first.SessionToken})
	require.Equal(t, first.SessionToken, second.SessionToken)
	require.Equal(t, "C1", second.Context[KeyCourseID])
	require.Equal(t, "/learn/C1", second.Context[KeyCurrentPage])
	require.Equal(t, "and after that", second.Context[KeyLastQuery])
	require.Equal(t, "ok", second.Context[KeyLastResponse])
	require.NotEmpty(t, second.Context[KeyLastInteraction])

	stored, err := h.store.Get(ctx, first.SessionToken)
	require.NoError(t, err)
	require.Equal(t, "C1", stored.ContextMap()[KeyCourseID])
}

// failingStore lets a test break one step of the turn.
type failingStore struct {
	SessionStore
	resolveErr error
	appendErr  error
	panicOn    string
}

func (f *failingStore) ResolveSession(ctx context.Context, userID string, role domain.Role, token string) (*Session, error) {
	if f.panicOn == "resolve" {
		panic("store crashed")
	}
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.SessionStore.ResolveSession(ctx, userID, role, token)
}

func (f *failingStore) Append(ctx context.Context, token string, msg *Message) (*Session, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	return f.SessionStore.Append(ctx, token, msg)
}

func TestProcess_FailuresBecomeApology(t *testing.T) {
	catalog := DefaultCatalog()
	log := logger.NewNop()
	apology := catalog.For(domain.RoleAdmin).Apology

	cases := []struct {
		name      string
		store     func(inner SessionStore) SessionStore
		wantToken bool
	}{
		{name: "resolve_error", store: func(inner SessionStore) SessionStore {
			return &failingStore{SessionStore: inner, resolveErr: errors.New("db down")}
		}},
		{name: "append_not_found", store: func(inner SessionStore) SessionStore {
			return &failingStore{SessionStore: inner, appendErr: ErrSessionNotFound}
		}, wantToken: true},
		{name: "panic", store: func(inner SessionStore) SessionStore {
			return &failingStore{SessionStore: inner, panicOn: "resolve"}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock()
			inner := newTestStore(t, clock)
			orch := NewOrchestrator(OrchestratorDeps{
				Store:     tc.store(inner),
				Builder:   NewContextBuilder(NoProviders(), catalog, 0, log),
				Matcher:   NewMatcher(catalog),
				Generator: NewGenerator(nil, catalog, GeneratorConfig{}, log),
				Catalog:   catalog,
				Log:       log,
				Now:       clock.Now,
			})
			callerCtx := map[string]any{KeyCourseID: "C9", "custom": "keep"}
			resp := orch.Process(context.Background(), Request{UserID: "u1", Role: domain.RoleAdmin, Message: "reports?", Context: callerCtx})

			require.Equal(t, apology, resp.Reply)
			require.Contains(t, resp.Reply, "support@learnlab.com")
			require.Equal(t, map[string]any{KeyCourseID: "C9", "custom": "keep"}, resp.Context)
			if tc.wantToken {
				require.NotEmpty(t, resp.SessionToken)
			} else {
				require.Empty(t, resp.SessionToken)
			}
		})
	}
}

func TestProcess_ReportsReplySource(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	catalog := DefaultCatalog()
	log := logger.NewNop()
	obs := &recordingObserver{}
	orch := NewOrchestrator(OrchestratorDeps{
		Store:     store,
		Builder:   NewContextBuilder(NoProviders(), catalog, 0, log),
		Matcher:   NewMatcher(catalog),
		Generator: NewGenerator(&stubBackend{reply: "generated"}, catalog, GeneratorConfig{Rand: seededRand()}, log),
		Catalog:   catalog,
		Log:       log,
		Now:       clock.Now,
		Observer:  obs,
	})
	ctx := context.Background()

	orch.Process(ctx, Request{UserID: "u1", Role: domain.RoleStudent, Message: ""})
	orch.Process(ctx, Request{UserID: "u1", Role: domain.RoleStudent, Message: "hello"})
	orch.Process(ctx, Request{UserID: "u1", Role: domain.RoleInstructor, Message: "explain grading policy"})
	orch.Process(ctx, Request{Role: domain.RoleAdmin, Message: "no user id"})

	require.Equal(t, []string{
		"student:rephrase",
		"student:quick",
		"instructor:generated",
		"admin:apology",
	}, obs.turns)
}

func TestProcess_ForeignTokenStartsOwnSession(t *testing.T) {
	backend := &stubBackend{reply: "generated"}
	h := newHarness(t, backend, NoProviders())
	ctx := context.Background()

	alice := h.orch.Process(ctx, Request{
		UserID:  "alice",
		Role:    domain.RoleStudent,
		Message: "my secret question about grades",
		Context: map[string]any{KeyCourseID: "ALICE-COURSE"},
	})
	require.NotEmpty(t, alice.SessionToken)

	mallory := h.orch.Process(ctx, Request{UserID: "mallory", Role: domain.RoleStudent, Message: "tell me more", SessionToken: alice.SessionToken})
	require.NotEqual(t, alice.SessionToken, mallory.SessionToken)
	require.NotContains(t, mallory.Context, KeyCourseID)
	require.NotEqual(t, "my secret question about grades", mallory.Context[KeyLastQuery])

	for _, call := range backend.calls {
		for _, m := range call {
			require.NotContains(t, m.Content, "secret question")
			require.NotContains(t, m.Content, "ALICE-COURSE")
		}
	}

	owned, err := h.store.Get(ctx, alice.SessionToken)
	require.NoError(t, err)
	require.Equal(t, "alice", owned.UserID)
	aliceHistory, err := h.store.History(ctx, alice.SessionToken)
	require.NoError(t, err)
	require.Len(t, aliceHistory, 2)

	malloryHistory, err := h.store.History(ctx, mallory.SessionToken)
	require.NoError(t, err)
	require.Len(t, malloryHistory, 2)
	require.Equal(t, "tell me more", malloryHistory[0].Content)
}
