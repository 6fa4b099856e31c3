package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/yungbote/learnlab-assistant/internal/data/repos"
	"github.com/yungbote/learnlab-assistant/internal/data/repos/testutil"
	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/modules/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/apierr"
	"github.com/yungbote/learnlab-assistant/internal/platform/ctxutil"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
)

type recordingTurns struct {
	last  chatbot.Request
	calls int
}

func (r *recordingTurns) Process(_ context.Context, req chatbot.Request) chatbot.Response {
	r.calls++
	r.last = req
	return chatbot.Response{SessionToken: "tok", Reply: "ok", Context: map[string]any{}}
}

func newTestChatbotService(t *testing.T) (ChatbotService, *chatbot.Store, *recordingTurns) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := chatbot.NewStore(chatbot.StoreDeps{
		Conversations: repos.NewConversationRepo(db, log),
		Messages:      repos.NewMessageRepo(db, log),
		Runner:        dbctx.NewGormTxRunner(db),
		Log:           log,
		Now:           func() time.Time { return now },
	})
	turns := &recordingTurns{}
	return NewChatbotService(log, turns, store), store, turns
}

func as(userID, role string) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID, Role: role})
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	status, _ := apierr.Classify(err, "internal")
	return status
}

func TestSendMessageUsesCallerIdentity(t *testing.T) {
	svc, _, turns := newTestChatbotService(t)

	if _, err := svc.SendMessage(context.Background(), SendMessageInput{Message: "hello"}); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("anonymous send: want unauthorized, got %v", err)
	}
	if turns.calls != 0 {
		t.Fatalf("anonymous send reached the orchestrator")
	}

	resp, err := svc.SendMessage(as("u1", "instructor"), SendMessageInput{
		Message:      "create a quiz",
		SessionToken: "abc",
		Context:      map[string]any{"courseId": "c1"},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.Reply != "ok" {
		t.Fatalf("reply: want=ok got=%q", resp.Reply)
	}
	if turns.last.UserID != "u1" || turns.last.Role != domain.RoleInstructor {
		t.Fatalf("identity not forwarded: %+v", turns.last)
	}
	if turns.last.SessionToken != "abc" || turns.last.Context["courseId"] != "c1" {
		t.Fatalf("request not forwarded: %+v", turns.last)
	}
}

func TestHistoryIsScopedToOwner(t *testing.T) {
	svc, store, _ := newTestChatbotService(t)
	ctx := context.Background()

	sess, err := store.ResolveSession(ctx, "owner", domain.RoleStudent, "")
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if _, err := store.Append(ctx, sess.SessionToken, &chatbot.Message{Role: domain.MessageRoleUser, Content: "question"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	msgs, err := svc.History(as("owner", "student"), sess.SessionToken)
	if err != nil {
		t.Fatalf("owner history: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "question" {
		t.Fatalf("owner history: got %+v", msgs)
	}

	if _, err := svc.History(as("intruder", "student"), sess.SessionToken); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("foreign history: want 404, got %v", err)
	}
	if _, err := svc.History(as("ops", "admin"), sess.SessionToken); err != nil {
		t.Fatalf("admin history: %v", err)
	}
	if _, err := svc.History(as("owner", "student"), "missing"); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("unknown token: want 404, got %v", err)
	}
	if _, err := svc.History(as("owner", "student"), " "); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("blank token: want 400, got %v", err)
	}
}

func TestEndConversationIsIdempotent(t *testing.T) {
	svc, store, _ := newTestChatbotService(t)
	ctx := context.Background()

	sess, err := store.ResolveSession(ctx, "owner", domain.RoleStudent, "")
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	for i := 0; i < 2; i++ {
		ended, err := svc.EndConversation(as("owner", "student"), sess.SessionToken)
		if err != nil {
			t.Fatalf("EndConversation #%d: %v", i+1, err)
		}
		if ended.IsActive {
			t.Fatalf("EndConversation #%d: session still active", i+1)
		}
	}
	if _, err := svc.EndConversation(as("intruder", "student"), sess.SessionToken); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("foreign end: want 404, got %v", err)
	}
}

func TestListConversationsReturnsCallerSessions(t *testing.T) {
	svc, store, _ := newTestChatbotService(t)
	ctx := context.Background()

	if _, err := store.ResolveSession(ctx, "u1", domain.RoleStudent, ""); err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if _, err := store.ResolveSession(ctx, "u2", domain.RoleStudent, ""); err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	list, err := svc.ListConversations(as("u1", "student"), 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 1 || list[0].UserID != "u1" {
		t.Fatalf("ListConversations: got %+v", list)
	}
}

func TestAdminOperations(t *testing.T) {
	svc, store, _ := newTestChatbotService(t)
	ctx := context.Background()

	if _, err := store.ResolveSession(ctx, "u1", domain.RoleStudent, ""); err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}

	if _, err := svc.Cleanup(as("u1", "student"), 30); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("student cleanup: want 403, got %v", err)
	}
	if _, err := svc.Analytics(as("u1", "instructor"), 30); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("instructor analytics: want 403, got %v", err)
	}

	cases := []struct {
		days   int
		status int
	}{
		{days: -1, status: http.StatusBadRequest},
		{days: MaxRetentionDays + 1, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		if _, err := svc.Cleanup(as("ops", "admin"), tc.days); statusOf(t, err) != tc.status {
			t.Fatalf("cleanup days=%d: want %d, got %v", tc.days, tc.status, err)
		}
	}

	res, err := svc.Cleanup(as("ops", "admin"), 0)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if res.Days != DefaultRetentionDays || res.Deactivated != 0 {
		t.Fatalf("Cleanup: got %+v", res)
	}

	stats, err := svc.Analytics(as("ops", "admin"), 7)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if stats.SessionsStarted != 1 || stats.ActiveSessions != 1 {
		t.Fatalf("Analytics: got %+v", stats)
	}
	if stats.SessionsByRole[domain.RoleStudent] != 1 {
		t.Fatalf("Analytics by role: got %+v", stats.SessionsByRole)
	}
}
