package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/learnlab-assistant/internal/http/handlers"
	httpMW "github.com/yungbote/learnlab-assistant/internal/http/middleware"
	"github.com/yungbote/learnlab-assistant/internal/observability"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
	"github.com/yungbote/learnlab-assistant/internal/services"
)

func TestRouterProtectsChatbotRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	r := NewRouter(RouterConfig{
		Log:            log,
		Metrics:        observability.NewMetrics(),
		AuthMiddleware: httpMW.NewAuthMiddleware(log, services.NewAuthService(log, "secret")),
		ChatbotHandler: httpH.NewChatbotHandler(nil),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthcheck", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/api/chatbot/message", http.StatusUnauthorized},
		{http.MethodGet, "/api/chatbot/conversations", http.StatusUnauthorized},
		{http.MethodGet, "/api/chatbot/conversations/abc/history", http.StatusUnauthorized},
		{http.MethodDelete, "/api/chatbot/conversations/abc", http.StatusUnauthorized},
		{http.MethodDelete, "/api/chatbot/admin/cleanup", http.StatusUnauthorized},
		{http.MethodGet, "/api/chatbot/admin/analytics", http.StatusUnauthorized},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s %s: got=%d want=%d", tc.method, tc.path, rec.Code, tc.status)
		}
	}
}

func TestServerShutdownBeforeRun(t *testing.T) {
	s := NewServer(RouterConfig{})
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
