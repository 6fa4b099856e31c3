package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnlab-assistant/internal/platform/ctxutil"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type fakeAuth struct {
	rd  *ctxutil.RequestData
	err error
	got string
}

func (f *fakeAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	f.got = token
	if f.err != nil {
		return ctx, f.err
	}
	return ctxutil.WithRequestData(ctx, f.rd), nil
}

func authRouter(auth *fakeAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.NewNop(), auth).RequireAuth())
	r.GET("/who", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID+"/"+rd.Role)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	cases := []struct {
		name   string
		header string
		auth   *fakeAuth
		status int
		body   string
	}{
		{"valid", "Bearer abc", &fakeAuth{rd: &ctxutil.RequestData{UserID: "u1", Role: "admin"}}, http.StatusOK, "u1/admin"},
		{"lowercase scheme", "bearer abc", &fakeAuth{rd: &ctxutil.RequestData{UserID: "u1", Role: "student"}}, http.StatusOK, "u1/student"},
		{"missing header", "", &fakeAuth{}, http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", &fakeAuth{}, http.StatusUnauthorized, ""},
		{"rejected token", "Bearer bad", &fakeAuth{err: errors.New("expired")}, http.StatusUnauthorized, ""},
		{"no caller", "Bearer abc", &fakeAuth{rd: &ctxutil.RequestData{}}, http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			authRouter(tc.auth).ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("body: got=%q want=%q", rec.Body.String(), tc.body)
			}
		})
	}
}
