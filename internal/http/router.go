package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/learnlab-assistant/internal/http/handlers"
	httpMW "github.com/yungbote/learnlab-assistant/internal/http/middleware"
	"github.com/yungbote/learnlab-assistant/internal/observability"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	Log            *logger.Logger
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware
	ChatbotHandler *httpH.ChatbotHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	chatbot := r.Group("/api/chatbot")
	{
		if cfg.AuthMiddleware != nil {
			chatbot.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.ChatbotHandler != nil {
			chatbot.POST("/message", cfg.ChatbotHandler.SendMessage)
			chatbot.GET("/conversations", cfg.ChatbotHandler.ListConversations)
			chatbot.GET("/conversations/:sessionId/history", cfg.ChatbotHandler.History)
			chatbot.DELETE("/conversations/:sessionId", cfg.ChatbotHandler.EndConversation)

			// Admin
			chatbot.DELETE("/admin/cleanup", cfg.ChatbotHandler.Cleanup)
			chatbot.GET("/admin/analytics", cfg.ChatbotHandler.Analytics)
		}
	}

	return r
}
