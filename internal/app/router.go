package app

import (
	"github.com/gin-gonic/gin"

	server "github.com/yungbote/learnlab-assistant/internal/http"
	"github.com/yungbote/learnlab-assistant/internal/observability"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:    cfg.Otel.ServiceName,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
		Metrics:        metrics,
		AuthMiddleware: middleware.Auth,
		ChatbotHandler: handlers.Chatbot,
		HealthHandler:  handlers.Health,
	})
}
