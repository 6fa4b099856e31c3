package app

import (
	"context"

	"github.com/yungbote/learnlab-assistant/internal/data/db"
	httpH "github.com/yungbote/learnlab-assistant/internal/http/handlers"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type Handlers struct {
	Chatbot *httpH.ChatbotHandler
	Health  *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, dbs *db.Service, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	probes := map[string]httpH.Probe{"database": dbs.Ping}
	if clients.Redis != nil {
		probes["redis"] = func(ctx context.Context) error {
			return clients.Redis.Ping(ctx).Err()
		}
	}
	return Handlers{
		Chatbot: httpH.NewChatbotHandler(services.Chatbot),
		Health:  httpH.NewHealthHandler(probes),
	}
}
