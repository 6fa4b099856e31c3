package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/learnlab-assistant/internal/clients/llm"
	"github.com/yungbote/learnlab-assistant/internal/clients/redis"
	"github.com/yungbote/learnlab-assistant/internal/jobs/worker"
	"github.com/yungbote/learnlab-assistant/internal/modules/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/observability"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
	"github.com/yungbote/learnlab-assistant/internal/services"
)

type Services struct {
	Catalog      *chatbot.Catalog
	Store        *chatbot.Store
	Orchestrator *chatbot.Orchestrator

	Auth    services.AuthService
	Chatbot services.ChatbotService

	ExpiryWorker *worker.ExpiryWorker
}

func loadCatalog(path string, log *logger.Logger) (*chatbot.Catalog, error) {
	if path == "" {
		return chatbot.DefaultCatalog(), nil
	}
	catalog, err := chatbot.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load chatbot catalog: %w", err)
	}
	log.Info("Loaded chatbot catalog override", "path", path)
	return catalog, nil
}

// contextProviders puts the Redis course cache in front of the course table
// when a Redis client is available.
func contextProviders(log *logger.Logger, cfg Config, reposet Repos, clients Clients) chatbot.ContextProviders {
	var course chatbot.CourseLookup = chatbot.NewRepoCourseLookup(reposet.Course)
	if clients.Redis != nil {
		course = redis.NewCourseCache(clients.Redis, course, cfg.CourseCacheTTL, log)
	}
	return chatbot.FullProviders(chatbot.NewRepoProgressLookup(reposet.CourseProgress), course)
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	catalog, err := loadCatalog(cfg.CatalogPath, log)
	if err != nil {
		return Services{}, err
	}

	store := chatbot.NewStore(chatbot.StoreDeps{
		Conversations: reposet.Conversation,
		Messages:      reposet.Message,
		Runner:        dbctx.NewGormTxRunner(db),
		Log:           log,
		IdleWindow:    cfg.IdleWindow,
	})

	var genObserver chatbot.GenerationObserver
	var turnObserver chatbot.TurnObserver
	var sweepObserver worker.SweepObserver
	if metrics != nil {
		genObserver, turnObserver, sweepObserver = metrics, metrics, metrics
	}

	orchestrator := chatbot.NewOrchestrator(chatbot.OrchestratorDeps{
		Store:   store,
		Builder: chatbot.NewContextBuilder(contextProviders(log, cfg, reposet, clients), catalog, cfg.LookupTimeout, log),
		Matcher: chatbot.NewMatcher(catalog),
		Generator: chatbot.NewGenerator(clients.LLM, catalog, chatbot.GeneratorConfig{
			HistoryWindow: cfg.HistoryWindow,
			Timeout:       cfg.GenerateTimeout,
			Params: &llm.Params{
				MaxTokens:   cfg.GenerateMaxTokens,
				Temperature: cfg.GenerateTemperature,
			},
			Observer: genObserver,
		}, log),
		Catalog:  catalog,
		Log:      log,
		Observer: turnObserver,
	})

	return Services{
		Catalog:      catalog,
		Store:        store,
		Orchestrator: orchestrator,
		Auth:         services.NewAuthService(log, cfg.JWTSecretKey),
		Chatbot:      services.NewChatbotService(log, orchestrator, store),
		ExpiryWorker: worker.NewExpiryWorker(log, store, worker.ExpiryConfig{
			Age:      cfg.ExpiryAge,
			Interval: cfg.ExpiryInterval,
			Observer: sweepObserver,
		}),
	}, nil
}
