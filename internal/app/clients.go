package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/learnlab-assistant/internal/clients/llm"
	"github.com/yungbote/learnlab-assistant/internal/clients/redis"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type Clients struct {
	// LLM is nil when no provider is configured; the chatbot then answers
	// unmatched questions from its fallback pools.
	LLM   llm.Backend
	Redis *goredis.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	backend, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init llm backend: %w", err)
	}
	if backend == nil {
		log.Warn("No generative backend configured; unmatched questions use fallback replies", "provider", cfg.LLM.Provider)
	}

	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb, err = redis.NewClient(ctx, cfg.RedisAddr, log)
		if err != nil {
			// the course cache is optional
			log.Warn("Redis unavailable, course lookups go straight to the database", "error", err)
			rdb = nil
		}
	}
	return Clients{LLM: backend, Redis: rdb}, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
