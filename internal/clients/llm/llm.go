package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type Params struct {
	MaxTokens   int
	Temperature float64
}

// Backend turns an ordered message list into one assistant reply.
type Backend interface {
	Complete(ctx context.Context, messages []Message, params Params) (string, error)
	Provider() string
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

var (
	ErrNotConfigured = errors.New("llm backend not configured")
	ErrEmptyResponse = errors.New("llm returned no text")
)

type Config struct {
	Provider string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey string
	AnthropicModel  string

	GeminiAPIKey string
	GeminiModel  string

	MaxRetries int
}

// New builds the backend named by cfg.Provider. A provider of "none", or a
// provider whose API key is missing, yields (nil, nil): callers treat a nil
// Backend as "always fall back".
func New(ctx context.Context, cfg Config, log *logger.Logger) (Backend, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderNone:
		log.Info("llm backend disabled")
		return nil, nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			log.Warn("llm backend disabled: missing OPENAI_API_KEY")
			return nil, nil
		}
		return NewOpenAIBackend(cfg, log), nil
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			log.Warn("llm backend disabled: missing ANTHROPIC_API_KEY")
			return nil, nil
		}
		return NewAnthropicBackend(cfg, log), nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			log.Warn("llm backend disabled: missing GEMINI_API_KEY")
			return nil, nil
		}
		return NewGeminiBackend(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}

// splitSystem pulls system messages out for providers that take the
// instruction separately from the turn list.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if s := strings.TrimSpace(m.Content); s != "" {
				system = append(system, s)
			}
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}
