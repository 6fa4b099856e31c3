package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/learnlab-assistant/internal/clients/llm"
	"github.com/yungbote/learnlab-assistant/internal/modules/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/observability"
	"github.com/yungbote/learnlab-assistant/internal/platform/envutil"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const ServiceName = "learnlab-assistant"

type Config struct {
	Port           string
	JWTSecretKey   string
	AllowedOrigins []string

	RedisAddr      string
	CourseCacheTTL time.Duration

	LLM llm.Config

	IdleWindow          time.Duration
	HistoryWindow       int
	GenerateTimeout     time.Duration
	GenerateMaxTokens   int
	GenerateTemperature float64
	LookupTimeout       time.Duration
	CatalogPath         string

	ExpiryAge      time.Duration
	ExpiryInterval time.Duration

	Otel observability.OtelConfig
}

// LoadDotEnv loads .env if present. Variables already set win.
func LoadDotEnv() error {
	return godotenv.Load()
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:           envutil.GetEnv("PORT", "8080", log),
		JWTSecretKey:   envutil.GetEnv("JWT_SECRET_KEY", "", log),
		AllowedOrigins: splitList(envutil.GetEnv("CORS_ALLOWED_ORIGINS", "", log)),

		RedisAddr:      envutil.GetEnv("REDIS_ADDR", "", log),
		CourseCacheTTL: envutil.Duration("COURSE_CACHE_TTL", 10*time.Minute, log),

		LLM: llm.Config{
			Provider:        envutil.GetEnv("LLM_PROVIDER", llm.ProviderOpenAI, log),
			OpenAIAPIKey:    envutil.GetEnv("OPENAI_API_KEY", "", log),
			OpenAIModel:     envutil.GetEnv("OPENAI_MODEL", "", log),
			OpenAIBaseURL:   envutil.GetEnv("OPENAI_BASE_URL", "", log),
			AnthropicAPIKey: envutil.GetEnv("ANTHROPIC_API_KEY", "", log),
			AnthropicModel:  envutil.GetEnv("ANTHROPIC_MODEL", "", log),
			GeminiAPIKey:    envutil.GetEnv("GEMINI_API_KEY", "", log),
			GeminiModel:     envutil.GetEnv("GEMINI_MODEL", "", log),
			MaxRetries:      envutil.Int("LLM_MAX_RETRIES", 2, log),
		},

		IdleWindow:          envutil.Duration("CHATBOT_IDLE_WINDOW", 30*time.Minute, log),
		HistoryWindow:       envutil.Int("CHATBOT_HISTORY_WINDOW", 15, log),
		GenerateTimeout:     envutil.Duration("CHATBOT_GENERATE_TIMEOUT", 20*time.Second, log),
		GenerateMaxTokens:   envutil.Int("CHATBOT_MAX_TOKENS", chatbot.DefaultMaxTokens, log),
		GenerateTemperature: envutil.Float("CHATBOT_TEMPERATURE", chatbot.DefaultTemperature, log),
		LookupTimeout:       envutil.Duration("CHATBOT_LOOKUP_TIMEOUT", 3*time.Second, log),
		CatalogPath:         envutil.GetEnv("CHATBOT_CATALOG_PATH", "", log),

		ExpiryAge:      time.Duration(envutil.Int("CHATBOT_EXPIRY_DAYS", 30, log)) * 24 * time.Hour,
		ExpiryInterval: envutil.Duration("CHATBOT_EXPIRY_INTERVAL", time.Hour, log),

		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.GetEnv("OTEL_SERVICE_NAME", ServiceName, log),
			Environment: envutil.GetEnv("APP_ENV", "development", log),
			Version:     envutil.GetEnv("APP_VERSION", "", log),
			Endpoint:    envutil.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     envutil.GetEnv("OTEL_EXPORTER_OTLP_HEADERS", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1, log),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
