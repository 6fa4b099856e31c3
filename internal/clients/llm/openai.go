package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const defaultOpenAIModel = "gpt-3.5-turbo"

type openAIBackend struct {
	client openai.Client
	model  string
	log    *logger.Logger
}

func NewOpenAIBackend(cfg Config, log *logger.Logger) Backend {
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if base := strings.TrimSpace(cfg.OpenAIBaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIBackend{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log.With("client", "OpenAIBackend", "model", model),
	}
}

func (b *openAIBackend) Provider() string { return ProviderOpenAI }

func (b *openAIBackend) Complete(ctx context.Context, messages []Message, p Params) (string, error) {
	ctx, span := startSpan(ctx, "llm.openai.complete", attribute.String("llm.model", b.model))
	defer span.End()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.model),
		Messages: toOpenAIMessages(messages),
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.MaxTokens))
	}
	params.Temperature = openai.Float(p.Temperature)

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		recordErr(span, err)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		recordErr(span, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		recordErr(span, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	b.log.Debug("openai completion", "chars", len(text), "total_tokens", completion.Usage.TotalTokens)
	return text, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
