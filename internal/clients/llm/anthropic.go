package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

type anthropicBackend struct {
	client anthropic.Client
	model  string
	log    *logger.Logger
}

func NewAnthropicBackend(cfg Config, log *logger.Logger) Backend {
	opts := []option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	model := strings.TrimSpace(cfg.AnthropicModel)
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicBackend{
		client: anthropic.NewClient(opts...),
		model:  model,
		log:    log.With("client", "AnthropicBackend", "model", model),
	}
}

func (b *anthropicBackend) Provider() string { return ProviderAnthropic }

func (b *anthropicBackend) Complete(ctx context.Context, messages []Message, p Params) (string, error) {
	ctx, span := startSpan(ctx, "llm.anthropic.complete", attribute.String("llm.model", b.model))
	defer span.End()

	system, turns := splitSystem(messages)
	maxTokens := int64(p.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 300
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: maxTokens,
		Messages:  toAnthropicMessages(turns),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	params.Temperature = anthropic.Float(p.Temperature)

	message, err := b.client.Messages.New(ctx, params)
	if err != nil {
		recordErr(span, err)
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	var sb strings.Builder
	for _, block := range message.Content {
		sb.WriteString(block.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		recordErr(span, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	b.log.Debug("anthropic completion", "chars", len(text), "stop_reason", string(message.StopReason))
	return text, nil
}

func toAnthropicMessages(turns []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		switch m.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}
