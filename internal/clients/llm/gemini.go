package llm

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const defaultGeminiModel = "gemini-2.0-flash"

type geminiBackend struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func NewGeminiBackend(ctx context.Context, cfg Config, log *logger.Logger) (Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GeminiAPIKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiBackend{
		client: client,
		model:  model,
		log:    log.With("client", "GeminiBackend", "model", model),
	}, nil
}

func (b *geminiBackend) Provider() string { return ProviderGemini }

func (b *geminiBackend) Complete(ctx context.Context, messages []Message, p Params) (string, error) {
	ctx, span := startSpan(ctx, "llm.gemini.complete", attribute.String("llm.model", b.model))
	defer span.End()

	system, turns := splitSystem(messages)
	temp := float32(p.Temperature)
	config := &genai.GenerateContentConfig{Temperature: &temp}
	if p.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := b.client.Models.GenerateContent(ctx, b.model, toGeminiContents(turns), config)
	if err != nil {
		recordErr(span, err)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			sb.WriteString(part.Text)
		}
		break
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		recordErr(span, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	b.log.Debug("gemini completion", "chars", len(text))
	return text, nil
}

// Gemini calls the assistant side "model".
func toGeminiContents(turns []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Parts: []*genai.Part{{Text: m.Content}},
			Role:  role,
		})
	}
	return out
}
