package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/ctxutil"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/learnlab-assistant/internal/modules/chatbot")

// SessionStore is the part of Store a turn needs.
type SessionStore interface {
	ResolveSession(ctx context.Context, userID string, role domain.Role, token string) (*Session, error)
	Append(ctx context.Context, token string, msg *Message) (*Session, error)
	MergeContext(ctx context.Context, token string, fields map[string]any) (*Session, error)
	Recent(ctx context.Context, token string, limit int) ([]*Message, error)
}

// TurnObserver receives one call per processed turn.
type TurnObserver interface {
	ObserveChatbotTurn(role, source string, dur time.Duration)
}

type OrchestratorDeps struct {
	Store     SessionStore
	Builder   *ContextBuilder
	Matcher   *Matcher
	Generator *Generator
	Catalog   *Catalog
	Log       *logger.Logger
	Now       func() time.Time
	Observer  TurnObserver
}

type Orchestrator struct {
	store     SessionStore
	builder   *ContextBuilder
	matcher   *Matcher
	generator *Generator
	catalog   *Catalog
	now       func() time.Time
	observer  TurnObserver
	log       *logger.Logger
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:     deps.Store,
		builder:   deps.Builder,
		matcher:   deps.Matcher,
		generator: deps.Generator,
		catalog:   deps.Catalog,
		now:       func() time.Time { return now().UTC() },
		observer:  deps.Observer,
		log:       deps.Log.With("service", "ChatbotOrchestrator"),
	}
}

// Process runs one turn and always answers. Empty messages get the role's
// rephrase prompt without touching the store; any failure after that is
// turned into the role's apology carrying the last known session token and
// the caller's context as sent.
func (o *Orchestrator) Process(ctx context.Context, req Request) (resp Response) {
	ctx, span := tracer.Start(ctx, "chatbot.process")
	defer span.End()

	role := req.Role.OrDefault()
	rc := o.catalog.For(role)
	knownToken := strings.TrimSpace(req.SessionToken)
	span.SetAttributes(attribute.String("chatbot.role", string(role)))

	start := time.Now()
	source := "rephrase"
	defer func() {
		span.SetAttributes(attribute.String("chatbot.reply_source", source))
		if o.observer != nil {
			o.observer.ObserveChatbotTurn(string(role), source, time.Since(start))
		}
	}()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{SessionToken: knownToken, Reply: rc.Rephrase, Context: callerContext(req)}
	}

	defer func() {
		if r := recover(); r != nil {
			source = "apology"
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "turn panicked")
			o.log.Error("chatbot turn panicked", append(ctxutil.LogFields(ctx), "session_token", knownToken, "error", err)...)
			resp = Response{SessionToken: knownToken, Reply: rc.Apology, Context: callerContext(req)}
		}
	}()

	out, turnSource, err := o.turn(ctx, req, role, message, &knownToken)
	if err != nil {
		source = "apology"
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		o.log.Error("chatbot turn failed", append(ctxutil.LogFields(ctx), "session_token", knownToken, "error", err)...)
		return Response{SessionToken: knownToken, Reply: rc.Apology, Context: callerContext(req)}
	}
	source = turnSource
	o.log.Info("chatbot turn",
		"session_token", out.SessionToken,
		"user_id", req.UserID,
		"role", role,
		"source", source,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	o.log.Debug("chatbot turn detail", "session_token", out.SessionToken, "message", message, "reply", out.Reply)
	return out
}

func (o *Orchestrator) turn(ctx context.Context, req Request, role domain.Role, message string, knownToken *string) (Response, string, error) {
	sess, err := o.store.ResolveSession(ctx, req.UserID, role, req.SessionToken)
	if err != nil {
		return Response{}, "", err
	}
	token := sess.SessionToken
	*knownToken = token
	prior := sess.ContextMap()

	if _, err := o.store.Append(ctx, token, &Message{Role: domain.MessageRoleUser, Content: message}); err != nil {
		return Response{}, "", fmt.Errorf("append user message: %w", err)
	}

	tc := o.builder.Build(ctx, req, prior)

	source := "quick"
	reply, ok := o.matcher.Match(message, role)
	if !ok {
		source = "generated"
		history, err := o.store.Recent(ctx, token, o.generator.HistoryWindow())
		if err != nil {
			return Response{}, "", fmt.Errorf("load history: %w", err)
		}
		reply = o.generator.Generate(ctx, history, tc)
	}
	if strings.TrimSpace(reply) == "" {
		source = "default"
		reply = o.catalog.For(role).DefaultReply
	}

	if _, err := o.store.Append(ctx, token, &Message{Role: domain.MessageRoleAssistant, Content: reply}); err != nil {
		return Response{}, "", fmt.Errorf("append assistant message: %w", err)
	}

	merged := copyMap(prior)
	for k, v := range req.Context {
		merged[k] = v
	}
	for k, v := range tc.Fields() {
		merged[k] = v
	}
	merged[KeyLastQuery] = message
	merged[KeyLastResponse] = reply
	merged[KeyLastInteraction] = o.now().Format(time.RFC3339Nano)

	if _, err := o.store.MergeContext(ctx, token, merged); err != nil {
		return Response{}, "", fmt.Errorf("merge context: %w", err)
	}
	return Response{SessionToken: token, Reply: reply, Context: merged}, source, nil
}

func callerContext(req Request) map[string]any {
	if req.Context == nil {
		return map[string]any{}
	}
	return req.Context
}
