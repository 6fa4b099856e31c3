package chatbot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/learnlab-assistant/internal/clients/llm"
	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const (
	DefaultHistoryWindow = 15
	MinHistoryWindow     = 10
	MaxHistoryWindow     = 15

	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
	MaxTemperature     = 2.0
)

type GeneratorConfig struct {
	HistoryWindow int
	Timeout       time.Duration
	// Params overrides the decoding parameters. Nil means 300 tokens at
	// temperature 0.7; a non-positive MaxTokens still takes the default.
	Params        *llm.Params
	// Rand picks fallback replies. Nil means a time-seeded source.
	Rand          *rand.Rand
	Observer      GenerationObserver
}

// GenerationObserver receives one call per backend completion attempt.
type GenerationObserver interface {
	ObserveLLMRequest(provider, status string, dur time.Duration)
	// ObserveAbandonedLLMCall gets +1 when a timed-out call is left running
	// and -1 once that call finally returns.
	ObserveAbandonedLLMCall(provider string, delta int)
}

const (
	callRunning int32 = iota
	callFinished
	callAbandoned
)

// Generator produces a model reply for turns the Matcher did not answer, and
// always returns usable text.
type Generator struct {
	backend llm.Backend
	catalog *Catalog
	window  int
	timeout time.Duration
	params  llm.Params

	rngMu sync.Mutex
	rng   *rand.Rand

	observer GenerationObserver
	log      *logger.Logger
}

// NewGenerator accepts a nil backend; every call then takes the fallback path.
func NewGenerator(backend llm.Backend, catalog *Catalog, cfg GeneratorConfig, baseLog *logger.Logger) *Generator {
	window := cfg.HistoryWindow
	if window == 0 {
		window = DefaultHistoryWindow
	}
	if window < MinHistoryWindow {
		window = MinHistoryWindow
	}
	if window > MaxHistoryWindow {
		window = MaxHistoryWindow
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	params := llm.Params{MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}
	if cfg.Params != nil {
		if cfg.Params.MaxTokens > 0 {
			params.MaxTokens = cfg.Params.MaxTokens
		}
		params.Temperature = min(max(cfg.Params.Temperature, 0), MaxTemperature)
	}
	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	provider := "none"
	if backend != nil {
		provider = backend.Provider()
	}
	return &Generator{
		backend:  backend,
		catalog:  catalog,
		window:   window,
		timeout:  timeout,
		params:   params,
		rng:      rng,
		observer: cfg.Observer,
		log:      baseLog.With("service", "ChatbotGenerator", "provider", provider),
	}
}

func (g *Generator) HistoryWindow() int { return g.window }

// Generate never returns an error: backend errors, timeouts, a missing backend
// and blank output all resolve to a reply from the role's fallback pool.
func (g *Generator) Generate(ctx context.Context, history []*Message, tc TurnContext) string {
	role := tc.Role.OrDefault()
	if g.backend == nil {
		g.log.Debug("no llm backend configured, using fallback", "role", role)
		return g.Fallback(role)
	}

	start := time.Now()
	text, err := g.complete(ctx, g.BuildMessages(history, tc))
	g.observe(err, time.Since(start))
	if err != nil {
		g.log.Warn("llm completion failed, using fallback", "role", role, "error", err)
		return g.Fallback(role)
	}
	if strings.TrimSpace(text) == "" {
		g.log.Warn("llm returned blank text, using fallback", "role", role)
		return g.Fallback(role)
	}
	return strings.TrimSpace(text)
}

func (g *Generator) observe(err error, dur time.Duration) {
	if g.observer == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	g.observer.ObserveLLMRequest(g.backend.Provider(), status, dur)
}

// complete bounds the backend call by the configured timeout even if the
// backend ignores context cancellation. Such a call keeps its goroutine until
// the backend returns; it is counted as abandoned until then.
func (g *Generator) complete(ctx context.Context, msgs []llm.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	var state atomic.Int32
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("llm backend panic: %v", r)}
			}
			if !state.CompareAndSwap(callRunning, callFinished) {
				g.log.Info("abandoned llm call returned", "elapsed_ms", time.Since(start).Milliseconds())
				g.trackAbandoned(-1)
			}
		}()
		text, err := g.backend.Complete(callCtx, msgs, g.params)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-callCtx.Done():
		// counted before the swap so the gauge never dips below zero
		g.trackAbandoned(1)
		if state.CompareAndSwap(callRunning, callAbandoned) {
			g.log.Warn("llm call still running after timeout, abandoning it", "timeout", g.timeout.String())
		} else {
			g.trackAbandoned(-1)
		}
		return "", fmt.Errorf("llm completion: %w", callCtx.Err())
	}
}

func (g *Generator) trackAbandoned(delta int) {
	if g.observer != nil {
		g.observer.ObserveAbandonedLLMCall(g.backend.Provider(), delta)
	}
}

// BuildMessages returns exactly one system message followed by the newest
// window user/assistant messages in their original order.
func (g *Generator) BuildMessages(history []*Message, tc TurnContext) []llm.Message {
	turns := make([]*Message, 0, len(history))
	for _, m := range history {
		if m == nil {
			continue
		}
		if m.Role == domain.MessageRoleUser || m.Role == domain.MessageRoleAssistant {
			turns = append(turns, m)
		}
	}
	if len(turns) > g.window {
		turns = turns[len(turns)-g.window:]
	}

	out := make([]llm.Message, 0, len(turns)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: g.systemPrompt(tc)})
	for _, m := range turns {
		role := llm.RoleUser
		if m.Role == domain.MessageRoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

func (g *Generator) systemPrompt(tc TurnContext) string {
	rc := g.catalog.For(tc.Role)
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(g.catalog.BasePrompt))
	if p := strings.TrimSpace(rc.SystemPrompt); p != "" {
		sb.WriteString("\n\n")
		sb.WriteString(p)
	}

	var facts []string
	if tc.CourseInfo != nil {
		facts = append(facts, fmt.Sprintf("The user is looking at the course %q (%d lectures, passing score %d%%).",
			tc.CourseInfo.Title, tc.CourseInfo.LectureCount, tc.CourseInfo.PassingScore))
	} else if tc.CourseID != "" {
		facts = append(facts, fmt.Sprintf("The user is looking at course %s.", tc.CourseID))
	}
	if tc.UserProgress != nil {
		facts = append(facts, fmt.Sprintf("They have completed %d of %d videos (%d%%); final quiz passed: %t.",
			tc.UserProgress.CompletedVideos, tc.UserProgress.TotalVideos, tc.UserProgress.PercentComplete, tc.UserProgress.QuizPassed))
	}
	if tc.CurrentPage != "" {
		facts = append(facts, fmt.Sprintf("Current page: %s.", tc.CurrentPage))
	}
	if len(facts) > 0 {
		sb.WriteString("\n\nContext:\n")
		sb.WriteString(strings.Join(facts, "\n"))
	}
	if g.catalog.SupportChannel != "" {
		sb.WriteString("\n\nIf you cannot help, point the user to ")
		sb.WriteString(g.catalog.SupportChannel)
		sb.WriteString(".")
	}
	return sb.String()
}

// Fallback draws uniformly from the role's pool.
func (g *Generator) Fallback(role domain.Role) string {
	pool := g.catalog.For(role).Fallbacks
	g.rngMu.Lock()
	i := g.rng.IntN(len(pool))
	g.rngMu.Unlock()
	return pool[i]
}
