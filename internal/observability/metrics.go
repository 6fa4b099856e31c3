package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

// Metrics is a small Prometheus text-format registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	turns        *CounterVec
	turnLatency  *HistogramVec
	llmRequests  *CounterVec
	llmLatency   *HistogramVec
	llmAbandoned *GaugeVec

	sessionsExpired *Counter
	activeSessions  *Gauge

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED"))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Init returns the process-wide registry, or nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("learnlab_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"learnlab_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("learnlab_api_inflight_requests", "In-flight API requests."),
		turns:       NewCounterVec("learnlab_chatbot_turns_total", "Chatbot turns by caller role and reply source.", []string{"role", "source"}),
		turnLatency: NewHistogramVec(
			"learnlab_chatbot_turn_duration_seconds",
			"Chatbot turn latency in seconds by reply source.",
			[]string{"source"},
			[]float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		),
		llmRequests: NewCounterVec("learnlab_llm_requests_total", "Generative backend calls by provider/status.", []string{"provider", "status"}),
		llmLatency: NewHistogramVec(
			"learnlab_llm_request_duration_seconds",
			"Generative backend latency in seconds by provider/status.",
			[]string{"provider", "status"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		),
		llmAbandoned: NewGaugeVec(
			"learnlab_llm_abandoned_calls",
			"Backend calls past their timeout that have not returned yet, by provider.",
			[]string{"provider"},
		),
		sessionsExpired: NewCounter("learnlab_chatbot_sessions_expired_total", "Sessions deactivated by the expiry sweep."),
		activeSessions:  NewGauge("learnlab_chatbot_active_sessions", "Active chatbot sessions at the last sweep."),
		dbStats:         NewGaugeVec("learnlab_db_stats", "Database pool stats.", []string{"metric"}),
		redisUp:         NewGauge("learnlab_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:       NewGauge("learnlab_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.turns, m.turnLatency, m.llmRequests, m.llmLatency, m.llmAbandoned,
		m.sessionsExpired, m.activeSessions,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveChatbotTurn(role, source string, dur time.Duration) {
	if m == nil {
		return
	}
	m.turns.Inc(role, source)
	m.turnLatency.Observe(dur.Seconds(), source)
}

func (m *Metrics) ObserveLLMRequest(provider, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(provider, status)
	m.llmLatency.Observe(dur.Seconds(), provider, status)
}

func (m *Metrics) ObserveAbandonedLLMCall(provider string, delta int) {
	if m == nil {
		return
	}
	m.llmAbandoned.Add(float64(delta), provider)
}

func (m *Metrics) ObserveExpirySweep(expired, active int64) {
	if m == nil {
		return
	}
	m.sessionsExpired.Add(float64(expired))
	if active >= 0 {
		m.activeSessions.Set(float64(active))
	}
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.Cmdable) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.pingRedis(ctx, log, rdb)
			}
		}
	}()
}

func (m *Metrics) pingRedis(ctx context.Context, log *logger.Logger, rdb goredis.Cmdable) {
	start := time.Now()
	if err := rdb.Ping(ctx).Err(); err != nil {
		m.redisUp.Set(0)
		if log != nil {
			log.Warn("metrics: redis ping failed", "error", err)
		}
		return
	}
	m.redisUp.Set(1)
	m.redisPing.Set(time.Since(start).Seconds())
}
