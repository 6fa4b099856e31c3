package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

const (
	DefaultExpiryAge      = 30 * 24 * time.Hour
	DefaultExpiryInterval = time.Hour
)

// Sweeper deactivates sessions idle for longer than age.
type Sweeper interface {
	ExpireOlderThan(ctx context.Context, age time.Duration) (int64, error)
	ActiveCount(ctx context.Context) (int64, error)
}

type SweepObserver interface {
	ObserveExpirySweep(expired, active int64)
}

type ExpiryConfig struct {
	Age      time.Duration
	Interval time.Duration
	Observer SweepObserver
}

// ExpiryWorker periodically expires idle chatbot sessions. Expired sessions
// are only deactivated, never deleted.
type ExpiryWorker struct {
	sweeper  Sweeper
	age      time.Duration
	interval time.Duration
	observer SweepObserver
	log      *logger.Logger
}

func NewExpiryWorker(baseLog *logger.Logger, sweeper Sweeper, cfg ExpiryConfig) *ExpiryWorker {
	age := cfg.Age
	if age <= 0 {
		age = DefaultExpiryAge
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultExpiryInterval
	}
	return &ExpiryWorker{
		sweeper:  sweeper,
		age:      age,
		interval: interval,
		observer: cfg.Observer,
		log:      baseLog.With("component", "ExpiryWorker"),
	}
}

// Start runs the loop in a goroutine. The returned channel closes once the
// loop has exited after ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return done
}

// Run sweeps once immediately, then every interval until ctx is done.
func (w *ExpiryWorker) Run(ctx context.Context) {
	w.log.Info("Starting session expiry worker", "age", w.age.String(), "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Session expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep never lets a failure or panic stop the loop.
func (w *ExpiryWorker) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Session expiry panic", "panic", fmt.Sprint(r))
		}
	}()

	n, err := w.sweeper.ExpireOlderThan(ctx, w.age)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("Session expiry failed", "error", err)
		}
		return
	}
	active, err := w.sweeper.ActiveCount(ctx)
	if err != nil {
		w.log.Debug("Active session count failed", "error", err)
		active = -1
	}
	if w.observer != nil {
		w.observer.ObserveExpirySweep(n, active)
	}
	if n > 0 {
		w.log.Info("Expired idle sessions", "count", n)
	}
}
