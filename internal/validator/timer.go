package validator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mbd888/txguard/internal/logging"
)

// Timer periodically evicts old history from a Service.
type Timer struct {
	service   *Service
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
	stop      chan struct{}
	running   atomic.Bool
}

// NewTimer creates an eviction timer.
func NewTimer(service *Service, interval, retention time.Duration, logger *slog.Logger) *Timer {
	return &Timer{
		service:   service,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
}

// Running reports whether the timer loop is actively running.
func (t *Timer) Running() bool {
	return t.running.Load()
}

// Start begins the periodic eviction loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.safeRun(ctx)
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) safeRun(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in eviction timer", "panic", fmt.Sprint(r))
		}
	}()

	t.service.Evict(logging.WithLogger(ctx, t.logger), t.now(), t.retention)
}
