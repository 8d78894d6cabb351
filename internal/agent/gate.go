package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendance-backend/internal/domain"
)

// StatusFetcher fetches the server-side status gate for the current
// employee/day.
type StatusFetcher interface {
	Status(ctx context.Context) (domain.AttendanceStatus, error)
}

const defaultGateInterval = 30 * time.Second

// StatusGate keeps a local snapshot of the attendance status gate, refreshed
// on a fixed interval and on demand when the app regains focus. A failed
// refresh keeps the last known snapshot so the UI never flickers to an
// unknown state on a transient network error.
type StatusGate struct {
	fetcher  StatusFetcher
	interval time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	current domain.AttendanceStatus
	known   bool
	stopCh  chan struct{}
	running bool
}

func NewStatusGate(fetcher StatusFetcher, interval time.Duration, logger *zap.Logger) *StatusGate {
	if interval <= 0 {
		interval = defaultGateInterval
	}
	return &StatusGate{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
	}
}

// Current returns the last known snapshot. The second return is false until
// the first successful refresh.
func (g *StatusGate) Current() (domain.AttendanceStatus, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current, g.known
}

// Refresh fetches the gate once. On failure the previous snapshot stays.
func (g *StatusGate) Refresh(ctx context.Context) error {
	status, err := g.fetcher.Status(ctx)
	if err != nil {
		g.logger.Warn("Status refresh failed, keeping last snapshot", zap.Error(err))
		return err
	}
	g.mu.Lock()
	g.current = status
	g.known = true
	g.mu.Unlock()
	return nil
}

// Start begins periodic refreshing with one immediate refresh. Calling Start
// on a running gate is a no-op.
func (g *StatusGate) Start(ctx context.Context) {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	stop := make(chan struct{})
	g.stopCh = stop
	g.mu.Unlock()

	go g.loop(ctx, stop)
}

// Stop ends periodic refreshing. The last snapshot stays readable.
func (g *StatusGate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return
	}
	close(g.stopCh)
	g.stopCh = nil
	g.running = false
}

func (g *StatusGate) loop(ctx context.Context, stop chan struct{}) {
	_ = g.Refresh(ctx)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = g.Refresh(ctx)
		}
	}
}
