package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendance-backend/internal/domain"
)

// LocationResolver the subset of Resolver the tracker needs.
type LocationResolver interface {
	CompleteLocation(ctx context.Context) (domain.GeoLocation, error)
}

// SamplePoster ships location samples to the server and marks tracking
// stopped.
type SamplePoster interface {
	PostSample(ctx context.Context, attendanceID string, loc domain.GeoLocation) error
	StopTracking(ctx context.Context, attendanceID string) error
}

const (
	defaultTrackInterval = 30 * time.Second
	sampleTimeout        = 15 * time.Second
)

// LocationTracker posts one location sample per interval for the attendance
// record bound at Start. A failed tick is logged and skipped; the next tick
// fires regardless. At most one tracking session runs at a time.
type LocationTracker struct {
	resolver LocationResolver
	poster   SamplePoster
	logger   *zap.Logger

	mu           sync.Mutex
	interval     time.Duration
	attendanceID string
	active       bool
	stopCh       chan struct{}
}

func NewLocationTracker(resolver LocationResolver, poster SamplePoster, interval time.Duration, logger *zap.Logger) *LocationTracker {
	if interval <= 0 {
		interval = defaultTrackInterval
	}
	return &LocationTracker{
		resolver: resolver,
		poster:   poster,
		interval: interval,
		logger:   logger,
	}
}

// Active reports whether a tracking session is running.
func (t *LocationTracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// AttendanceID the record the running session is bound to, empty when idle.
func (t *LocationTracker) AttendanceID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attendanceID
}

// Start binds the tracker to an attendance record, takes one sample
// immediately and then one per interval. Starting while already active is a
// logged no-op; the first session keeps running.
func (t *LocationTracker) Start(attendanceID string) {
	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		t.logger.Info("Location tracking already active, ignoring start",
			zap.String("attendanceId", attendanceID),
		)
		return
	}
	t.active = true
	t.attendanceID = attendanceID
	stop := make(chan struct{})
	t.stopCh = stop
	interval := t.interval
	t.mu.Unlock()

	t.logger.Info("Location tracking started",
		zap.String("attendanceId", attendanceID),
		zap.Duration("interval", interval),
	)
	go t.loop(stop, interval, true)
}

// Stop tears the timer down first so no tick can race the stop, then tells
// the server best-effort and clears the binding either way. Stopping an idle
// tracker is a no-op.
func (t *LocationTracker) Stop() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	close(t.stopCh)
	t.stopCh = nil
	attendanceID := t.attendanceID
	t.active = false
	t.attendanceID = ""
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()
	if err := t.poster.StopTracking(ctx, attendanceID); err != nil {
		t.logger.Warn("Failed to mark tracking stopped on server",
			zap.String("attendanceId", attendanceID),
			zap.Error(err),
		)
	}
	t.logger.Info("Location tracking stopped", zap.String("attendanceId", attendanceID))
}

// SetInterval rearms a running timer with the new interval without losing
// the bound attendance record. No immediate sample is taken on rearm.
func (t *LocationTracker) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = interval
	if !t.active {
		return
	}
	close(t.stopCh)
	stop := make(chan struct{})
	t.stopCh = stop
	go t.loop(stop, interval, false)
}

func (t *LocationTracker) loop(stop chan struct{}, interval time.Duration, immediate bool) {
	if immediate {
		t.sample()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.sample()
		}
	}
}

// sample resolves and posts one location. Errors end this tick only.
func (t *LocationTracker) sample() {
	t.mu.Lock()
	attendanceID := t.attendanceID
	active := t.active
	t.mu.Unlock()
	if !active || attendanceID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()

	loc, err := t.resolver.CompleteLocation(ctx)
	if err != nil {
		t.logger.Warn("Location sample skipped, position unavailable",
			zap.String("attendanceId", attendanceID),
			zap.Error(err),
		)
		return
	}
	if err := t.poster.PostSample(ctx, attendanceID, loc); err != nil {
		t.logger.Warn("Failed to post location sample",
			zap.String("attendanceId", attendanceID),
			zap.Error(err),
		)
	}
}
