package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is how long the Scheduler waits after the last trigger.
const DefaultDelay = time.Second

const writeTimeout = 30 * time.Second

// Snapshotter performs one snapshot run.
type Snapshotter interface {
	Write(ctx context.Context) error
}

// Scheduler debounces snapshot writes. Every Trigger re-arms a single timer,
// so a burst of mutations produces one write once the burst goes quiet. Writes
// never overlap. The Scheduler is created once at startup and closed on
// shutdown; Close flushes a pending write.
type Scheduler struct {
	target  Snapshotter
	delay   time.Duration
	logger  *zap.Logger
	enabled atomic.Bool

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	lastErr error

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func NewScheduler(target Snapshotter, delay time.Duration, enabled bool, logger *zap.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{target: target, delay: delay, logger: logger}
	s.enabled.Store(enabled)
	return s
}

// Enabled reports whether Trigger schedules writes.
func (s *Scheduler) Enabled() bool {
	return s.enabled.Load()
}

// Trigger schedules a write after the debounce delay, replacing any pending one.
// It is a no-op when the Scheduler is disabled or closed.
func (s *Scheduler) Trigger() {
	if !s.enabled.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}

	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		if s.timer == t {
			s.timer = nil
		}
		s.mu.Unlock()
		s.run()
	})
	s.timer = t
}

// Flush cancels any pending write and writes immediately.
func (s *Scheduler) Flush() error {
	s.mu.Lock()
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
	s.mu.Unlock()
	return s.run()
}

// Err returns the result of the most recent write.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close stops accepting triggers, runs a pending write right away and waits
// for any write in flight, or for ctx to be done.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pending := s.timer != nil && s.timer.Stop()
	s.timer = nil
	s.mu.Unlock()

	if pending {
		s.run()
		s.wg.Done()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	start := time.Now()
	err := s.target.Write(ctx)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("snapshot write failed", zap.Error(err))
		return err
	}
	s.logger.Debug("snapshot written", zap.Duration("took", time.Since(start)))
	return nil
}
