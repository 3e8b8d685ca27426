package state

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired sessions are reclaimed when no
// interval is configured.
const DefaultSweepInterval = 60 * time.Second

// Sweeper periodically removes sessions idle past their TTL.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc // set once the loop is started
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper for the registry.
func NewSweeper(registry *Registry, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		registry: registry,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the sweep loop. Calls after the first are no-ops.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("session sweeper started",
		"interval", s.interval,
		"ttl", s.registry.TTL(),
	)
}

// Stop ends the sweep loop and waits for an in-progress sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("session sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce runs a single sweep and returns the removed session ids.
func (s *Sweeper) SweepOnce() []string {
	start := time.Now()

	removed, err := s.registry.Sweep(s.registry.now())
	if err != nil {
		s.logger.Warn("session sweep had close failures", "error", err)
	}
	if len(removed) > 0 {
		s.logger.Info("expired sessions removed",
			"count", len(removed),
			"remaining", s.registry.Len(),
			"duration", time.Since(start),
		)
	}
	return removed
}
