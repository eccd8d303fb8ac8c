package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/observability"
)

// ExpiredSessionPurger is implemented by session stores that do not expire
// entries on their own.
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context) (int, error)
}

// Sweeper periodically drops consumed tokens past their retention and
// expired in-memory sessions.
type Sweeper struct {
	guard    auth.ReplayGuard
	sessions ExpiredSessionPurger
	interval time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewSweeper builds a sweeper. sessions may be nil.
func NewSweeper(guard auth.ReplayGuard, sessions ExpiredSessionPurger, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		guard:    guard,
		sessions: sessions,
		interval: interval,
		metrics:  metrics,
		logger:   logger.Named("sweeper"),
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single eviction pass. Failures are logged and retried on
// the next tick.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	evicted, err := s.guard.EvictExpired(ctx)
	if err != nil {
		s.logger.Warn("replay eviction failed", zap.Error(err))
	}
	s.metrics.RecordReplayEvictions(evicted)

	purged := 0
	if s.sessions != nil {
		purged, err = s.sessions.DeleteExpired(ctx)
		if err != nil {
			s.logger.Warn("session purge failed", zap.Error(err))
		}
	}

	if evicted > 0 || purged > 0 {
		s.logger.Debug("sweep complete", zap.Int("tokens_evicted", evicted), zap.Int("sessions_purged", purged))
	}
}
