package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"livechat/internal/pkg/logx"
)

const (
	// DefaultSweepInterval is how often the presence sweeper runs.
	DefaultSweepInterval = 60 * time.Second

	// DefaultOfflineThreshold is how long a user must have been inactive to be swept.
	DefaultOfflineThreshold = 2 * time.Minute
)

// Sweeper periodically reasserts the offline state of users that have been inactive longer
// than the threshold. It never touches users flagged online and never emits events.
type Sweeper struct {
	store     PresenceStore
	interval  time.Duration
	threshold time.Duration

	now    func() time.Time
	logger zerolog.Logger
}

// NewSweeper creates a Sweeper. Non-positive durations select the defaults.
func NewSweeper(store PresenceStore, interval, threshold time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if threshold <= 0 {
		threshold = DefaultOfflineThreshold
	}

	return &Sweeper{
		store:     store,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		logger:    logx.Component("PresenceSweeper"),
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Dur("threshold", s.threshold).Msg("Presence sweeper started.")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Presence sweeper stopped.")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("Presence sweep failed")
			}
		}
	}
}

// Sweep runs one pass and returns the number of users touched.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.threshold)

	n, err := s.store.ReassertOffline(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.logger.Debug().Int64("users", n).Time("cutoff", cutoff).Msg("Presence sweep finished")
	return n, nil
}
