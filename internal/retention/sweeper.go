// Package retention removes long-expired magic links. Links are kept
// indefinitely by default for audit; the sweeper only runs when a retention
// window is configured.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daniyarbek/magic-link-auth/internal/metrics"
	"github.com/daniyarbek/magic-link-auth/internal/repository"
	"github.com/robfig/cron/v3"
)

type Sweeper struct {
	links     repository.LinkRepository
	logger    *slog.Logger
	schedule  cron.Schedule
	retention time.Duration
	now       func() time.Time
}

// NewSweeper parses the cron expression (standard five-field format) and
// returns a sweeper that purges links whose expiry is older than retention.
func NewSweeper(links repository.LinkRepository, logger *slog.Logger, cronExpr string, retention time.Duration) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse retention cron %q: %w", cronExpr, err)
	}
	return &Sweeper{
		links:     links,
		logger:    logger.With("component", "retention"),
		schedule:  schedule,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("retention sweeper started", "retention", s.retention)

	for {
		next := s.schedule.Next(s.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("retention sweeper shut down")
			return
		case <-timer.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single purge cycle. Errors are logged, never fatal: the links
// are only audit residue and the next cycle retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	purged, err := s.links.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "retention sweep", "error", err)
		return
	}
	if purged > 0 {
		metrics.LinksPurgedTotal.Add(float64(purged))
		s.logger.InfoContext(ctx, "retention sweep purged links", "count", purged, "cutoff", cutoff)
	}
}
