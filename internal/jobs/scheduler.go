package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"couponme/api/internal/config"
	"couponme/api/internal/metrics"
)

const runTimeout = 5 * time.Minute

type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type OrphanPurger interface {
	PurgeOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

// Scheduler runs the maintenance jobs: expired session cleanup and removal
// of uploaded images no coupon ever referenced.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.JobsConfig
	sessions SessionPurger
	uploads  OrphanPurger
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewScheduler(cfg config.JobsConfig, sessions SessionPurger, uploads OrphanPurger, m *metrics.Metrics, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		sessions: sessions,
		uploads:  uploads,
		metrics:  m,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.SessionPurgeSpec, func() { s.run("session_purge", s.PurgeSessions) }); err != nil {
		return fmt.Errorf("schedule session purge: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.OrphanUploadSpec, func() { s.run("orphan_uploads", s.PurgeOrphanUploads) }); err != nil {
		return fmt.Errorf("schedule orphan upload purge: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits briefly for running jobs to finish.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("maintenance jobs still running at shutdown")
	}
}

func (s *Scheduler) PurgeSessions(ctx context.Context) error {
	removed, err := s.sessions.PurgeExpiredSessions(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int64("removed", removed).Msg("expired sessions purged")
	return nil
}

func (s *Scheduler) PurgeOrphanUploads(ctx context.Context) error {
	removed, err := s.uploads.PurgeOrphans(ctx, s.cfg.OrphanUploadAge)
	if err != nil {
		return err
	}
	s.log.Info().Int("removed", removed).Msg("orphan uploads purged")
	return nil
}

func (s *Scheduler) run(job string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.metrics.JobRun(job, "error")
		s.log.Error().Err(err).Str("job", job).Msg("maintenance job failed")
		return
	}
	s.metrics.JobRun(job, "ok")
}
