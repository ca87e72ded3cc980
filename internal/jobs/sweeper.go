package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
	"contentmaker/internal/storage"
)

// JobDirs is the filesystem surface the sweeper deletes from.
type JobDirs interface {
	RemoveJobDir(jobID string) error
	JobDirs() ([]storage.DirInfo, error)
}

// SweeperConfig holds the retention policy.
type SweeperConfig struct {
	Retention time.Duration
	Interval  time.Duration
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Records int
	Dirs    int
	Orphans int
	Err     error
}

// Sweeper deletes jobs, and their directories, once they are older than the
// retention window. It is the only component that deletes either.
type Sweeper struct {
	store  *Store
	dirs   JobDirs
	clock  infra.Clock
	cfg    SweeperConfig
	logger zerolog.Logger
}

// NewSweeper creates a sweeper with defaults of 24h retention swept hourly.
func NewSweeper(store *Store, dirs JobDirs, clock infra.Clock, cfg SweeperConfig, logger zerolog.Logger) *Sweeper {
	if clock == nil {
		clock = infra.SystemClock{}
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Sweeper{store: store, dirs: dirs, clock: clock, cfg: cfg, logger: logger}
}

// Run sweeps immediately and then on every interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("retention", s.cfg.Retention).
		Dur("interval", s.cfg.Interval).
		Msg("sweeper: starting")

	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper: stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	res := s.Sweep(ctx)
	ev := s.logger.Debug()
	if res.Records > 0 || res.Orphans > 0 {
		ev = s.logger.Info()
	}
	if res.Err != nil {
		ev = s.logger.Warn().Err(res.Err)
	}
	ev.Int("records", res.Records).Int("dirs", res.Dirs).Int("orphans", res.Orphans).Msg("sweeper: sweep finished")
}

// Sweep performs one pass. Individual failures are logged and collected in
// the result; the pass always continues with the next job.
func (s *Sweeper) Sweep(ctx context.Context) SweepResult {
	var (
		res  SweepResult
		errs []error
	)
	cutoff := s.clock.Now().Add(-s.cfg.Retention)

	for _, id := range s.store.CreatedBefore(cutoff) {
		if ctx.Err() != nil {
			break
		}
		if err := s.store.Delete(id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("delete record %s: %w", id, err))
			continue
		}
		res.Records++
		if err := s.dirs.RemoveJobDir(id); err != nil {
			s.logger.Error().Err(err).Str("job_id", id).Msg("sweeper: remove output directory failed")
			errs = append(errs, fmt.Errorf("remove dir %s: %w", id, err))
			continue
		}
		res.Dirs++
	}

	if ctx.Err() == nil {
		res.Orphans = s.sweepOrphans(cutoff, &errs)
	}
	res.Err = errors.Join(errs...)
	return res
}

// sweepOrphans removes expired directories that no longer have a record,
// e.g. left behind by a process that restarted without a journal.
func (s *Sweeper) sweepOrphans(cutoff time.Time, errs *[]error) int {
	dirs, err := s.dirs.JobDirs()
	if err != nil {
		s.logger.Error().Err(err).Msg("sweeper: list output directories failed")
		*errs = append(*errs, err)
		return 0
	}
	n := 0
	for _, d := range dirs {
		if !d.ModTime.Before(cutoff) || s.store.Has(d.Name) {
			continue
		}
		if err := s.dirs.RemoveJobDir(d.Name); err != nil {
			s.logger.Error().Err(err).Str("dir", d.Name).Msg("sweeper: remove orphan directory failed")
			*errs = append(*errs, fmt.Errorf("remove orphan %s: %w", d.Name, err))
			continue
		}
		n++
	}
	return n
}
