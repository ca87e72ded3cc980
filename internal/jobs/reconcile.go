package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
)

// RestartMessage is recorded on jobs found unfinished at startup.
const RestartMessage = "interrupted: service restarted before the job finished"

// Reconcile restores journaled jobs into store and fails every job that was
// still pending or processing when the previous process stopped. Nothing in
// a new process will ever pick those jobs up again.
func Reconcile(ctx context.Context, store *Store, journal domain.JobJournal, logger zerolog.Logger) (restored, abandoned int, err error) {
	saved, err := journal.LoadAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reconcile: load journal: %w", err)
	}
	restored = store.Restore(saved)

	for _, job := range saved {
		if job.Status.Terminal() {
			continue
		}
		if _, err := store.Abandon(job.ID, RestartMessage); err != nil {
			logger.Warn().Err(err).Str("job_id", job.ID).Msg("reconcile: cannot fail orphaned job")
			continue
		}
		abandoned++
		logger.Info().Str("job_id", job.ID).Str("previous_status", string(job.Status)).Msg("reconcile: failed orphaned job")
	}
	return restored, abandoned, nil
}
