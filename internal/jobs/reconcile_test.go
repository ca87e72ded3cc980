package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
)

func TestReconcileFailsUnfinishedJobs(t *testing.T) {
	pending := *newJob(t, "pending", epoch)
	processing := *newJob(t, "processing", epoch)
	require.NoError(t, processing.Start(epoch))
	done := *newJob(t, "done", epoch)
	require.NoError(t, done.Start(epoch))
	require.NoError(t, done.Complete("done/article.txt", epoch))

	fj := &fakeJournal{loaded: []domain.Job{pending, processing, done}}
	clock := infra.NewFixedClock(epoch.Add(time.Hour))
	store := NewStore(clock, WithJournal(NewJournalWriter(fj, zerolog.Nop())))

	restored, abandoned, err := Reconcile(context.Background(), store, fj, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, restored)
	assert.Equal(t, 2, abandoned)

	for _, id := range []string{"pending", "processing"} {
		job, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, job.Status, id)
		assert.Equal(t, RestartMessage, job.Error, id)
	}
	kept, err := store.Get("done")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, kept.Status)
	assert.Equal(t, "done/article.txt", kept.ResultLocation)
}

func TestReconcileReportsLoadError(t *testing.T) {
	fj := &fakeJournal{err: errors.New("connection refused")}
	_, _, err := Reconcile(context.Background(), NewStore(nil), fj, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
