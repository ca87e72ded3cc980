package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
)

func newJob(t *testing.T, id string, created time.Time) *domain.Job {
	t.Helper()
	job, err := domain.NewJob(id, articleRequest("volcanoes"), id, created)
	require.NoError(t, err)
	return job
}

func TestStoreCreateGet(t *testing.T) {
	s := NewStore(infra.NewFixedClock(epoch))
	require.NoError(t, s.Create(newJob(t, "a", epoch)))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)

	assert.ErrorIs(t, s.Create(newJob(t, "a", epoch)), domain.ErrDuplicateJob)
	_, err = s.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreSnapshotsAreCopies(t *testing.T) {
	s := NewStore(infra.NewFixedClock(epoch))
	require.NoError(t, s.Create(newJob(t, "a", epoch)))

	got, _ := s.Get("a")
	got.Status = domain.JobStatusCompleted
	got.ResultLocation = "forged"

	again, _ := s.Get("a")
	assert.Equal(t, domain.JobStatusPending, again.Status)
	assert.Empty(t, again.ResultLocation)
}

func TestStoreTransitions(t *testing.T) {
	clock := infra.NewFixedClock(epoch)
	s := NewStore(clock)
	require.NoError(t, s.Create(newJob(t, "a", epoch)))

	_, err := s.Complete("a", "a/article.txt")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "cannot skip processing")

	clock.Advance(time.Second)
	job, err := s.MarkProcessing("a")
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Second), *job.StartedAt)

	clock.Advance(time.Second)
	job, err = s.Complete("a", "a/article.txt")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, "a/article.txt", job.ResultLocation)
	assert.Empty(t, job.Error)

	_, err = s.Fail("a", "late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	final, _ := s.Get("a")
	assert.Equal(t, domain.JobStatusCompleted, final.Status)

	_, err = s.MarkProcessing("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreListFiltersAndOrders(t *testing.T) {
	s := NewStore(infra.NewFixedClock(epoch))
	require.NoError(t, s.Create(newJob(t, "old", epoch)))
	require.NoError(t, s.Create(newJob(t, "mid", epoch.Add(time.Minute))))
	require.NoError(t, s.Create(newJob(t, "new", epoch.Add(2*time.Minute))))
	_, err := s.MarkProcessing("mid")
	require.NoError(t, err)

	all := s.List(Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[2].ID)

	processing := s.List(Filter{Status: domain.JobStatusProcessing})
	require.Len(t, processing, 1)
	assert.Equal(t, "mid", processing[0].ID)

	assert.Len(t, s.List(Filter{Limit: 2}), 2)
	assert.Empty(t, s.List(Filter{Kind: domain.KindMusic}))
}

func TestStoreCreatedBeforeAndDelete(t *testing.T) {
	s := NewStore(infra.NewFixedClock(epoch))
	require.NoError(t, s.Create(newJob(t, "a", epoch)))
	require.NoError(t, s.Create(newJob(t, "b", epoch.Add(time.Hour))))

	assert.Equal(t, []string{"a"}, s.CreatedBefore(epoch.Add(30*time.Minute)))
	require.NoError(t, s.Delete("a"))
	assert.ErrorIs(t, s.Delete("a"), domain.ErrNotFound)
	assert.False(t, s.Has("a"))
	assert.Equal(t, 1, s.Len())
}

func TestStoreConcurrentTransitions(t *testing.T) {
	s := NewStore(infra.SystemClock{})
	require.NoError(t, s.Create(newJob(t, "a", epoch)))

	var wg sync.WaitGroup
	wins := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.MarkProcessing("a"); err == nil {
				wins <- struct{}{}
			}
			_, _ = s.Get("a")
		}()
	}
	wg.Wait()
	close(wins)
	assert.Len(t, wins, 1, "exactly one claim must succeed")
}

func TestStoreJournalOrder(t *testing.T) {
	fj := &fakeJournal{}
	w := NewJournalWriter(fj, zerolog.Nop())
	s := NewStore(infra.NewFixedClock(epoch), WithJournal(w))

	require.NoError(t, s.Create(newJob(t, "a", epoch)))
	_, _ = s.MarkProcessing("a")
	_, _ = s.Fail("a", "boom")
	require.NoError(t, s.Delete("a"))
	assert.Equal(t, 4, w.Pending())

	w.Flush(context.Background())
	assert.Equal(t, []journalCall{
		{op: "save", id: "a", status: domain.JobStatusPending},
		{op: "save", id: "a", status: domain.JobStatusProcessing},
		{op: "save", id: "a", status: domain.JobStatusFailed},
		{op: "delete", id: "a"},
	}, fj.snapshot())
	assert.Zero(t, w.Pending())
}

func TestJournalWriterRunDrainsOnCancel(t *testing.T) {
	fj := &fakeJournal{}
	w := NewJournalWriter(fj, zerolog.Nop())
	s := NewStore(infra.NewFixedClock(epoch), WithJournal(w))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, s.Create(newJob(t, "a", epoch)))
	cancel()
	require.NoError(t, <-done)
	assert.NotEmpty(t, fj.snapshot())
	assert.Zero(t, w.Pending())
}

func TestStoreRestoreSkipsExisting(t *testing.T) {
	s := NewStore(infra.NewFixedClock(epoch))
	require.NoError(t, s.Create(newJob(t, "a", epoch)))
	n := s.Restore([]domain.Job{*newJob(t, "a", epoch), *newJob(t, "b", epoch), {}})
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, s.Len())
}
