package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentmaker/internal/domain"
	"contentmaker/internal/storage"
)

func TestSweepDeletesExpiredJobsOnly(t *testing.T) {
	h := newHarness(t, nil, 1)
	oldJob, err := h.dispatcher.Submit(context.Background(), articleRequest("old"))
	require.NoError(t, err)
	waitDone(t, oldJob.Done)

	h.clock.Advance(23 * time.Hour)
	fresh, err := h.dispatcher.Submit(context.Background(), articleRequest("fresh"))
	require.NoError(t, err)
	waitDone(t, fresh.Done)

	h.clock.Advance(2 * time.Hour)
	sw := NewSweeper(h.store, h.files, h.clock, SweeperConfig{Retention: 24 * time.Hour}, zerolog.Nop())
	res := sw.Sweep(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 1, res.Dirs)

	_, err = h.store.Get(oldJob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = os.Stat(filepath.Join(h.files.BasePath(), oldJob.ID))
	assert.True(t, os.IsNotExist(err))

	_, err = h.store.Get(fresh.ID)
	assert.NoError(t, err)
	_, err = h.files.Stat(fresh.ID + "/article.txt")
	assert.NoError(t, err)
}

func TestSweepRemovesOrphanDirectories(t *testing.T) {
	h := newHarness(t, nil, 1)
	orphan := filepath.Join(h.files.BasePath(), "left-behind")
	require.NoError(t, os.MkdirAll(orphan, 0o755))
	stale := epoch.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(orphan, stale, stale))

	recent := filepath.Join(h.files.BasePath(), "in-progress-elsewhere")
	require.NoError(t, os.MkdirAll(recent, 0o755))
	require.NoError(t, os.Chtimes(recent, epoch, epoch))

	sw := NewSweeper(h.store, h.files, h.clock, SweeperConfig{Retention: 24 * time.Hour}, zerolog.Nop())
	res := sw.Sweep(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Orphans)

	_, err := os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}

type failingDirs struct {
	storage.FileStore
	failID string
}

func (f *failingDirs) RemoveJobDir(id string) error {
	if id == f.failID {
		return errors.New("permission denied")
	}
	return f.FileStore.RemoveJobDir(id)
}

func TestSweepContinuesAfterRemoveFailure(t *testing.T) {
	h := newHarness(t, nil, 1)
	a, err := h.dispatcher.Submit(context.Background(), articleRequest("a"))
	require.NoError(t, err)
	b, err := h.dispatcher.Submit(context.Background(), articleRequest("b"))
	require.NoError(t, err)
	waitDone(t, a.Done)
	waitDone(t, b.Done)

	h.clock.Advance(25 * time.Hour)
	dirs := &failingDirs{FileStore: *h.files, failID: a.ID}
	sw := NewSweeper(h.store, dirs, h.clock, SweeperConfig{Retention: 24 * time.Hour}, zerolog.Nop())
	res := sw.Sweep(context.Background())

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), a.ID)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 1, res.Dirs)
	assert.Zero(t, h.store.Len())
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil, 1)
	sw := NewSweeper(h.store, h.files, h.clock, SweeperConfig{Retention: time.Hour, Interval: time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
