package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
	"contentmaker/internal/storage"
)

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type pipelineFunc func(ctx context.Context, job domain.Job, req domain.Request, dir string) (string, error)

func (f pipelineFunc) Generate(ctx context.Context, job domain.Job, req domain.Request, dir string) (string, error) {
	return f(ctx, job, req, dir)
}

// writingPipeline writes a text artifact mentioning the topic.
func writingPipeline(files *storage.FileStore) pipelineFunc {
	return func(ctx context.Context, job domain.Job, req domain.Request, dir string) (string, error) {
		return files.Write(ctx, dir+"/article.txt", []byte("All about "+req.Topic))
	}
}

type harness struct {
	clock      *infra.FixedClock
	store      *Store
	files      *storage.FileStore
	runner     *Runner
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, p Pipeline, concurrency int) *harness {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	clock := infra.NewFixedClock(epoch)
	store := NewStore(clock)
	if p == nil {
		p = writingPipeline(files)
	}
	runner := NewRunner(store, files, p, RunnerConfig{Concurrency: concurrency, JobTimeout: 5 * time.Second}, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Shutdown(ctx)
	})
	return &harness{
		clock:      clock,
		store:      store,
		files:      files,
		runner:     runner,
		dispatcher: NewDispatcher(store, runner, clock, zerolog.Nop()),
	}
}

func articleRequest(topic string) domain.Request {
	return domain.Request{Topic: topic, Spec: &domain.ArticleSpec{}}
}

func waitDone(t *testing.T, done <-chan domain.Job) domain.Job {
	t.Helper()
	select {
	case job, ok := <-done:
		require.True(t, ok, "done closed without a terminal snapshot")
		return job
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job")
		return domain.Job{}
	}
}

type journalCall struct {
	op     string
	id     string
	status domain.JobStatus
}

type fakeJournal struct {
	mu     sync.Mutex
	calls  []journalCall
	loaded []domain.Job
	err    error
}

func (f *fakeJournal) Save(_ context.Context, job domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, journalCall{op: "save", id: job.ID, status: job.Status})
	return f.err
}

func (f *fakeJournal) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, journalCall{op: "delete", id: id})
	return f.err
}

func (f *fakeJournal) LoadAll(context.Context) ([]domain.Job, error) {
	return f.loaded, f.err
}

func (f *fakeJournal) snapshot() []journalCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]journalCall(nil), f.calls...)
}
