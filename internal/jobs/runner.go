package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"contentmaker/internal/domain"
)

// Pipeline performs the generation steps for one job inside dir, the job's
// private directory key, and returns the storage key of the artifact.
type Pipeline interface {
	Generate(ctx context.Context, job domain.Job, req domain.Request, dir string) (string, error)
}

// Workspace provides per-job directories and artifact checks.
type Workspace interface {
	CreateJobDir(ctx context.Context, jobID string) (string, error)
	Stat(key string) (fs.FileInfo, error)
}

// RunnerConfig bounds background execution.
type RunnerConfig struct {
	Concurrency int
	JobTimeout  time.Duration
}

const shutdownMessage = "interrupted: service shutting down"

// Runner executes jobs on goroutines, at most Concurrency at a time. Every
// job it claims ends in exactly one terminal transition.
type Runner struct {
	store    *Store
	files    Workspace
	pipeline Pipeline
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a runner. Call Shutdown to stop it.
func NewRunner(store *Store, files Workspace, pipeline Pipeline, cfg RunnerConfig, logger zerolog.Logger) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:    store,
		files:    files,
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		timeout:  cfg.JobTimeout,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Schedule implements Scheduler.
func (r *Runner) Schedule(job domain.Job, req domain.Request) <-chan domain.Job {
	done := make(chan domain.Job, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.finish(job.ID, done, func() (domain.Job, error) { return r.store.Abandon(job.ID, shutdownMessage) })
		return done
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		r.run(job.ID, req, done)
	}()
	return done
}

func (r *Runner) run(id string, req domain.Request, done chan<- domain.Job) {
	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		r.finish(id, done, func() (domain.Job, error) { return r.store.Abandon(id, shutdownMessage) })
		return
	}
	defer r.sem.Release(1)
	if r.ctx.Err() != nil {
		r.finish(id, done, func() (domain.Job, error) { return r.store.Abandon(id, shutdownMessage) })
		return
	}

	job, err := r.store.MarkProcessing(id)
	if err != nil {
		r.logger.Warn().Err(err).Str("job_id", id).Msg("worker: cannot claim job")
		close(done)
		return
	}
	r.logger.Info().Str("job_id", id).Str("content_type", string(job.Kind)).Msg("worker: picked job")

	start := time.Now()
	location, genErr := r.execute(job, req)
	if genErr != nil {
		r.logger.Error().Err(genErr).Str("job_id", id).Dur("elapsed", time.Since(start)).Msg("worker: job failed")
		message := genErr.Error()
		if r.ctx.Err() != nil {
			message = shutdownMessage
		}
		r.finish(id, done, func() (domain.Job, error) { return r.store.Fail(id, message) })
		return
	}
	r.logger.Info().Str("job_id", id).Str("result", location).Dur("elapsed", time.Since(start)).Msg("worker: job completed")
	r.finish(id, done, func() (domain.Job, error) { return r.store.Complete(id, location) })
}

// finish applies the terminal transition and publishes the snapshot.
func (r *Runner) finish(id string, done chan<- domain.Job, transition func() (domain.Job, error)) {
	defer close(done)
	snap, err := transition()
	if err != nil {
		r.logger.Warn().Err(err).Str("job_id", id).Msg("worker: terminal transition rejected")
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
	}
	done <- snap
}

// execute runs the pipeline, converting panics, cancellation and a missing
// artifact into errors.
func (r *Runner) execute(job domain.Job, req domain.Request) (location string, err error) {
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Str("job_id", job.ID).Bytes("stack", debug.Stack()).Msgf("worker: panic: %v", p)
			location, err = "", fmt.Errorf("internal error: %v", p)
		}
	}()

	dir, err := r.files.CreateJobDir(ctx, job.ID)
	if err != nil {
		return "", domain.StepError("prepare output directory", err)
	}
	location, err = r.pipeline.Generate(ctx, job, req, dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w (%v)", err, ctxErr)
		}
		return "", err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("generation aborted: %w", ctxErr)
	}
	if location == "" {
		return "", errors.New("generation reported success without an output file")
	}
	if _, statErr := r.files.Stat(location); statErr != nil {
		return "", fmt.Errorf("generation reported success, but output file is missing: %w", statErr)
	}
	return location, nil
}

// Shutdown stops accepting work, cancels running jobs and waits for them to
// record their terminal state or for ctx to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	waited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
