package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
)

// Scheduler hands a pending job to background execution without blocking.
// The returned channel yields the job's terminal snapshot once and is then
// closed; it is closed without a value if the record disappears first.
type Scheduler interface {
	Schedule(job domain.Job, req domain.Request) <-chan domain.Job
}

// Ticket is returned for every accepted request.
type Ticket struct {
	ID     string
	Status domain.JobStatus
	Done   <-chan domain.Job
}

// Dispatcher validates requests, records them and schedules their work.
type Dispatcher struct {
	store     *Store
	scheduler Scheduler
	clock     infra.Clock
	logger    zerolog.Logger
	newID     func() string
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(store *Store, scheduler Scheduler, clock infra.Clock, logger zerolog.Logger) *Dispatcher {
	if clock == nil {
		clock = infra.SystemClock{}
	}
	return &Dispatcher{
		store:     store,
		scheduler: scheduler,
		clock:     clock,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Submit validates req, inserts a pending job and schedules it. Validation
// failures return *domain.ValidationError and create nothing.
func (d *Dispatcher) Submit(ctx context.Context, req domain.Request) (Ticket, error) {
	if err := ctx.Err(); err != nil {
		return Ticket{}, err
	}
	if err := req.Validate(); err != nil {
		return Ticket{}, err
	}

	id := d.newID()
	job, err := domain.NewJob(id, req, id, d.clock.Now())
	if err != nil {
		return Ticket{}, fmt.Errorf("dispatcher: build job: %w", err)
	}
	if err := d.store.Create(job); err != nil {
		return Ticket{}, fmt.Errorf("dispatcher: %w", err)
	}

	done := d.scheduler.Schedule(job.Clone(), req)
	d.logger.Info().
		Str("job_id", id).
		Str("content_type", string(job.Kind)).
		Msg("dispatcher: job accepted")

	return Ticket{ID: id, Status: domain.JobStatusPending, Done: done}, nil
}
