package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
)

type journalOp struct {
	save     *domain.Job
	deleteID string
}

// JournalWriter replays store mutations onto a domain.JobJournal in the order
// they were committed. The store only appends to an in-memory queue under its
// lock; the database round trips happen in Run.
type JournalWriter struct {
	journal domain.JobJournal
	logger  zerolog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending []journalOp
	wake    chan struct{}

	flushMu sync.Mutex
}

// NewJournalWriter creates a writer for journal.
func NewJournalWriter(journal domain.JobJournal, logger zerolog.Logger) *JournalWriter {
	return &JournalWriter{
		journal: journal,
		logger:  logger,
		timeout: 5 * time.Second,
		wake:    make(chan struct{}, 1),
	}
}

func (w *JournalWriter) enqueue(op journalOp) {
	w.mu.Lock()
	w.pending = append(w.pending, op)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run flushes queued operations until ctx is canceled, then drains whatever
// is left.
func (w *JournalWriter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), w.timeout)
			w.Flush(drainCtx)
			cancel()
			return nil
		case <-w.wake:
			w.Flush(ctx)
		}
	}
}

// Flush writes every queued operation. Failures are logged and dropped; the
// in-memory store stays authoritative.
func (w *JournalWriter) Flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	ops := w.pending
	w.pending = nil
	w.mu.Unlock()

	for _, op := range ops {
		opCtx, cancel := context.WithTimeout(ctx, w.timeout)
		var err error
		id := op.deleteID
		if op.save != nil {
			id = op.save.ID
			err = w.journal.Save(opCtx, *op.save)
		} else {
			err = w.journal.Delete(opCtx, op.deleteID)
		}
		cancel()
		if err != nil {
			w.logger.Error().Err(err).Str("job_id", id).Msg("journal: write failed")
		}
	}
}

// Pending returns the number of queued operations.
func (w *JournalWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
