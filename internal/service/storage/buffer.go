package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/repository"
)

const (
	// DefaultPendingLimit bounds how many unwritten records are kept per backend.
	DefaultPendingLimit = 1000
	// DefaultAttempts is how many times one tick is tried before it is kept as pending.
	DefaultAttempts = 3

	closeTimeout = 5 * time.Second
)

// PersistenceError reports records that could not be written to a backend.
// It never stops a worker; the records stay pending and are retried with the next tick.
type PersistenceError struct {
	Backend string
	Records int
	Pending int
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %d records to %s (%d pending): %v", e.Records, e.Backend, e.Pending, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type BufferOptions struct {
	PendingLimit int
	Attempts     int
	Clock        clock.Clock
	Logger       *logger.Logger
}

// RecordBuffer writes ticks to one repository. Records of failed ticks are kept
// in memory, oldest first, and written ahead of the next tick.
type RecordBuffer struct {
	name     string
	repo     repository.EntryRepository
	pending  []model.AggregationRecord
	limit    int
	attempts int
	dropped  int
	clock    clock.Clock
	logger   *logger.Logger
	mu       sync.Mutex
}

// NewRecordBuffer wraps repo. name identifies the backend in logs and errors.
func NewRecordBuffer(name string, repo repository.EntryRepository, opts BufferOptions) *RecordBuffer {
	if opts.PendingLimit <= 0 {
		opts.PendingLimit = DefaultPendingLimit
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &RecordBuffer{
		name:     name,
		repo:     repo,
		limit:    opts.PendingLimit,
		attempts: opts.Attempts,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// Write stores records together with any pending ones from earlier failed ticks.
// On failure it returns a *PersistenceError and keeps the records pending.
func (b *RecordBuffer) Write(ctx context.Context, records []model.AggregationRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := make([]model.AggregationRecord, 0, len(b.pending)+len(records))
	batch = append(batch, b.pending...)
	batch = append(batch, records...)
	if len(batch) == 0 {
		return nil
	}

	err := retry(ctx, b.clock, b.attempts, func(ctx context.Context) error {
		if len(batch) == 0 {
			return nil
		}
		err := b.repo.InsertBatch(ctx, batch)
		batch = unwritten(batch, err)
		return err
	})
	if err == nil {
		if len(b.pending) > 0 && b.logger != nil {
			b.logger.Info("%s: wrote %d pending records", b.name, len(b.pending))
		}
		b.pending = nil
		return nil
	}

	if over := len(batch) - b.limit; over > 0 {
		batch = batch[over:]
		b.dropped += over
		if b.logger != nil {
			b.logger.Warning("%s: pending limit %d reached, dropped %d oldest records", b.name, b.limit, over)
		}
	}
	b.pending = batch
	return &PersistenceError{Backend: b.name, Records: len(records), Pending: len(b.pending), Err: err}
}

// unwritten returns the part of batch that still has to be written after an
// InsertBatch call that returned err.
func unwritten(batch []model.AggregationRecord, err error) []model.AggregationRecord {
	if err == nil {
		return nil
	}
	var partial *repository.PartialWriteError
	if errors.As(err, &partial) && partial.Written > 0 {
		return batch[min(partial.Written, len(batch)):]
	}
	return batch
}

// Pending returns the number of records waiting to be written.
func (b *RecordBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Dropped returns how many records were discarded because the pending limit was reached.
func (b *RecordBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close makes one last attempt at the pending records and closes the repository.
func (b *RecordBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var flushErr error
	if len(b.pending) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		err := b.repo.InsertBatch(ctx, b.pending)
		b.pending = unwritten(b.pending, err)
		if err != nil {
			flushErr = &PersistenceError{Backend: b.name, Records: len(b.pending), Pending: len(b.pending), Err: err}
		}
		cancel()
	}

	if err := b.repo.Close(); err != nil {
		if flushErr != nil {
			return fmt.Errorf("%w; close: %v", flushErr, err)
		}
		return fmt.Errorf("failed to close %s: %w", b.name, err)
	}
	return flushErr
}
