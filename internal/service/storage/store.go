package storage

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/config"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/repository"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/repository/kafka"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/repository/mysql"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/repository/sqlite"
)

// Store fans each tick out to every configured backend. Backends buffer and
// retry independently, so a Kafka outage never duplicates SQL rows.
type Store struct {
	buffers []*RecordBuffer
}

func NewStore(buffers ...*RecordBuffer) *Store {
	return &Store{buffers: buffers}
}

// Open connects a fresh set of backends for one worker: the SQL database
// selected by cfg.Database.Driver, plus Kafka when bootstrap servers are set.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Store, error) {
	opts := BufferOptions{
		PendingLimit: cfg.System.PendingLimit,
		Attempts:     cfg.System.RetryAttempts,
		Logger:       log,
	}

	sqlRepo, err := OpenSQL(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	store := NewStore(NewRecordBuffer(cfg.Database.Driver, sqlRepo, opts))

	if cfg.Kafka.Enabled() {
		pub, err := kafka.NewPublisher(cfg.Kafka, log)
		if err != nil {
			return nil, multierr.Append(err, store.Close())
		}
		store.buffers = append(store.buffers, NewRecordBuffer("kafka", pub, opts))
	}

	return store, nil
}

// OpenSQL opens the SQL database selected by cfg.Driver.
func OpenSQL(ctx context.Context, cfg config.Database) (repository.EntryStore, error) {
	switch cfg.Driver {
	case "sqlite":
		repo, err := sqlite.Open(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %s: %w", cfg.DB, err)
		}
		return repo, nil
	case "mysql":
		repo, err := mysql.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Write sends records to every backend and combines their errors.
func (s *Store) Write(ctx context.Context, records []model.AggregationRecord) error {
	var errs error
	for _, b := range s.buffers {
		errs = multierr.Append(errs, b.Write(ctx, records))
	}
	return errs
}

// Pending returns the number of unwritten records across backends.
func (s *Store) Pending() int {
	total := 0
	for _, b := range s.buffers {
		total += b.Pending()
	}
	return total
}

func (s *Store) Close() error {
	var errs error
	for _, b := range s.buffers {
		errs = multierr.Append(errs, b.Close())
	}
	return errs
}
