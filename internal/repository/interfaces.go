package repository

import (
	"context"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// EntryRepository stores per-interval aggregation records.
type EntryRepository interface {
	// InsertBatch writes the records of one tick. Repositories that cannot write
	// atomically return a *PartialWriteError once part of the batch is stored.
	InsertBatch(ctx context.Context, records []model.AggregationRecord) error
	Close() error
}

// EntryReader exposes the read side of SQL-backed entry stores.
type EntryReader interface {
	Count(ctx context.Context) (int, error)
	SumByClass(ctx context.Context, camera string) (map[model.ClassID]int, error)
}

// EntryStore is a SQL-backed store that can be written to and queried.
type EntryStore interface {
	EntryRepository
	EntryReader
}
