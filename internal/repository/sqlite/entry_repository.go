package sqlite

import (
	"context"
	"fmt"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// EntryRepository implements repository.EntryRepository for SQLite.
type EntryRepository struct {
	db *DB
}

// NewEntryRepository creates a new SQLite entry repository.
func NewEntryRepository(db *DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Open opens the database file at path and returns a repository owning it.
func Open(path string) (*EntryRepository, error) {
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	return NewEntryRepository(db), nil
}

// InsertBatch adds the records of one tick in a single transaction.
func (r *EntryRepository) InsertBatch(ctx context.Context, records []model.AggregationRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (class_id, name, count, detected, camera_name)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, int(rec.ClassID), rec.ClassName, rec.Delta, rec.Detected, rec.Camera); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored entries.
func (r *EntryRepository) Count(ctx context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// SumByClass returns the total count per class for a camera.
func (r *EntryRepository) SumByClass(ctx context.Context, camera string) (map[model.ClassID]int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT class_id, COALESCE(SUM(count), 0) FROM entries
		WHERE camera_name = ? GROUP BY class_id
	`, camera)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	sums := make(map[model.ClassID]int)
	for rows.Next() {
		var class, sum int
		if err := rows.Scan(&class, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan entry sum: %w", err)
		}
		sums[model.ClassID(class)] = sum
	}
	return sums, rows.Err()
}

// Close closes the underlying database.
func (r *EntryRepository) Close() error {
	return r.db.Close()
}
