package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/config"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

const defaultPort = 3306

// DSN builds the driver connection string for the configured database.
func DSN(cfg config.Database) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.DB
	mc.ParseTime = true
	mc.Timeout = 5 * time.Second
	return mc.FormatDSN()
}

// EntryRepository implements repository.EntryRepository for MySQL.
// Each camera worker opens its own repository and connection pool.
type EntryRepository struct {
	conn *sql.DB
}

// Open connects to MySQL and creates the entries table if needed.
func Open(ctx context.Context, cfg config.Database) (*EntryRepository, error) {
	conn, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(2)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Host, err)
	}

	r := &EntryRepository{conn: conn}
	if err := r.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return r, nil
}

func (r *EntryRepository) migrate(ctx context.Context) error {
	_, err := r.conn.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS entries (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		class_id INT NOT NULL,
		name VARCHAR(255) NOT NULL,
		count INT NOT NULL DEFAULT 0,
		detected BOOLEAN NOT NULL DEFAULT FALSE,
		camera_name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_entries_camera (camera_name)
	)`)
	return err
}

// InsertBatch adds the records of one tick in a single transaction.
func (r *EntryRepository) InsertBatch(ctx context.Context, records []model.AggregationRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.conn.BeginTx(ctx, nil)
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
	var count int
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// SumByClass returns the total count per class for a camera.
func (r *EntryRepository) SumByClass(ctx context.Context, camera string) (map[model.ClassID]int, error) {
	rows, err := r.conn.QueryContext(ctx, `
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

func (r *EntryRepository) Close() error {
	return r.conn.Close()
}
