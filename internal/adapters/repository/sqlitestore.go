package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/squadlink/internal/domain/table"
)

const defaultBusyTimeout = 5 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		run_id     TEXT NOT NULL,
		name       TEXT NOT NULL,
		columns    TEXT NOT NULL,
		row_count  INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_rows (
		run_id  TEXT NOT NULL,
		dataset TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		data    TEXT NOT NULL,
		PRIMARY KEY (run_id, dataset, ordinal)
	)`,
}

// SQLiteStore is a Store backed by a SQLite file. Each row is kept as a JSON
// object keyed by column name; the column order lives with the dataset.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	now         func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the database at path and ensures the schema.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{busyTimeout: defaultBusyTimeout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	s.db = db

	pragma := fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds())
	if _, err := db.ExecContext(ctx, pragma); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveTable stores t in a single transaction.
func (s *SQLiteStore) SaveTable(ctx context.Context, runID, dataset string, t table.Table) (err error) {
	if runID == "" || dataset == "" {
		return ErrInvalidName
	}
	cols, err := sonic.MarshalString(t.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE run_id = ? AND dataset = ?`, runID, dataset); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO datasets (run_id, name, columns, row_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, dataset, cols, len(t.Rows), s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dataset_rows (run_id, dataset, ordinal, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()

	obj := make(map[string]string, len(t.Columns))
	for i, row := range t.Rows {
		for c, col := range t.Columns {
			obj[col] = row[c]
		}
		data, err := sonic.MarshalString(obj)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, dataset, i, data); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadTable reads a dataset back in row order.
func (s *SQLiteStore) LoadTable(ctx context.Context, runID, dataset string) (table.Table, error) {
	var cols string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM datasets WHERE run_id = ? AND name = ?`, runID, dataset).Scan(&cols)
	if errors.Is(err, sql.ErrNoRows) {
		return table.Table{}, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, dataset)
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("load dataset: %w", err)
	}

	var t table.Table
	if err := sonic.UnmarshalString(cols, &t.Columns); err != nil {
		return table.Table{}, fmt.Errorf("decode columns: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM dataset_rows WHERE run_id = ? AND dataset = ? ORDER BY ordinal`, runID, dataset)
	if err != nil {
		return table.Table{}, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return table.Table{}, fmt.Errorf("scan row: %w", err)
		}
		obj := map[string]string{}
		if err := sonic.UnmarshalString(data, &obj); err != nil {
			return table.Table{}, fmt.Errorf("decode row: %w", err)
		}
		row := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = obj[col]
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, fmt.Errorf("iterate rows: %w", err)
	}
	return t, nil
}

// Datasets lists the datasets of runID.
func (s *SQLiteStore) Datasets(ctx context.Context, runID string) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, columns, row_count, created_at FROM datasets WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		d := Dataset{RunID: runID}
		var cols, created string
		if err := rows.Scan(&d.Name, &cols, &d.Rows, &created); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		if err := sonic.UnmarshalString(cols, &d.Columns); err != nil {
			return nil, fmt.Errorf("decode columns: %w", err)
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
