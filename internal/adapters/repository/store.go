// Package repository persists the tables produced by a pipeline run.
package repository

import (
	"context"
	"time"

	"github.com/okian/squadlink/internal/domain/table"
)

// Dataset describes one stored table of a run.
type Dataset struct {
	RunID     string
	Name      string
	Columns   []string
	Rows      int
	CreatedAt time.Time
}

// Store provides read/write access to run datasets.
type Store interface {
	// SaveTable stores t as dataset of run, replacing an earlier copy.
	SaveTable(ctx context.Context, runID, dataset string, t table.Table) error

	// LoadTable returns a stored dataset with its column order intact.
	// Returns ErrNotFound if the run has no such dataset.
	LoadTable(ctx context.Context, runID, dataset string) (table.Table, error)

	// Datasets lists the datasets of a run ordered by name.
	Datasets(ctx context.Context, runID string) ([]Dataset, error)

	// Close releases the underlying database.
	Close() error
}
