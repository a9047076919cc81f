// Package output writes tables as CSV files.
package output

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/squadlink/internal/domain/table"
)

const bom = "\ufeff"

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithRowNumber inserts a 1-based row number column named col before the
// table columns.
func WithRowNumber(col string) Option {
	return func(w *Writer) { w.rowNumber = col }
}

// WithBOM prefixes the output with a UTF-8 byte order mark.
func WithBOM() Option {
	return func(w *Writer) { w.bom = true }
}

// Writer serialises tables as CSV with a header row.
type Writer struct {
	rowNumber string
	bom       bool
}

// New creates a Writer.
func New(opts ...Option) *Writer {
	w := &Writer{}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write writes t to dst.
func (w *Writer) Write(dst io.Writer, t table.Table) error {
	if w.bom {
		if _, err := io.WriteString(dst, bom); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}

	cw := csv.NewWriter(dst)
	header := t.Columns
	if w.rowNumber != "" {
		header = append([]string{w.rowNumber}, t.Columns...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows {
		rec := row
		if w.rowNumber != "" {
			rec = append([]string{strconv.Itoa(i + 1)}, row...)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes t to path, creating parent directories. The file is
// replaced only once it has been written completely.
func (w *Writer) WriteFile(path string, t table.Table) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(f.Name()))
		}
	}()

	buf := bufio.NewWriter(f)
	if err := w.Write(buf, t); err != nil {
		return errors.Join(fmt.Errorf("write %s: %w", path, err), f.Close())
	}
	if err := buf.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush %s: %w", path, err), f.Close())
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
