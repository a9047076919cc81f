// Package table holds the in-memory tabular model shared by every pipeline
// stage and turns raw scraped tables into clean ones.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

const defaultOrdinalColumn = "Rk"

// Raw is a table as scraped from a page: header rows followed by body rows
// of untyped cells. Present is false when the page did not carry the table.
type Raw struct {
	Family     string
	Present    bool
	HeaderRows [][]string
	Rows       [][]string
}

// Table is an ordered set of uniquely named columns and rows of cells.
// An empty cell means the value is missing.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of col or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether every named column exists.
func (t Table) Has(cols ...string) bool {
	for _, c := range cols {
		if t.Index(c) < 0 {
			return false
		}
	}
	return true
}

// Column returns a copy of the values of col, or nil if it does not exist.
func (t Table) Column(col string) []string {
	i := t.Index(col)
	if i < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// WithColumn returns a copy of t with col set to value on every row.
// An existing column of that name is overwritten in place, otherwise the
// column is appended.
func (t Table) WithColumn(col, value string) Table {
	idx := t.Index(col)
	cols := append([]string(nil), t.Columns...)
	if idx < 0 {
		cols = append(cols, col)
		idx = len(cols) - 1
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]string, len(cols))
		copy(nr, row)
		nr[idx] = value
		rows[r] = nr
	}
	return Table{Columns: cols, Rows: rows}
}

// Concat stacks tables. The result holds the union of all columns in
// first-seen order; cells of columns a table lacks are left empty.
func Concat(tables ...Table) Table {
	var cols []string
	pos := make(map[string]int)
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(cols)
				cols = append(cols, c)
			}
		}
	}

	var rows [][]string
	for _, t := range tables {
		for _, row := range t.Rows {
			nr := make([]string, len(cols))
			for i, c := range t.Columns {
				nr[pos[c]] = row[i]
			}
			rows = append(rows, nr)
		}
	}
	return Table{Columns: cols, Rows: rows}
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithOrdinalColumn sets the reserved row-ordinal column name that is
// dropped from every table. An empty name disables dropping.
func WithOrdinalColumn(name string) Option {
	return func(n *Normalizer) {
		n.ordinal = name
	}
}

// Normalizer converts Raw tables into Tables.
type Normalizer struct {
	ordinal string
}

// NewNormalizer creates a Normalizer with configuration options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{ordinal: defaultOrdinalColumn}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize cleans raw into a Table or returns ErrAbsent; it never returns
// a partially built table.
//
// The last header row names the columns. Repeated names are suffixed
// ".1", ".2", ... in order of appearance and blank names become
// "Unnamed: <i>". The ordinal column is removed by name. Body rows that
// repeat the header text and rows without any value are dropped.
func (n *Normalizer) Normalize(raw Raw) (Table, error) {
	if !raw.Present || len(raw.HeaderRows) == 0 {
		return Table{}, fmt.Errorf("%s: %w", raw.Family, ErrAbsent)
	}
	header := raw.HeaderRows[len(raw.HeaderRows)-1]
	if len(header) == 0 {
		return Table{}, fmt.Errorf("%s: empty header: %w", raw.Family, ErrAbsent)
	}

	names := uniqueNames(header)
	keep := make([]int, 0, len(names))
	cols := make([]string, 0, len(names))
	for i, name := range names {
		if n.ordinal != "" && name == n.ordinal {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, name)
	}

	rows := make([][]string, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		if isBlank(row) || repeatsHeader(row, header) {
			continue
		}
		nr := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				nr[j] = strings.TrimSpace(row[i])
			}
		}
		rows = append(rows, nr)
	}
	return Table{Columns: cols, Rows: rows}, nil
}

// uniqueNames disambiguates repeated header names the way spreadsheet
// readers do: a, a.1, a.2, skipping suffixes that are already taken.
// Suffixes always count up from the base name.
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if !used[name] {
			used[name] = true
			out[i] = name
			continue
		}
		k := max(next[name], 1)
		cand := name + "." + strconv.Itoa(k)
		for used[cand] {
			k++
			cand = name + "." + strconv.Itoa(k)
		}
		next[name] = k + 1
		used[cand] = true
		out[i] = cand
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// repeatsHeader reports a body row whose every non-empty cell equals the
// header name of its column.
func repeatsHeader(row, header []string) bool {
	matched := 0
	for i, c := range row {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if i >= len(header) || c != strings.TrimSpace(header[i]) {
			return false
		}
		matched++
	}
	return matched > 0
}
