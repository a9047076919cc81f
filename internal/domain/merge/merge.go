// Package merge left-joins namespaced side tables onto the primary table by
// the identity key, producing one wide record per primary row.
package merge

import (
	"fmt"
	"strings"

	"github.com/okian/squadlink/internal/domain/dedupe"
	"github.com/okian/squadlink/internal/domain/table"
)

// keySep cannot occur in scraped cell text.
const keySep = "\x1f"

// Side is a table tagged with its family id.
type Side struct {
	Family string
	Table  table.Table
}

// Report describes data quality issues met during a merge.
type Report struct {
	// Duplicates maps a family to the number of extra rows sharing a key.
	Duplicates map[string]int
	// Repeated maps a family to its repeated keys, in first-repeat order.
	// Key parts are joined with " / ".
	Repeated map[string][]dedupe.Repeat
	// Keys maps a family to its number of distinct keys.
	Keys map[string]int
	// Skipped lists side families left out because a key column is missing.
	Skipped []string
	// Rows is the number of rows in the result.
	Rows int
}

// Merger joins tables on a fixed identity key.
type Merger struct {
	key []string
}

// New creates a Merger for the given identity key columns.
func New(key []string) *Merger {
	return &Merger{key: append([]string(nil), key...)}
}

// Merge left-joins each side onto primary in the given order. Every primary
// row is kept; keys that only exist in a side are dropped. Rows sharing a
// key multiply, as in any relational join, and are counted in the report.
func (m *Merger) Merge(primary Side, sides ...Side) (table.Table, Report, error) {
	rep := Report{
		Duplicates: make(map[string]int),
		Repeated:   make(map[string][]dedupe.Repeat),
		Keys:       make(map[string]int),
	}

	if len(primary.Table.Columns) == 0 || primary.Table.Len() == 0 {
		return table.Table{}, rep, fmt.Errorf("%w: %s", ErrMissingAnchor, primary.Family)
	}
	for _, k := range m.key {
		if primary.Table.Index(k) < 0 {
			return table.Table{}, rep, fmt.Errorf("%w: %s lacks %q", ErrMissingKey, primary.Family, k)
		}
	}
	m.checkKeys(&rep, primary)

	cur := table.Table{
		Columns: append([]string(nil), primary.Table.Columns...),
		Rows:    primary.Table.Rows,
	}
	for _, side := range sides {
		if !side.Table.Has(m.key...) {
			rep.Skipped = append(rep.Skipped, side.Family)
			continue
		}
		m.checkKeys(&rep, side)
		next, err := m.join(cur, side)
		if err != nil {
			return table.Table{}, rep, err
		}
		cur = next
	}

	rep.Rows = cur.Len()
	return cur, rep, nil
}

// join appends the non-key columns of side to left.
func (m *Merger) join(left table.Table, side Side) (table.Table, error) {
	isKey := make(map[string]bool, len(m.key))
	for _, k := range m.key {
		isKey[k] = true
	}

	var add []int
	cols := append([]string(nil), left.Columns...)
	for i, c := range side.Table.Columns {
		if isKey[c] {
			continue
		}
		if left.Index(c) >= 0 {
			return table.Table{}, fmt.Errorf("%w: %s brings %q twice", ErrColumnCollision, side.Family, c)
		}
		add = append(add, i)
		cols = append(cols, c)
	}

	sideKey := m.keyPositions(side.Table)
	groups := make(map[string][][]string, side.Table.Len())
	for _, row := range side.Table.Rows {
		k := joinKey(row, sideKey)
		groups[k] = append(groups[k], row)
	}

	leftKey := m.keyPositions(left)
	rows := make([][]string, 0, left.Len())
	for _, row := range left.Rows {
		matches := groups[joinKey(row, leftKey)]
		if len(matches) == 0 {
			nr := make([]string, len(cols))
			copy(nr, row)
			rows = append(rows, nr)
			continue
		}
		for _, match := range matches {
			nr := make([]string, len(cols))
			copy(nr, row)
			for j, i := range add {
				nr[len(left.Columns)+j] = match[i]
			}
			rows = append(rows, nr)
		}
	}
	return table.Table{Columns: cols, Rows: rows}, nil
}

func (m *Merger) keyPositions(t table.Table) []int {
	pos := make([]int, len(m.key))
	for i, k := range m.key {
		pos[i] = t.Index(k)
	}
	return pos
}

// checkKeys records the key statistics of one table in rep.
func (m *Merger) checkKeys(rep *Report, side Side) {
	d := dedupe.NewInMemoryDeduper(dedupe.WithSizeHint(side.Table.Len()))
	pos := m.keyPositions(side.Table)
	for _, row := range side.Table.Rows {
		d.SeenAndRecord(joinKey(row, pos))
	}
	rep.Keys[side.Family] = d.Size()
	if d.Duplicates() == 0 {
		return
	}
	rep.Duplicates[side.Family] = d.Duplicates()
	repeated := d.Repeated()
	for i := range repeated {
		repeated[i].Key = strings.ReplaceAll(repeated[i].Key, keySep, " / ")
	}
	rep.Repeated[side.Family] = repeated
}

func joinKey(row []string, pos []int) string {
	parts := make([]string, len(pos))
	for i, p := range pos {
		parts[i] = row[p]
	}
	return strings.Join(parts, keySep)
}
