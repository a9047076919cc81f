// Package namespace prefixes the non-key columns of a table with its table
// family so that columns of different families never collide after a join.
package namespace

import (
	"fmt"

	"github.com/okian/squadlink/internal/domain/table"
)

// Separator joins a family id and a column name.
const Separator = "_"

// Namespacer holds the family set and identity key fixed at construction.
type Namespacer struct {
	families map[string]string // family -> prefix
	key      map[string]bool
}

// New builds a Namespacer for families; key columns are never renamed.
func New(families, key []string) (*Namespacer, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	n := &Namespacer{
		families: make(map[string]string, len(families)),
		key:      make(map[string]bool, len(key)),
	}
	for _, f := range families {
		if _, ok := n.families[f]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFamily, f)
		}
		n.families[f] = f + Separator
	}
	for _, k := range key {
		n.key[k] = true
	}
	return n, nil
}

// IsKey reports whether col is an identity key column.
func (n *Namespacer) IsKey(col string) bool { return n.key[col] }

// Name returns the namespaced name of col within family.
func (n *Namespacer) Name(family, col string) (string, error) {
	prefix, ok := n.families[family]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	if n.key[col] {
		return col, nil
	}
	return prefix + col, nil
}

// Apply returns a copy of t with every non-key column renamed. Rows are
// shared with t, which is never modified.
func (n *Namespacer) Apply(family string, t table.Table) (table.Table, error) {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		name, err := n.Name(family, c)
		if err != nil {
			return table.Table{}, err
		}
		cols[i] = name
	}
	if len(cols) == 0 {
		if _, ok := n.families[family]; !ok {
			return table.Table{}, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
		}
	}
	return table.Table{Columns: cols, Rows: t.Rows}, nil
}
