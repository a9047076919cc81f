// Package projection reduces a wide table to the published column set.
package projection

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/squadlink/internal/domain/table"
)

// Default projection settings.
const (
	DefaultSentinel   = "N/a"
	DefaultMinutes    = "Min"
	DefaultNation     = "Nation"
	DefaultSortColumn = "Player"
	DefaultMinMinutes = 90
)

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithSentinel sets the literal written for missing values.
func WithSentinel(s string) Option {
	return func(p *Projector) {
		if s != "" {
			p.sentinel = s
		}
	}
}

// WithTextColumns sets the columns that are never coerced to numbers.
func WithTextColumns(cols []string) Option {
	return func(p *Projector) {
		p.text = make(map[string]bool, len(cols))
		for _, c := range cols {
			p.text[c] = true
		}
	}
}

// WithMinutesColumn names the minutes-played column.
func WithMinutesColumn(col string) Option {
	return func(p *Projector) {
		if col != "" {
			p.minutes = col
		}
	}
}

// WithNationColumn names the column reduced to its last token. Empty disables it.
func WithNationColumn(col string) Option {
	return func(p *Projector) { p.nation = col }
}

// WithSortColumn names the column rows are ordered by.
func WithSortColumn(col string) Option {
	return func(p *Projector) {
		if col != "" {
			p.sortBy = col
		}
	}
}

// WithMinMinutes keeps rows whose minutes are strictly greater than m.
func WithMinMinutes(m float64) Option {
	return func(p *Projector) { p.minMinutes = m }
}

// Projector selects an allow-list of columns and cleans their values.
type Projector struct {
	columns    []string
	text       map[string]bool
	sentinel   string
	minutes    string
	nation     string
	sortBy     string
	minMinutes float64
}

// New creates a Projector for the allow-listed columns.
func New(columns []string, opts ...Option) *Projector {
	p := &Projector{
		columns:    append([]string(nil), columns...),
		sentinel:   DefaultSentinel,
		minutes:    DefaultMinutes,
		nation:     DefaultNation,
		sortBy:     DefaultSortColumn,
		minMinutes: DefaultMinMinutes,
	}
	WithTextColumns([]string{"Player", "Nation", "Squad", "Pos", "Age"})(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type projectedRow struct {
	cells []string
	sort  string
}

// Project returns the allow-listed columns of t, in allow-list order, with
// missing and non-numeric values replaced by the sentinel. Rows whose
// minutes are not a number or not above the threshold are dropped. The
// result is stably sorted by the sort column.
func (p *Projector) Project(t table.Table) (table.Table, error) {
	minIdx := t.Index(p.minutes)
	if minIdx < 0 {
		return table.Table{}, fmt.Errorf("%w: %q", ErrMissingMinutes, p.minutes)
	}
	sortIdx := t.Index(p.sortBy)

	var cols []string
	var src []int
	for _, c := range p.columns {
		if i := t.Index(c); i >= 0 {
			cols = append(cols, c)
			src = append(src, i)
		}
	}

	rows := make([]projectedRow, 0, t.Len())
	for _, row := range t.Rows {
		minutes := ParseNumber(row[minIdx])
		if math.IsNaN(minutes) || minutes <= p.minMinutes {
			continue
		}
		cells := make([]string, len(cols))
		for j, i := range src {
			cells[j] = p.clean(cols[j], row[i])
		}
		for j, c := range cols {
			if c == p.minutes {
				cells[j] = strconv.FormatFloat(minutes, 'f', -1, 64)
			}
		}
		pr := projectedRow{cells: cells}
		if sortIdx >= 0 {
			pr.sort = row[sortIdx]
		}
		rows = append(rows, pr)
	}

	slices.SortStableFunc(rows, func(a, b projectedRow) int {
		return strings.Compare(a.sort, b.sort)
	})

	out := table.Table{Columns: cols, Rows: make([][]string, len(rows))}
	for i, r := range rows {
		out.Rows[i] = r.cells
	}
	return out, nil
}

func (p *Projector) clean(col, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return p.sentinel
	}
	if col == p.nation && p.nation != "" {
		f := strings.Fields(v)
		return f[len(f)-1]
	}
	if p.text[col] {
		return v
	}
	if math.IsNaN(ParseNumber(v)) {
		return p.sentinel
	}
	return strings.ReplaceAll(v, ",", "")
}

// ParseNumber parses v after removing thousands separators. Anything that is
// not a finite number yields NaN.
func ParseNumber(v string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
