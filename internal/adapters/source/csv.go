package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/squadlink/internal/domain/model"
	"github.com/okian/squadlink/internal/domain/table"
)

const bom = "\ufeff"

// Header aliases accepted by LoadValuationsCSV, matched case-insensitively.
var valuationHeaders = map[string][]string{
	"skill":       {"skill"},
	"rank":        {"rank"},
	"name":        {"name", "player"},
	"age":         {"age"},
	"club":        {"club", "team"},
	"marketvalue": {"marketvalue", "market_value", "market value"},
	"nation":      {"nation"},
}

// LoadTableCSV reads a CSV file with a header row into a Table. A leading
// UTF-8 byte order mark is ignored and short rows are padded.
func LoadTableCSV(path string) (table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	header, rows, err := readCSV(f)
	if err != nil {
		return table.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	t := table.Table{Columns: header, Rows: make([][]string, 0, len(rows))}
	for _, rec := range rows {
		row := make([]string, len(header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// LoadValuationsCSV reads valuation records from a CSV file. The name and
// market value columns are required; the others default to empty.
func LoadValuationsCSV(path string) ([]model.Valuation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	header, rows, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	ix := make(map[string]int, len(valuationHeaders))
	for field, aliases := range valuationHeaders {
		ix[field] = -1
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				ix[field] = i
				break
			}
		}
	}
	for _, required := range []string{"name", "marketvalue"} {
		if ix[required] < 0 {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, required, path)
		}
	}

	get := func(rec []string, field string) string {
		i := ix[field]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := make([]model.Valuation, 0, len(rows))
	for _, rec := range rows {
		out = append(out, model.Valuation{
			Skill:       get(rec, "skill"),
			Rank:        get(rec, "rank"),
			Name:        get(rec, "name"),
			Age:         get(rec, "age"),
			Club:        get(rec, "club"),
			MarketValue: get(rec, "marketvalue"),
			Nation:      get(rec, "nation"),
		})
	}
	return out, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, io.ErrUnexpectedEOF
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}
	return header, records[1:], nil
}
