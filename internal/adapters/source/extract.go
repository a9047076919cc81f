package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/squadlink/internal/domain/model"
	"github.com/okian/squadlink/internal/domain/table"
)

// Body rows carrying one of these classes repeat or group the header.
var skippedRowClasses = []string{"over_header", "thead"}

const (
	valuationRowSelector  = "tbody#player-table-body tr"
	valuationNameSelector = "td:nth-of-type(3) span"
	valuationCells        = 7
)

// ExtractTables finds the table of each family on a team page. Tables hidden
// inside HTML comments are unwrapped first. A family whose table is not on
// the page is returned with Present set to false.
func ExtractTables(html string, families []string) (map[string]table.Raw, error) {
	doc, err := parse(uncomment(html))
	if err != nil {
		return nil, err
	}

	out := make(map[string]table.Raw, len(families))
	for _, family := range families {
		raw := table.Raw{Family: family}
		sel := doc.Find(fmt.Sprintf("table[id=%q]", family)).First()
		if sel.Length() > 0 {
			raw.Present = true
			sel.ChildrenFiltered("thead").Find("tr").Each(func(_ int, tr *goquery.Selection) {
				raw.HeaderRows = append(raw.HeaderRows, cells(tr, "th, td"))
			})
			sel.ChildrenFiltered("tbody").Find("tr").Each(func(_ int, tr *goquery.Selection) {
				if skipRow(tr) {
					return
				}
				raw.Rows = append(raw.Rows, cells(tr, "th, td"))
			})
		}
		out[family] = raw
	}
	return out, nil
}

// ParseValuations reads the market value listing of one page. Rows with
// fewer than seven cells are skipped.
func ParseValuations(html string) ([]model.Valuation, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var out []model.Valuation
	doc.Find(valuationRowSelector).Each(func(_ int, tr *goquery.Selection) {
		tds := cells(tr, "td")
		if len(tds) < valuationCells {
			return
		}
		name := tds[2]
		if span := tr.Find(valuationNameSelector).First(); span.Length() > 0 {
			name = strings.TrimSpace(span.Text())
		}
		out = append(out, model.Valuation{
			Skill:       tds[0],
			Rank:        tds[1],
			Name:        name,
			Age:         tds[3],
			Club:        tds[4],
			MarketValue: tds[5],
			Nation:      tds[6],
		})
	})
	return out, nil
}

// ValuationPageURL returns the address of page n of the listing at base.
// Page 1 is base itself.
func ValuationPageURL(base string, n int) string {
	if n <= 1 {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strconv.Itoa(n)
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func uncomment(html string) string {
	clean := strings.ReplaceAll(html, "<!--", "")
	return strings.ReplaceAll(clean, "-->", "")
}

func cells(tr *goquery.Selection, selector string) []string {
	var out []string
	tr.ChildrenFiltered(selector).Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}

func skipRow(tr *goquery.Selection) bool {
	for _, c := range skippedRowClasses {
		if tr.HasClass(c) {
			return true
		}
	}
	return false
}
