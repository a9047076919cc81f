// Package model contains domain models passed between layers.
package model

import "github.com/okian/squadlink/internal/domain/table"

// Team is one squad page to collect.
type Team struct {
	Name string
	URL  string
}

// PageJob asks a worker to collect one team page. Index is the result slot
// reserved for the team.
type PageJob struct {
	Index int
	Team  Team
}

// TeamTables holds the normalized tables of one team page.
type TeamTables struct {
	Team    Team
	Tables  map[string]table.Table // family -> table, squad column attached
	Missing []string               // families absent from the page
	Err     error                  // set when the page could not be retrieved
}

// Valuation is one row of the market value listing.
type Valuation struct {
	Skill       string
	Rank        string
	Name        string
	Age         string
	Club        string
	MarketValue string
	Nation      string
}
