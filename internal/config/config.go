// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over those defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
)

// Pipeline stages selectable with Stage.
const (
	StageCollect = "collect"
	StageLink    = "link"
	StageAll     = "all"
)

// Team is one statistics page to collect.
type Team struct {
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Stage selects what a run executes: collect, link or all.
	Stage string `koanf:"stage"`

	// MetricsAddr enables the ops HTTP endpoint when non-empty, e.g. ":9080".
	MetricsAddr string `koanf:"metrics_addr"`

	// WorkerCount sets the number of page retrieval workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the in-memory page job queue.
	QueueSize int `koanf:"queue_size"`

	// RequestTimeoutMS bounds a single page retrieval.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
	// RequestDelayMS is slept before every network request.
	RequestDelayMS int `koanf:"request_delay_ms"`
	// UserAgent is sent with every request.
	UserAgent string `koanf:"user_agent"`
	// SnapshotDir caches fetched HTML; empty disables the cache.
	SnapshotDir string `koanf:"snapshot_dir"`

	// Teams lists the pages holding the statistics tables.
	Teams []Team `koanf:"teams"`
	// TableFamilies lists table ids to extract from each page.
	TableFamilies []string `koanf:"table_families"`
	// PrimaryFamily anchors the merge; it must be one of TableFamilies.
	PrimaryFamily string `koanf:"primary_family"`
	// IdentityKey lists the join columns shared by every family.
	IdentityKey []string `koanf:"identity_key"`
	// SquadColumn receives the team name on every extracted row.
	SquadColumn string `koanf:"squad_column"`
	// OrdinalColumn is dropped from every table by name.
	OrdinalColumn string `koanf:"ordinal_column"`

	// OutputColumns is the allow-list of columns written to ResultsPath.
	OutputColumns []string `koanf:"output_columns"`
	// TextColumns are never coerced to numbers.
	TextColumns []string `koanf:"text_columns"`
	// MinutesColumn, NationColumn and SortColumn name special columns.
	MinutesColumn string `koanf:"minutes_column"`
	NationColumn  string `koanf:"nation_column"`
	SortColumn    string `koanf:"sort_column"`
	// MinMinutes keeps rows with strictly more minutes.
	MinMinutes float64 `koanf:"min_minutes"`
	// MissingSentinel fills missing cells of the merged table.
	MissingSentinel string `koanf:"missing_sentinel"`
	// ResultsPath is the merged table output.
	ResultsPath string `koanf:"results_path"`

	// ValuationURL is the first valuation listing page.
	ValuationURL string `koanf:"valuation_url"`
	// ValuationPages is the number of listing pages to read.
	ValuationPages int `koanf:"valuation_pages"`
	// ValuationCSV, when set, replaces scraping with a local file.
	ValuationCSV string `koanf:"valuation_csv"`
	// LinkMinMinutes filters results before linking.
	LinkMinMinutes float64 `koanf:"link_min_minutes"`
	// MatchThreshold is the lowest accepted similarity score.
	MatchThreshold float64 `koanf:"match_threshold"`
	// UnmatchedSentinel marks targets without an accepted match.
	UnmatchedSentinel string `koanf:"unmatched_sentinel"`
	// LinkedPath is the valuation-linked output.
	LinkedPath string `koanf:"linked_path"`
	// RowNumberColumn heads the 1-based row number of LinkedPath.
	RowNumberColumn string `koanf:"row_number_column"`

	// SQLitePath enables the run store when non-empty.
	SQLitePath string `koanf:"sqlite_path"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Stage:             StageAll,
		MetricsAddr:       "",
		WorkerCount:       runtime.NumCPU(),
		QueueSize:         64,
		RequestTimeoutMS:  30_000,
		RequestDelayMS:    3_000,
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) squadlink/1.0",
		SnapshotDir:       "",
		Teams:             DefaultTeams(),
		TableFamilies:     DefaultTableFamilies(),
		PrimaryFamily:     "stats_standard_9",
		IdentityKey:       []string{"Player", "Nation", "Squad", "Pos"},
		SquadColumn:       "Squad",
		OrdinalColumn:     "Rk",
		OutputColumns:     DefaultOutputColumns(),
		TextColumns:       []string{"Player", "Nation", "Squad", "Pos", "Age"},
		MinutesColumn:     "Min",
		NationColumn:      "Nation",
		SortColumn:        "Player",
		MinMinutes:        90,
		MissingSentinel:   "N/a",
		ResultsPath:       "results.csv",
		ValuationURL:      "https://www.footballtransfers.com/us/values/players/most-valuable-soccer-players/playing-in-uk-premier-league",
		ValuationPages:    22,
		LinkMinMinutes:    900,
		MatchThreshold:    85,
		UnmatchedSentinel: "N/A",
		LinkedPath:        "transfer_player.csv",
		RowNumberColumn:   "stt",
	}
}

// DefaultTeams returns the Premier League squads collected by default.
func DefaultTeams() []Team {
	return []Team{
		{Name: "Arsenal", URL: "https://fbref.com/en/squads/18bb7c10/Arsenal-Stats"},
		{Name: "Aston Villa", URL: "https://fbref.com/en/squads/d9a146ce/Aston-Villa-Stats"},
		{Name: "AFC Bournemouth", URL: "https://fbref.com/en/squads/cc2d82a3/AFC-Bournemouth-Stats"},
		{Name: "Brentford", URL: "https://fbref.com/en/squads/042d22d0/Brentford-Stats"},
		{Name: "Brighton & Hove Albion", URL: "https://fbref.com/en/squads/3acff17b/Brighton-&-Hove-Albion-Stats"},
		{Name: "Chelsea", URL: "https://fbref.com/en/squads/cd3b4a0a/Chelsea-Stats"},
		{Name: "Crystal Palace", URL: "https://fbref.com/en/squads/4186b788/Crystal-Palace-Stats"},
		{Name: "Everton", URL: "https://fbref.com/en/squads/4c1fa01b/Everton-Stats"},
		{Name: "Fulham", URL: "https://fbref.com/en/squads/44c8e1e6/Fulham-Stats"},
		{Name: "Ipswich Town", URL: "https://fbref.com/en/squads/1f389f6b/Ipswich-Town-Stats"},
		{Name: "Leicester City", URL: "https://fbref.com/en/squads/d2d3fce0/Leicester-City-Stats"},
		{Name: "Liverpool", URL: "https://fbref.com/en/squads/822bd0ba/Liverpool-Stats"},
		{Name: "Manchester City", URL: "https://fbref.com/en/squads/d8eec475/Manchester-City-Stats"},
		{Name: "Manchester United", URL: "https://fbref.com/en/squads/19538871/Manchester-United-Stats"},
		{Name: "Newcastle United", URL: "https://fbref.com/en/squads/26213b52/Newcastle-United-Stats"},
		{Name: "Nottingham Forest", URL: "https://fbref.com/en/squads/976d8421/Nottingham-Forest-Stats"},
		{Name: "Southampton", URL: "https://fbref.com/en/squads/f227ad98/Southampton-Stats"},
		{Name: "Tottenham Hotspur", URL: "https://fbref.com/en/squads/2b0a0bde/Tottenham-Hotspur-Stats"},
		{Name: "West Ham United", URL: "https://fbref.com/en/squads/9d1c2f97/West-Ham-United-Stats"},
		{Name: "Wolverhampton Wanderers", URL: "https://fbref.com/en/squads/573237c2/Wolverhampton-Wanderers-Stats"},
	}
}

// DefaultTableFamilies returns the ten statistics table ids of a squad page.
func DefaultTableFamilies() []string {
	return []string{
		"stats_standard_9",
		"stats_keeper_9",
		"stats_keeper_adv_9",
		"stats_shooting_9",
		"stats_passing_9",
		"stats_passing_types_9",
		"stats_possession_9",
		"stats_defense_9",
		"stats_misc_9",
		"stats_gca_9",
	}
}

// DefaultOutputColumns returns the projected column allow-list.
// Suffixes such as ".1" come from repeated header names within a table.
func DefaultOutputColumns() []string {
	return []string{
		"Player", "Nation", "Squad", "Pos", "Age",
		"MP", "Starts", "Min",
		"Gls", "Ast", "CrdY", "CrdR",
		"xG", "xAG",
		"PrgC", "PrgP", "PrgR",
		"Gls.1", "Ast.1", "xG.1", "xAG.1",
		"stats_keeper_9_GA90", "stats_keeper_9_Save%", "stats_keeper_9_CS%",
		"stats_keeper_9_Save%.1",
		"stats_shooting_9_SoT%", "stats_shooting_9_SoT/90", "stats_shooting_9_G/Sh", "stats_shooting_9_Dist",
		"stats_passing_9_Cmp", "stats_passing_9_Cmp%", "stats_passing_9_TotDist",
		"stats_passing_9_Cmp%.1",
		"stats_passing_9_Cmp%.2",
		"stats_passing_9_Cmp%.3",
		"stats_passing_9_KP", "stats_passing_9_1/3", "stats_passing_9_PPA", "stats_passing_9_CrsPA", "stats_passing_9_PrgP",
		"stats_gca_9_SCA", "stats_gca_9_SCA90",
		"stats_gca_9_GCA", "stats_gca_9_GCA90",
		"stats_defense_9_Tkl", "stats_defense_9_TklW",
		"stats_defense_9_Att", "stats_defense_9_Lost",
		"stats_defense_9_Blocks", "stats_defense_9_Sh", "stats_defense_9_Pass", "stats_defense_9_Int",
		"stats_possession_9_Touches", "stats_possession_9_Def Pen", "stats_possession_9_Def 3rd", "stats_possession_9_Mid 3rd",
		"stats_possession_9_Att 3rd", "stats_possession_9_Att Pen",
		"stats_possession_9_Att", "stats_possession_9_Succ%", "stats_possession_9_Tkld%",
		"stats_possession_9_Carries", "stats_possession_9_PrgDist", "stats_possession_9_PrgC", "stats_possession_9_1/3",
		"stats_possession_9_CPA", "stats_possession_9_Mis", "stats_possession_9_Dis",
		"stats_possession_9_Rec", "stats_possession_9_PrgR",
		"stats_misc_9_Fls", "stats_misc_9_Fld", "stats_misc_9_Off", "stats_misc_9_Crs", "stats_misc_9_Recov",
		"stats_misc_9_Won", "stats_misc_9_Lost", "stats_misc_9_Won%",
	}
}
