package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "SQUADLINK_"
	envConfigPath = "SQUADLINK_CONFIG"
)

// Keys whose env values are comma separated lists.
var listKeys = map[string]bool{
	"table_families": true,
	"identity_key":   true,
	"output_columns": true,
	"text_columns":   true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SQUADLINK_CONFIG is set
//  3. env (prefix SQUADLINK_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SQUADLINK_QUEUE_SIZE -> queue_size (flat keys, underscores kept to match koanf tags).
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// Lists given by a source replace the defaults instead of merging into them.
	for key, field := range map[string]*[]string{
		"table_families": &cfg.TableFamilies,
		"identity_key":   &cfg.IdentityKey,
		"output_columns": &cfg.OutputColumns,
		"text_columns":   &cfg.TextColumns,
	} {
		if k.Exists(key) {
			*field = nil
		}
	}
	if k.Exists("teams") {
		cfg.Teams = nil
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	switch {
	case !slices.Contains([]string{StageCollect, StageLink, StageAll}, c.Stage):
		return fmt.Errorf("%w: stage %q must be collect, link or all", ErrInvalidConfig, c.Stage)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.RequestDelayMS < 0:
		return fmt.Errorf("%w: request_delay_ms must not be negative", ErrInvalidConfig)
	case len(c.TableFamilies) == 0:
		return fmt.Errorf("%w: table_families must not be empty", ErrInvalidConfig)
	case !slices.Contains(c.TableFamilies, c.PrimaryFamily):
		return fmt.Errorf("%w: primary_family %q is not a table family", ErrInvalidConfig, c.PrimaryFamily)
	case len(c.IdentityKey) == 0:
		return fmt.Errorf("%w: identity_key must not be empty", ErrInvalidConfig)
	case c.SquadColumn == "" || !slices.Contains(c.IdentityKey, c.SquadColumn):
		return fmt.Errorf("%w: squad_column %q must be part of identity_key", ErrInvalidConfig, c.SquadColumn)
	case len(c.OutputColumns) == 0:
		return fmt.Errorf("%w: output_columns must not be empty", ErrInvalidConfig)
	case c.MinutesColumn == "":
		return fmt.Errorf("%w: minutes_column must not be empty", ErrInvalidConfig)
	case c.SortColumn == "":
		return fmt.Errorf("%w: sort_column must not be empty", ErrInvalidConfig)
	case c.MissingSentinel == "" || c.UnmatchedSentinel == "":
		return fmt.Errorf("%w: sentinels must not be empty", ErrInvalidConfig)
	case c.ResultsPath == "" || c.LinkedPath == "":
		return fmt.Errorf("%w: output paths must not be empty", ErrInvalidConfig)
	case c.MatchThreshold < 0 || c.MatchThreshold > 100:
		return fmt.Errorf("%w: match_threshold must be within [0, 100]", ErrInvalidConfig)
	case c.ValuationCSV == "" && (c.ValuationURL == "" || c.ValuationPages <= 0):
		return fmt.Errorf("%w: valuation_url and valuation_pages or valuation_csv are required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.TableFamilies))
	for _, f := range c.TableFamilies {
		if seen[f] {
			return fmt.Errorf("%w: duplicate table family %q", ErrInvalidConfig, f)
		}
		seen[f] = true
	}
	for i, t := range c.Teams {
		if t.Name == "" || t.URL == "" {
			return fmt.Errorf("%w: team %d needs name and url", ErrInvalidConfig, i)
		}
	}
	return nil
}
