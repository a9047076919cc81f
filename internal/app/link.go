package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/squadlink/internal/adapters/output"
	"github.com/okian/squadlink/internal/adapters/repository"
	"github.com/okian/squadlink/internal/adapters/source"
	"github.com/okian/squadlink/internal/domain/model"
	"github.com/okian/squadlink/internal/domain/projection"
	"github.com/okian/squadlink/internal/domain/resolve"
	"github.com/okian/squadlink/internal/domain/table"
	"github.com/okian/squadlink/pkg/logger"
	"github.com/okian/squadlink/pkg/metrics"
)

const (
	playerColumn      = "Player"
	marketValueColumn = "MarketValue"

	datasetLinked = "linked"
)

// Link reads the results written by Collect, keeps players above the link
// minutes threshold, attaches the market value of the closest valuation
// name and writes the linked table.
func (s *Service) Link(ctx context.Context) (table.Table, error) {
	var out table.Table
	err := s.runStage(ctx, StageLink, func(ctx context.Context) error {
		results, from, err := s.loadResults(ctx)
		if err != nil {
			return err
		}
		targets, err := s.linkTargets(results, from)
		if err != nil {
			return err
		}

		vals, err := s.loadValuations(ctx)
		if err != nil {
			return err
		}
		cands := make([]resolve.Candidate, len(vals))
		for i, v := range vals {
			cands[i] = resolve.Candidate{Name: v.Name, Value: v.MarketValue}
		}
		idx := resolve.NewIndex(cands)
		r := resolve.New(idx,
			resolve.WithThreshold(s.cfg.MatchThreshold),
			resolve.WithSentinel(s.cfg.UnmatchedSentinel),
			resolve.WithWorkers(s.cfg.WorkerCount),
		)

		matches, err := r.ResolveAll(ctx, targets.Column(playerColumn))
		if err != nil {
			return err
		}

		linked := table.Table{
			Columns: []string{playerColumn, s.cfg.NationColumn, s.cfg.MinutesColumn, marketValueColumn},
			Rows:    make([][]string, len(matches)),
		}
		pi, ni, mi := targets.Index(playerColumn), targets.Index(s.cfg.NationColumn), targets.Index(s.cfg.MinutesColumn)
		accepted := 0
		for i, m := range matches {
			metrics.RecordMatch(m.Accepted, m.Score)
			if m.Accepted {
				accepted++
			} else {
				s.logger.Debug(ctx, "no valuation match",
					logger.String("player", m.Target),
					logger.String("closest", m.Candidate),
					logger.Float64("score", m.Score),
				)
			}
			row := targets.Rows[i]
			linked.Rows[i] = []string{row[pi], row[ni], row[mi], m.Value}
		}

		s.mu.Lock()
		s.stats.valuations = idx.Len()
		s.stats.linkTargets = len(matches)
		s.stats.linkAccepted = accepted
		s.mu.Unlock()

		s.logger.Info(ctx, "players linked",
			logger.Int("targets", len(matches)),
			logger.Int("accepted", accepted),
			logger.Int("candidates", idx.Len()),
		)

		w := output.New(output.WithRowNumber(s.cfg.RowNumberColumn), output.WithBOM())
		if err := s.persist(ctx, w, s.cfg.LinkedPath, datasetLinked, linked); err != nil {
			return err
		}
		out = linked
		return nil
	})
	return out, err
}

// loadResults reads the results stored by this run's Collect, or the results
// file when the run store has none. It also names where the table came from.
func (s *Service) loadResults(ctx context.Context) (table.Table, string, error) {
	if s.store != nil {
		t, err := s.store.LoadTable(ctx, s.runID, datasetResults)
		switch {
		case err == nil:
			s.logger.Debug(ctx, "results read from run store", logger.Int("rows", t.Len()))
			return t, "run " + s.runID, nil
		case !errors.Is(err, repository.ErrNotFound):
			return table.Table{}, "", fmt.Errorf("load %s: %w", datasetResults, err)
		}
	}
	t, err := source.LoadTableCSV(s.cfg.ResultsPath)
	if err != nil {
		return table.Table{}, "", err
	}
	return t, s.cfg.ResultsPath, nil
}

// linkTargets keeps the rows of results whose minutes exceed the link
// threshold, in file order.
func (s *Service) linkTargets(results table.Table, from string) (table.Table, error) {
	for _, col := range []string{playerColumn, s.cfg.NationColumn, s.cfg.MinutesColumn} {
		if results.Index(col) < 0 {
			return table.Table{}, fmt.Errorf("%w: %q in %s", ErrMissingColumn, col, from)
		}
	}
	mi := results.Index(s.cfg.MinutesColumn)
	out := table.Table{Columns: results.Columns}
	for _, row := range results.Rows {
		m := projection.ParseNumber(row[mi])
		if math.IsNaN(m) || m <= s.cfg.LinkMinMinutes {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// loadValuations reads the valuation CSV when configured, otherwise every
// listing page. A page that cannot be read is logged and skipped.
func (s *Service) loadValuations(ctx context.Context) ([]model.Valuation, error) {
	if s.cfg.ValuationCSV != "" {
		vals, err := source.LoadValuationsCSV(s.cfg.ValuationCSV)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoValuations, s.cfg.ValuationCSV)
		}
		return vals, nil
	}

	var vals []model.Valuation
	err := source.WithSession(ctx, func(ctx context.Context, sess *source.Session) error {
		for page := 1; page <= s.cfg.ValuationPages; page++ {
			url := source.ValuationPageURL(s.cfg.ValuationURL, page)
			html, err := sess.Fetch(ctx, url)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn(ctx, "valuation page skipped", logger.Int("page", page), logger.Error(err))
				continue
			}
			rows, err := source.ParseValuations(html)
			if err != nil {
				s.logger.Warn(ctx, "valuation page unreadable", logger.Int("page", page), logger.Error(err))
				continue
			}
			s.logger.Debug(ctx, "valuation page read", logger.Int("page", page), logger.Int("players", len(rows)))
			vals = append(vals, rows...)
		}
		return nil
	}, s.sessionOptions()...)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoValuations, s.cfg.ValuationURL)
	}
	return vals, nil
}
