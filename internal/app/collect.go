package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/squadlink/internal/adapters/mq/queue"
	"github.com/okian/squadlink/internal/adapters/mq/worker"
	"github.com/okian/squadlink/internal/adapters/output"
	"github.com/okian/squadlink/internal/adapters/source"
	"github.com/okian/squadlink/internal/domain/merge"
	"github.com/okian/squadlink/internal/domain/model"
	"github.com/okian/squadlink/internal/domain/namespace"
	"github.com/okian/squadlink/internal/domain/projection"
	"github.com/okian/squadlink/internal/domain/table"
	"github.com/okian/squadlink/pkg/logger"
	"github.com/okian/squadlink/pkg/metrics"
)

const (
	enqueueRetryInterval = 50 * time.Millisecond
	maxLoggedKeys        = 5

	datasetResults = "results"
	datasetMerged  = "merged"
)

// Collect retrieves every team page, merges the statistics tables into one
// wide record per player, projects the result and writes it to the results
// path.
func (s *Service) Collect(ctx context.Context) (table.Table, error) {
	var out table.Table
	err := s.runStage(ctx, StageCollect, func(ctx context.Context) error {
		return source.WithSession(ctx, func(ctx context.Context, sess *source.Session) error {
			pages, err := s.collectPages(ctx, sess)
			if err != nil {
				return err
			}
			merged, err := s.mergePages(ctx, pages)
			if err != nil {
				return err
			}
			projected, err := s.project(merged)
			if err != nil {
				return err
			}
			if s.store != nil {
				if err := s.store.SaveTable(ctx, s.runID, datasetMerged, merged); err != nil {
					return fmt.Errorf("store %s: %w", datasetMerged, err)
				}
			}
			if err := s.persist(ctx, output.New(), s.cfg.ResultsPath, datasetResults, projected); err != nil {
				return err
			}
			out = projected
			return nil
		}, s.sessionOptions()...)
	})
	return out, err
}

// collectPages runs one job per team on the worker pool. Each job fills the
// slot reserved at the team's index.
func (s *Service) collectPages(ctx context.Context, sess *source.Session) ([]model.TeamTables, error) {
	teams := make([]model.Team, len(s.cfg.Teams))
	for i, t := range s.cfg.Teams {
		teams[i] = model.Team{Name: t.Name, URL: t.URL}
	}
	slots := make([]model.TeamTables, len(teams))
	proc := &pageProcessor{
		session:    sess,
		normalizer: table.NewNormalizer(table.WithOrdinalColumn(s.cfg.OrdinalColumn)),
		families:   s.cfg.TableFamilies,
		primary:    s.cfg.PrimaryFamily,
		squad:      s.cfg.SquadColumn,
		slots:      slots,
		logger:     s.logger.Named("pages"),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	pool := worker.NewPool(s.cfg.WorkerCount, q, proc, worker.WithLogger(s.logger.Named("worker")))
	pool.Start(runCtx)

	if err := s.enqueueAll(runCtx, q, teams); err != nil {
		cancel()
		s.stopPool(ctx, pool)
		return nil, err
	}
	_ = q.Close()
	if err := s.drain(ctx, pool); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "pages collected",
		logger.Int("teams", len(teams)),
		logger.Int("succeeded", int(pool.Processed())),
		logger.Int("failed", int(pool.Failed())),
	)
	return slots, nil
}

// enqueueAll places one job per team, waiting while the queue is full.
func (s *Service) enqueueAll(ctx context.Context, q queue.Queue, teams []model.Team) error {
	for i, team := range teams {
		job := model.PageJob{Index: i, Team: team}
		for !q.Enqueue(ctx, job) {
			if q.IsClosed() {
				return fmt.Errorf("%w: %s", queue.ErrClosed, team.Name)
			}
			s.logger.Debug(ctx, "queue full, waiting",
				logger.String("team", team.Name),
				logger.Int("queued", q.Len(ctx)),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %w", queue.ErrFull, team.Name, ctx.Err())
			case <-time.After(enqueueRetryInterval):
			}
		}
	}
	return nil
}

// drain waits for the pool to finish the closed queue. A canceled ctx stops
// the pool after the jobs in flight.
func (s *Service) drain(ctx context.Context, pool *worker.Pool) error {
	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.stopPool(ctx, pool)
		<-done
	}
	return ctx.Err()
}

func (s *Service) stopPool(ctx context.Context, pool *worker.Pool) {
	if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
}

// mergePages stacks each family across teams, namespaces the side families
// and joins them onto the primary family.
func (s *Service) mergePages(ctx context.Context, pages []model.TeamTables) (table.Table, error) {
	families := s.cfg.TableFamilies
	perFamily := make(map[string][]table.Table, len(families))
	missing := make(map[string]int)
	collected, failed := 0, 0

	for _, p := range pages {
		if p.Err != nil || p.Tables == nil {
			failed++
			continue
		}
		collected++
		for _, fam := range p.Missing {
			missing[fam]++
		}
	}
	for _, fam := range families {
		for _, p := range pages {
			if t, ok := p.Tables[fam]; ok {
				perFamily[fam] = append(perFamily[fam], t)
			}
		}
	}
	metrics.UpdateTeamsCollected(collected)

	s.mu.Lock()
	s.stats.teamsCollected = collected
	s.stats.teamsFailed = failed
	s.stats.missingTables = missing
	s.mu.Unlock()

	ns, err := namespace.New(families, s.cfg.IdentityKey)
	if err != nil {
		return table.Table{}, err
	}

	primary := merge.Side{Family: s.cfg.PrimaryFamily, Table: table.Concat(perFamily[s.cfg.PrimaryFamily]...)}
	var sides []merge.Side
	for _, fam := range families {
		if fam == s.cfg.PrimaryFamily {
			continue
		}
		if len(perFamily[fam]) == 0 {
			s.logger.Warn(ctx, "table family absent from every page", logger.String("family", fam))
			continue
		}
		t, err := ns.Apply(fam, table.Concat(perFamily[fam]...))
		if err != nil {
			return table.Table{}, err
		}
		sides = append(sides, merge.Side{Family: fam, Table: t})
	}

	merged, rep, err := merge.New(s.cfg.IdentityKey).Merge(primary, sides...)
	if err != nil {
		return table.Table{}, err
	}
	for fam, n := range rep.Duplicates {
		metrics.RecordDuplicateKeys(fam, n)
		keys := make([]string, 0, maxLoggedKeys)
		for _, r := range rep.Repeated[fam] {
			if len(keys) == maxLoggedKeys {
				break
			}
			keys = append(keys, r.Key)
		}
		s.logger.Warn(ctx, "duplicate identity keys",
			logger.String("family", fam),
			logger.Int("extra_rows", n),
			logger.Int("distinct_keys", rep.Keys[fam]),
			logger.Strings("keys", keys),
		)
	}
	for _, fam := range rep.Skipped {
		s.logger.Warn(ctx, "table skipped, identity key incomplete", logger.String("family", fam))
	}
	metrics.UpdateMergedRows(rep.Rows)

	s.mu.Lock()
	s.stats.duplicateKeys = rep.Duplicates
	s.stats.skipped = rep.Skipped
	s.stats.mergedRows = rep.Rows
	s.mu.Unlock()

	s.logger.Info(ctx, "tables merged",
		logger.Int("rows", rep.Rows),
		logger.Int("columns", len(merged.Columns)),
		logger.Int("sides", len(sides)),
	)
	return merged, nil
}

func (s *Service) project(merged table.Table) (table.Table, error) {
	p := projection.New(s.cfg.OutputColumns,
		projection.WithSentinel(s.cfg.MissingSentinel),
		projection.WithTextColumns(s.cfg.TextColumns),
		projection.WithMinutesColumn(s.cfg.MinutesColumn),
		projection.WithNationColumn(s.cfg.NationColumn),
		projection.WithSortColumn(s.cfg.SortColumn),
		projection.WithMinMinutes(s.cfg.MinMinutes),
	)
	out, err := p.Project(merged)
	if err != nil {
		return table.Table{}, err
	}
	metrics.UpdateProjectedRows(out.Len())

	s.mu.Lock()
	s.stats.projectedRows = out.Len()
	s.mu.Unlock()
	return out, nil
}

// pageProcessor retrieves one team page and normalizes its tables.
type pageProcessor struct {
	session    *source.Session
	normalizer *table.Normalizer
	families   []string
	primary    string
	squad      string
	slots      []model.TeamTables
	logger     logger.Logger
}

func (p *pageProcessor) Process(ctx context.Context, job worker.Job) error {
	html, err := p.session.Fetch(ctx, job.Team.URL)
	if err != nil {
		p.slots[job.Index] = model.TeamTables{Team: job.Team, Err: err}
		return fmt.Errorf("fetch %s: %w", job.Team.Name, err)
	}
	raws, err := source.ExtractTables(html, p.families)
	if err != nil {
		p.slots[job.Index] = model.TeamTables{Team: job.Team, Err: err}
		return fmt.Errorf("extract %s: %w", job.Team.Name, err)
	}

	tt := model.TeamTables{Team: job.Team, Tables: make(map[string]table.Table, len(p.families))}
	for _, fam := range p.families {
		t, err := p.normalizer.Normalize(raws[fam])
		if err != nil {
			tt.Missing = append(tt.Missing, fam)
			metrics.RecordTableMissing(fam)
			fields := []logger.Field{logger.String("team", job.Team.Name), logger.String("family", fam), logger.Error(err)}
			if fam == p.primary {
				p.logger.Error(ctx, "primary table missing, team contributes no rows", fields...)
			} else {
				p.logger.Warn(ctx, "table missing", fields...)
			}
			continue
		}
		metrics.RecordTableExtracted(fam)
		tt.Tables[fam] = t.WithColumn(p.squad, job.Team.Name)
	}
	p.slots[job.Index] = tt
	return nil
}
