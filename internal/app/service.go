// Package service runs the collection and linking pipeline stages and
// exposes their statistics to the ops API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/squadlink/internal/adapters/output"
	"github.com/okian/squadlink/internal/adapters/repository"
	"github.com/okian/squadlink/internal/adapters/source"
	"github.com/okian/squadlink/internal/config"
	"github.com/okian/squadlink/internal/domain/table"
	"github.com/okian/squadlink/pkg/logger"
	"github.com/okian/squadlink/pkg/metrics"
)

// Stage names used in logs, metrics and stored datasets.
const (
	StageCollect = "collect"
	StageLink    = "link"
)

// Service implements the pipeline stages for one run.
type Service struct {
	cfg     *config.Config
	runID   string
	store   repository.Store
	logger  logger.Logger
	srcOpts []source.Option

	mu    sync.RWMutex
	stats runStats
}

type runStats struct {
	teamsCollected int
	teamsFailed    int
	missingTables  map[string]int
	duplicateKeys  map[string]int
	skipped        []string
	mergedRows     int
	projectedRows  int
	valuations     int
	linkTargets    int
	linkAccepted   int
	stages         map[string]string
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRunID replaces the generated run id.
func WithRunID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithStore keeps every produced table in store under the run id.
func WithStore(store repository.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithSourceOptions adds options to every retrieval session, after the
// ones derived from the configuration.
func WithSourceOptions(opts ...source.Option) Option {
	return func(s *Service) { s.srcOpts = append(s.srcOpts, opts...) }
}

// New constructs a Service for cfg.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		runID: uuid.NewString(),
		stats: runStats{
			missingTables: make(map[string]int),
			duplicateKeys: make(map[string]int),
			stages:        make(map[string]string),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}
	s.logger = s.logger.With(logger.String("run_id", s.runID))
	return s
}

// RunID returns the id tagging this run's logs and stored datasets.
func (s *Service) RunID() string { return s.runID }

// GetStats returns run statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	missing := make(map[string]int, len(s.stats.missingTables))
	for k, v := range s.stats.missingTables {
		missing[k] = v
	}
	dups := make(map[string]int, len(s.stats.duplicateKeys))
	for k, v := range s.stats.duplicateKeys {
		dups[k] = v
	}
	stages := make(map[string]string, len(s.stats.stages))
	for k, v := range s.stats.stages {
		stages[k] = v
	}

	return map[string]interface{}{
		"runId":          s.runID,
		"workerCount":    s.cfg.WorkerCount,
		"queueSize":      s.cfg.QueueSize,
		"teams":          len(s.cfg.Teams),
		"teamsCollected": s.stats.teamsCollected,
		"teamsFailed":    s.stats.teamsFailed,
		"missingTables":  missing,
		"duplicateKeys":  dups,
		"skippedTables":  append([]string(nil), s.stats.skipped...),
		"mergedRows":     s.stats.mergedRows,
		"projectedRows":  s.stats.projectedRows,
		"valuations":     s.stats.valuations,
		"linkTargets":    s.stats.linkTargets,
		"linkAccepted":   s.stats.linkAccepted,
		"stages":         stages,
	}
}

func (s *Service) sessionOptions() []source.Option {
	opts := []source.Option{
		source.WithUserAgent(s.cfg.UserAgent),
		source.WithTimeout(time.Duration(s.cfg.RequestTimeoutMS) * time.Millisecond),
		source.WithDelay(time.Duration(s.cfg.RequestDelayMS) * time.Millisecond),
		source.WithSnapshotDir(s.cfg.SnapshotDir),
		source.WithLogger(s.logger.Named("source")),
	}
	return append(opts, s.srcOpts...)
}

// runStage times fn and records its outcome.
func (s *Service) runStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	start := time.Now()
	s.setStage(stage, "running")
	s.logger.Info(ctx, "stage started", logger.String("stage", stage))

	err := fn(ctx)
	elapsed := time.Since(start)
	metrics.RecordStageDuration(stage, elapsed.Seconds())
	if err != nil {
		metrics.RecordStageError(stage)
		s.setStage(stage, "failed")
		s.logger.Error(ctx, "stage failed", logger.String("stage", stage), logger.Duration("elapsed", elapsed), logger.Error(err))
		return fmt.Errorf("%s: %w", stage, err)
	}
	s.setStage(stage, "done")
	s.logger.Info(ctx, "stage finished", logger.String("stage", stage), logger.Duration("elapsed", elapsed))
	return nil
}

func (s *Service) setStage(stage, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.stages[stage] = state
}

// persist writes t to path and, when a store is configured, saves it as
// dataset of the run.
func (s *Service) persist(ctx context.Context, w *output.Writer, path, dataset string, t table.Table) error {
	if err := w.WriteFile(path, t); err != nil {
		return err
	}
	s.logger.Info(ctx, "table written", logger.String("path", path), logger.Int("rows", t.Len()))
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveTable(ctx, s.runID, dataset, t); err != nil {
		return fmt.Errorf("store %s: %w", dataset, err)
	}
	return nil
}
