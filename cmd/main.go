package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/squadlink/internal/adapters/http/api"
	"github.com/okian/squadlink/internal/adapters/repository"
	app "github.com/okian/squadlink/internal/app"
	"github.com/okian/squadlink/internal/config"
	"github.com/okian/squadlink/pkg/logger"
	"github.com/okian/squadlink/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	os.Exit(run())
}

func run() int {
	stage := flag.String("stage", "", "Stage to run: collect, link or all (overrides the configured stage)")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	if *stage != "" {
		cfg.Stage = *stage
		if err := cfg.Validate(); err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			return 2
		}
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{app.WithLogger(log)}
	var store *repository.SQLiteStore
	if cfg.SQLitePath != "" {
		store, err = repository.Open(ctx, cfg.SQLitePath)
		if err != nil {
			log.Error(ctx, "failed to open run store", logger.String("path", cfg.SQLitePath), logger.Error(err))
			return 1
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error(ctx, "failed to close run store", logger.Error(err))
			}
		}()
		opts = append(opts, app.WithStore(store))
	}
	svc := app.New(cfg, opts...)

	if cfg.MetricsAddr != "" {
		var lister api.DatasetLister
		if store != nil {
			lister = store
		}
		srv := newHTTPServer(cfg.MetricsAddr, svc, lister)
		go startSystemMetricsUpdater(ctx)
		go func() {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "HTTP server failed", logger.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(ctx, "server shutdown failed", logger.Error(err))
			}
		}()
	}

	log.Info(ctx, "run started", logger.String("run_id", svc.RunID()), logger.String("stage", cfg.Stage))
	if err := runPipeline(ctx, servicePipeline{svc}, cfg.Stage); err != nil {
		log.Error(ctx, "run failed", logger.String("run_id", svc.RunID()), logger.Error(err))
		return 1
	}
	log.Info(ctx, "run finished", logger.String("run_id", svc.RunID()))
	return 0
}

// pipeline is the part of the service main drives.
type pipeline interface {
	Collect(ctx context.Context) error
	Link(ctx context.Context) error
}

// runPipeline runs the stages selected by stage in order.
func runPipeline(ctx context.Context, p pipeline, stage string) error {
	switch stage {
	case config.StageCollect:
		return p.Collect(ctx)
	case config.StageLink:
		return p.Link(ctx)
	case config.StageAll:
		if err := p.Collect(ctx); err != nil {
			return err
		}
		return p.Link(ctx)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

type servicePipeline struct{ svc *app.Service }

func (p servicePipeline) Collect(ctx context.Context) error {
	_, err := p.svc.Collect(ctx)
	return err
}

func (p servicePipeline) Link(ctx context.Context) error {
	_, err := p.svc.Link(ctx)
	return err
}

// newHTTPServer builds the ops server exposing metrics, stats and stored
// datasets.
func newHTTPServer(addr string, stats api.StatsProvider, datasets api.DatasetLister) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(stats, datasets).Register(mux)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
