// Package api declares the operational HTTP routes of a pipeline run.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/okian/squadlink/internal/adapters/repository"
)

// DatasetLister exposes the datasets stored for a run.
type DatasetLister interface {
	Datasets(ctx context.Context, runID string) ([]repository.Dataset, error)
}

// Server wires HTTP routes for the ops endpoint.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	datasetsHandler *DatasetsHandler
}

// NewServer creates a new API server with all handlers. datasets may be nil
// when no run store is configured.
func NewServer(statsProvider StatsProvider, datasets DatasetLister) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
	}
	if datasets != nil {
		s.datasetsHandler = NewDatasetsHandler(datasets)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	if s.datasetsHandler != nil {
		mux.HandleFunc("GET /runs/{run}/datasets", MetricsMiddleware(s.datasetsHandler.HandleList, "datasets"))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
