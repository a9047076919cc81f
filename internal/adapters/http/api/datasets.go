package api

import (
	"net/http"
	"time"
)

type datasetResponse struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	Rows      int      `json:"rows"`
	CreatedAt string   `json:"created_at"`
}

// DatasetsHandler lists the stored datasets of a run.
type DatasetsHandler struct {
	lister DatasetLister
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(lister DatasetLister) *DatasetsHandler {
	return &DatasetsHandler{lister: lister}
}

// HandleList handles GET /runs/{run}/datasets requests.
func (h *DatasetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	ds, err := h.lister.Datasets(r.Context(), runID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	if len(ds) == 0 {
		writeError(w, http.StatusNotFound, "not_found", ErrUnknownRun)
		return
	}

	out := make([]datasetResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, datasetResponse{
			Name:      d.Name,
			Columns:   d.Columns,
			Rows:      d.Rows,
			CreatedAt: d.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
