package api

import (
	"context"
	"net/http"

	service "github.com/okian/ladder/internal/app"
)

// DatasetDependencies defines dataset status and reload.
type DatasetDependencies interface {
	DatasetLister
	Load(ctx context.Context, d service.Dataset) error
}

// DatasetHandler handles dataset requests.
type DatasetHandler struct {
	deps DatasetDependencies
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(deps DatasetDependencies) *DatasetHandler {
	return &DatasetHandler{deps: deps}
}

// HandleList handles GET /datasets.
func (h *DatasetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Datasets())
}

// HandleReload handles POST /datasets/{name}: the dataset is fetched again
// from its configured source. A failed reload keeps serving the previous
// data and answers 502.
func (h *DatasetHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.datasets_reload"
	if !allow(w, r, http.MethodPost) {
		return
	}
	name, err := pathParam(r, "/datasets/")
	if err != nil {
		respondError(w, op, err)
		return
	}
	d, err := service.ParseDataset(name)
	if err != nil {
		respondError(w, op, err)
		return
	}
	if err := h.deps.Load(r.Context(), d); err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Datasets())
}
