package api

import (
	"net/http"

	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DatasetLister reports dataset load states.
type DatasetLister interface {
	Datasets() []types.DatasetStatus
}

// HealthHandler serves liveness metrics and dataset readiness.
type HealthHandler struct {
	datasets DatasetLister
	metrics  http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(datasets DatasetLister) *HealthHandler {
	return &HealthHandler{
		datasets: datasets,
		metrics:  promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz with the Prometheus exposition of the
// custom registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

type readyResponse struct {
	Ready    bool                  `json:"ready"`
	Datasets []types.DatasetStatus `json:"datasets"`
}

// HandleReady handles GET /readyz. It answers 200 once every dataset is
// ready and 503 otherwise.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ds := h.datasets.Datasets()
	resp := readyResponse{Ready: true, Datasets: ds}
	for _, d := range ds {
		if d.Status != snapshot.StatusReady.String() {
			resp.Ready = false
		}
	}
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
