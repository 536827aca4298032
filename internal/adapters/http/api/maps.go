package api

import (
	"context"
	"net/http"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/types"
)

// MapDependencies defines the projections behind the map routes.
type MapDependencies interface {
	ShapesGeoJSON(ctx context.Context) ([]byte, error)
	MapView(ctx context.Context) (types.MapView, error)
	YearMap(ctx context.Context, year int) (types.MapView, error)
	CurrentYearMap(ctx context.Context) (types.MapView, error)
	Links(ctx context.Context) (service.LinkReport, error)
}

// MapHandler serves choropleth frames and the shape catalog.
type MapHandler struct {
	deps MapDependencies
}

// NewMapHandler creates a new map handler.
func NewMapHandler(deps MapDependencies) *MapHandler {
	return &MapHandler{deps: deps}
}

// HandleShapes handles GET /shapes.
func (h *MapHandler) HandleShapes(w http.ResponseWriter, r *http.Request) {
	const op = "api.shapes"
	if !allow(w, r, http.MethodGet) {
		return
	}
	body, err := h.deps.ShapesGeoJSON(r.Context())
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeRaw(w, http.StatusOK, "application/geo+json", body)
}

// HandleMap handles GET /map.
func (h *MapHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	const op = "api.map"
	if !allow(w, r, http.MethodGet) {
		return
	}
	view, err := h.deps.MapView(r.Context())
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleYearMap handles GET /map/year?year=. Without a year the animation
// cursor is used.
func (h *MapHandler) HandleYearMap(w http.ResponseWriter, r *http.Request) {
	const op = "api.map_year"
	if !allow(w, r, http.MethodGet) {
		return
	}
	var (
		view types.MapView
		err  error
	)
	if r.URL.Query().Get("year") == "" {
		view, err = h.deps.CurrentYearMap(r.Context())
	} else {
		var year int
		if year, err = intParam(r, "year", 0); err == nil {
			view, err = h.deps.YearMap(r.Context(), year)
		}
	}
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleLinks handles GET /links.
func (h *MapHandler) HandleLinks(w http.ResponseWriter, r *http.Request) {
	const op = "api.links"
	if !allow(w, r, http.MethodGet) {
		return
	}
	report, err := h.deps.Links(r.Context())
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
