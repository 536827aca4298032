package api

import (
	"context"
	"net/http"

	"github.com/okian/ladder/internal/domain/aggregate"
	"github.com/okian/ladder/internal/domain/colorscale"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

const defaultLegendSteps = 5

// RankingDependencies defines the aggregate views of the snapshot.
type RankingDependencies interface {
	Ranking(ctx context.Context, limit int) ([]types.Entry, error)
	Composite(ctx context.Context, factors []model.Factor, limit int) ([]aggregate.CompositeEntry, error)
	Averages(ctx context.Context, top int) ([]aggregate.Comparison, error)
	Bubbles(ctx context.Context, factor model.Factor, top int) ([]aggregate.Bubble, error)
	Legend(view string, steps int) ([]colorscale.Stop, error)
}

// RankingHandler serves ranked lists, comparisons and legends.
type RankingHandler struct {
	deps RankingDependencies
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies) *RankingHandler {
	return &RankingHandler{deps: deps}
}

// HandleRanking handles GET /ranking?limit=.
func (h *RankingHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.ranking"
	if !allow(w, r, http.MethodGet) {
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		respondError(w, op, err)
		return
	}
	entries, err := h.deps.Ranking(r.Context(), limit)
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleComposite handles GET /ranking/composite?factors=a,b&limit=.
func (h *RankingHandler) HandleComposite(w http.ResponseWriter, r *http.Request) {
	const op = "api.ranking_composite"
	if !allow(w, r, http.MethodGet) {
		return
	}
	factors, err := model.ParseFactors(r.URL.Query().Get("factors"))
	if err != nil {
		respondError(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		respondError(w, op, err)
		return
	}
	out, err := h.deps.Composite(r.Context(), factors, limit)
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAverages handles GET /averages?top=.
func (h *RankingHandler) HandleAverages(w http.ResponseWriter, r *http.Request) {
	const op = "api.averages"
	if !allow(w, r, http.MethodGet) {
		return
	}
	top, err := intParam(r, "top", 0)
	if err != nil {
		respondError(w, op, err)
		return
	}
	out, err := h.deps.Averages(r.Context(), top)
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleBubbles handles GET /bubbles?factor=&top=. The factor defaults to
// GDP per capita.
func (h *RankingHandler) HandleBubbles(w http.ResponseWriter, r *http.Request) {
	const op = "api.bubbles"
	if !allow(w, r, http.MethodGet) {
		return
	}
	factor := model.GDP
	if raw := r.URL.Query().Get("factor"); raw != "" {
		f, err := model.ParseFactor(raw)
		if err != nil {
			respondError(w, op, WrapKind(op, ErrBadRequest, err))
			return
		}
		factor = f
	}
	top, err := intParam(r, "top", 0)
	if err != nil {
		respondError(w, op, err)
		return
	}
	out, err := h.deps.Bubbles(r.Context(), factor, top)
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleLegend handles GET /legend?view=snapshot|year&steps=.
func (h *RankingHandler) HandleLegend(w http.ResponseWriter, r *http.Request) {
	const op = "api.legend"
	if !allow(w, r, http.MethodGet) {
		return
	}
	steps, err := intParam(r, "steps", defaultLegendSteps)
	if err != nil {
		respondError(w, op, err)
		return
	}
	stops, err := h.deps.Legend(r.URL.Query().Get("view"), steps)
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, stops)
}
