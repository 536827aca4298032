package api

import (
	"context"
	"net/http"

	"github.com/okian/ladder/internal/domain/animation"
)

// AnimationDependencies defines the animation transitions.
type AnimationDependencies interface {
	Animation() animation.State
	StartAnimation(ctx context.Context) (animation.State, error)
	ToggleAnimation(ctx context.Context) (animation.State, error)
	PauseAnimation(ctx context.Context) (animation.State, error)
	SeekAnimation(ctx context.Context, year int) (animation.State, error)
}

// AnimationHandler handles animation requests.
type AnimationHandler struct {
	deps AnimationDependencies
}

// NewAnimationHandler creates a new animation handler.
func NewAnimationHandler(deps AnimationDependencies) *AnimationHandler {
	return &AnimationHandler{deps: deps}
}

// HandleState handles GET /animation.
func (h *AnimationHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Animation())
}

// HandleAction handles POST /animation/{start,toggle,pause,seek}. Seek
// takes ?year=.
func (h *AnimationHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	const op = "api.animation"
	if !allow(w, r, http.MethodPost) {
		return
	}
	action, err := pathParam(r, "/animation/")
	if err != nil {
		respondError(w, op, err)
		return
	}

	var st animation.State
	switch action {
	case "start":
		st, err = h.deps.StartAnimation(r.Context())
	case "toggle":
		st, err = h.deps.ToggleAnimation(r.Context())
	case "pause":
		st, err = h.deps.PauseAnimation(r.Context())
	case "seek":
		if r.URL.Query().Get("year") == "" {
			respondError(w, op, WrapKind(op, ErrBadRequest, ErrMissingYear))
			return
		}
		var year int
		if year, err = intParam(r, "year", 0); err == nil {
			st, err = h.deps.SeekAnimation(r.Context(), year)
		}
	default:
		respondError(w, op, NewKind(action, ErrUnknownAction))
		return
	}
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
