package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

// SelectionDependencies defines the cross-filter operations.
type SelectionDependencies interface {
	OnFeatureActivated(ctx context.Context, featureID string) (types.Selection, error)
	SelectCountry(ctx context.Context, country string) (types.Selection, error)
	ClearSelection(ctx context.Context) (types.Selection, error)
	Selection() types.Selection
}

// selectRequest names either a map feature or a country directly.
type selectRequest struct {
	FeatureID string `json:"featureId"`
	Country   string `json:"country"`
}

type selectResponse struct {
	Selection types.Selection `json:"selection"`
	Cleared   bool            `json:"cleared,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// SelectionHandler handles selection requests.
type SelectionHandler struct {
	deps SelectionDependencies
}

// NewSelectionHandler creates a new selection handler.
func NewSelectionHandler(deps SelectionDependencies) *SelectionHandler {
	return &SelectionHandler{deps: deps}
}

// HandleSelect handles GET, POST and DELETE /select.
//
// An unknown or unmatched target still clears the selection, so the
// response is 422 with the cleared state in the body.
func (h *SelectionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	const op = "api.select"
	if !allow(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, selectResponse{Selection: h.deps.Selection()})
		return
	case http.MethodDelete:
		sel, err := h.deps.ClearSelection(r.Context())
		if err != nil {
			respondError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, selectResponse{Selection: sel, Cleared: true})
		return
	}

	var req selectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		respondError(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	featureID, country := strings.TrimSpace(req.FeatureID), strings.TrimSpace(req.Country)

	var (
		sel types.Selection
		err error
	)
	switch {
	case featureID != "":
		sel, err = h.deps.OnFeatureActivated(r.Context(), featureID)
	case country != "":
		sel, err = h.deps.SelectCountry(r.Context(), country)
	default:
		respondError(w, op, NewKind(op, ErrMissingPayload))
		return
	}

	if errors.Is(err, model.ErrInvalidSelectionTarget) {
		writeJSON(w, http.StatusUnprocessableEntity, selectResponse{Selection: sel, Cleared: true, Reason: err.Error()})
		return
	}
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Selection: sel})
}
