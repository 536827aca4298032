package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/okian/ladder/internal/domain/model"
)

const maxResponseBody = 1 << 16

// ResponseDependencies defines evaluation capture.
type ResponseDependencies interface {
	SaveResponse(ctx context.Context, phase string, e model.Evaluation) error
	Response(ctx context.Context, phase string) (model.Evaluation, error)
	DeleteResponse(ctx context.Context, phase string) error
	ExportResponses(ctx context.Context) ([]byte, error)
}

// ResponseHandler handles evaluation requests.
type ResponseHandler struct {
	deps ResponseDependencies
}

// NewResponseHandler creates a new response handler.
func NewResponseHandler(deps ResponseDependencies) *ResponseHandler {
	return &ResponseHandler{deps: deps}
}

// HandleExport handles GET /responses: one JSON document keyed by phase.
func (h *ResponseHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.responses_export"
	if !allow(w, r, http.MethodGet) {
		return
	}
	body, err := h.deps.ExportResponses(r.Context())
	if err != nil {
		respondError(w, op, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="responses.json"`)
	writeRaw(w, http.StatusOK, "application/json; charset=utf-8", body)
}

// HandlePhase handles GET, PUT and DELETE /responses/{phase}.
func (h *ResponseHandler) HandlePhase(w http.ResponseWriter, r *http.Request) {
	const op = "api.responses"
	if !allow(w, r, http.MethodGet, http.MethodPut, http.MethodDelete) {
		return
	}
	phase, err := pathParam(r, "/responses/")
	if err != nil {
		respondError(w, op, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		e, err := h.deps.Response(r.Context(), phase)
		if err != nil {
			respondError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, e)

	case http.MethodDelete:
		if err := h.deps.DeleteResponse(r.Context(), phase); err != nil {
			respondError(w, op, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodPut:
		var e model.Evaluation
		dec := json.NewDecoder(io.LimitReader(r.Body, maxResponseBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&e); err != nil {
			respondError(w, op, WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SaveResponse(r.Context(), phase, e); err != nil {
			respondError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}
