// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	eventqueue "github.com/okian/ladder/internal/adapters/mq/queue"
	workerpool "github.com/okian/ladder/internal/adapters/mq/worker"
	repository "github.com/okian/ladder/internal/adapters/repository"
	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/animation"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
)

// Dependencies required by HTTP handlers. Each handler declares the slice
// it uses; the bundle is what the service implements.
type Dependencies interface {
	StatsProvider
	MapDependencies
	SelectionDependencies
	RankingDependencies
	AnimationDependencies
	ResponseDependencies
	StreamDependencies
	DatasetDependencies
}

// Server wires HTTP routes for the renderer boundary.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	mapHandler       *MapHandler
	selectionHandler *SelectionHandler
	rankingHandler   *RankingHandler
	animationHandler *AnimationHandler
	responseHandler  *ResponseHandler
	streamHandler    *StreamHandler
	datasetHandler   *DatasetHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger       logger.Logger
	allowOrigins []string
}

// WithLogger sets the logger used by handlers that run long-lived work.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAllowedOrigins restricts which origins may open /stream. Without it
// any origin is accepted.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *serverOptions) { o.allowOrigins = append(o.allowOrigins, origins...) }
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(deps),
		mapHandler:       NewMapHandler(deps),
		selectionHandler: NewSelectionHandler(deps),
		rankingHandler:   NewRankingHandler(deps),
		animationHandler: NewAnimationHandler(deps),
		responseHandler:  NewResponseHandler(deps),
		streamHandler:    NewStreamHandler(deps, o.logger.Named("stream"), o.allowOrigins),
		datasetHandler:   NewDatasetHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/datasets", MetricsMiddleware(s.datasetHandler.HandleList, "datasets"))
	mux.HandleFunc("/datasets/", MetricsMiddleware(s.datasetHandler.HandleReload, "datasets_reload"))

	mux.HandleFunc("/shapes", MetricsMiddleware(s.mapHandler.HandleShapes, "shapes"))
	mux.HandleFunc("/map", MetricsMiddleware(s.mapHandler.HandleMap, "map"))
	mux.HandleFunc("/map/year", MetricsMiddleware(s.mapHandler.HandleYearMap, "map_year"))
	mux.HandleFunc("/links", MetricsMiddleware(s.mapHandler.HandleLinks, "links"))
	mux.HandleFunc("/legend", MetricsMiddleware(s.rankingHandler.HandleLegend, "legend"))

	mux.HandleFunc("/select", MetricsMiddleware(s.selectionHandler.HandleSelect, "select"))

	mux.HandleFunc("/ranking", MetricsMiddleware(s.rankingHandler.HandleRanking, "ranking"))
	mux.HandleFunc("/ranking/composite", MetricsMiddleware(s.rankingHandler.HandleComposite, "ranking_composite"))
	mux.HandleFunc("/averages", MetricsMiddleware(s.rankingHandler.HandleAverages, "averages"))
	mux.HandleFunc("/bubbles", MetricsMiddleware(s.rankingHandler.HandleBubbles, "bubbles"))

	mux.HandleFunc("/animation", MetricsMiddleware(s.animationHandler.HandleState, "animation"))
	mux.HandleFunc("/animation/", MetricsMiddleware(s.animationHandler.HandleAction, "animation_action"))

	mux.HandleFunc("/responses", MetricsMiddleware(s.responseHandler.HandleExport, "responses"))
	mux.HandleFunc("/responses/", MetricsMiddleware(s.responseHandler.HandlePhase, "responses_phase"))

	mux.HandleFunc("/stream", MetricsMiddleware(s.streamHandler.HandleStream, "stream"))
}

type errorResponse struct {
	Code     string                `json:"code"`
	Message  string                `json:"message"`
	Datasets []types.DatasetStatus `json:"datasets,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// respondError maps an error from the service to a status and code. A
// dataset that is not ready is always a 503 listing the dataset states.
func respondError(w http.ResponseWriter, op string, err error) {
	var unavailable *service.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:     "data_unavailable",
			Message:  Wrap(op, err).Error(),
			Datasets: unavailable.Datasets,
		})
	case errors.Is(err, service.ErrStopped),
		errors.Is(err, workerpool.ErrStopped),
		errors.Is(err, eventqueue.ErrClosed),
		errors.Is(err, animation.ErrDisposed):
		writeError(w, http.StatusServiceUnavailable, "stopped", Wrap(op, err))
	case errors.Is(err, model.ErrInvalidSelectionTarget):
		writeError(w, http.StatusUnprocessableEntity, "invalid_selection_target", Wrap(op, err))
	case errors.Is(err, model.ErrInvalidEvaluation):
		writeError(w, http.StatusBadRequest, "invalid_evaluation", Wrap(op, err))
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrUnknownAction),
		errors.Is(err, ErrMissingPayload),
		errors.Is(err, animation.ErrYearOutOfRange),
		errors.Is(err, service.ErrUnknownView),
		errors.Is(err, service.ErrUnknownDataset):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, model.ErrConfiguration):
		// Request parameters are tagged ErrBadRequest before they get here, so
		// what remains is loaded data the engine cannot index.
		writeError(w, http.StatusInternalServerError, "invalid_data", Wrap(op, err))
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, model.ErrLoadFailure):
		writeError(w, http.StatusBadGateway, "load_failed", Wrap(op, err))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "timeout", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// allow answers 405 and returns false unless the request uses one of methods.
func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(r.URL.Path, ErrMethod))
	return false
}

// intParam reads an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, WrapKind(name, ErrBadRequest, err)
	}
	return v, nil
}

// pathParam returns the single path segment after prefix.
func pathParam(r *http.Request, prefix string) (string, error) {
	p := strings.TrimPrefix(r.URL.Path, prefix)
	if p == "" || strings.Contains(p, "/") {
		return "", NewKind(r.URL.Path, ErrBadRequest)
	}
	return p, nil
}
