package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/animation"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamDependencies defines the state change feed.
type StreamDependencies interface {
	Subscribe() (<-chan types.Frame, func())
	Animation() animation.State
	Selection() types.Selection
	Datasets() []types.DatasetStatus
}

// StreamHandler upgrades /stream to a websocket and pushes JSON frames on
// every animation, selection, highlight and dataset change.
type StreamHandler struct {
	deps     StreamDependencies
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewStreamHandler creates a new stream handler. An empty origins list
// accepts any origin.
func NewStreamHandler(deps StreamDependencies, lg logger.Logger, origins []string) *StreamHandler {
	h := &StreamHandler{deps: deps, logger: lg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			return slices.Contains(origins, r.Header.Get("Origin"))
		},
	}
	return h
}

// HandleStream handles GET /stream.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		h.logger.Debug(r.Context(), "stream upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	frames, cancel := h.deps.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go h.readPump(ctx, conn, stop)

	// Current state first so a fresh client can render without waiting.
	initial := []types.Frame{
		{Kind: service.FrameDatasets, Payload: h.deps.Datasets()},
		{Kind: service.FrameAnimation, Payload: h.deps.Animation()},
		{Kind: service.FrameSelection, Payload: h.deps.Selection()},
	}
	for _, f := range initial {
		if err := h.write(conn, f); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				// Unsubscribed: the client fell behind or the service stopped.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.write(conn, f); err != nil {
				h.logger.Debug(ctx, "stream write failed", logger.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, f types.Frame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(f)
}

// readPump discards client messages and ends the stream when the peer goes
// away.
func (h *StreamHandler) readPump(ctx context.Context, conn *websocket.Conn, stop context.CancelFunc) {
	defer stop()
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(ctx, "stream closed", logger.Error(err))
			}
			return
		}
	}
}
