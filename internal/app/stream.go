package service

import (
	"sync"

	"github.com/okian/ladder/internal/domain/animation"
	"github.com/okian/ladder/internal/domain/highlight"
	"github.com/okian/ladder/internal/domain/selection"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/metrics"
)

// Frame kinds pushed to subscribers.
const (
	FrameAnimation = "animation"
	FrameSelection = "selection"
	FrameHighlight = "highlight"
	FrameDatasets  = "datasets"
)

const subscriberBuffer = 64

// hub fans frames out to subscribers. A subscriber that falls a full
// buffer behind is disconnected rather than skipped.
type hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan types.Frame
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan types.Frame)}
}

func (h *hub) subscribe() (<-chan types.Frame, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan types.Frame, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	metrics.UpdateStreamClients(len(h.subs))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
				metrics.UpdateStreamClients(len(h.subs))
			}
		})
	}
}

func (h *hub) broadcast(f types.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- f:
			metrics.RecordStreamFrame(f.Kind)
		default:
			delete(h.subs, id)
			close(ch)
			metrics.RecordErrorByComponent("stream", "slow_subscriber")
		}
	}
	metrics.UpdateStreamClients(len(h.subs))
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.closed = true
	metrics.UpdateStreamClients(0)
}

// Subscribe returns a channel of state change frames and a func that ends
// the subscription. The channel is closed when the subscription ends, the
// subscriber falls behind, or the service stops.
func (s *Service) Subscribe() (<-chan types.Frame, func()) {
	return s.hub.subscribe()
}

func (s *Service) onAnimation(st animation.State) {
	metrics.UpdateAnimation(st.CurrentYear, st.IsPlaying)
	s.hub.broadcast(types.Frame{Kind: FrameAnimation, Payload: st})
}

func (s *Service) onSelection(_ selection.State) {
	s.hub.broadcast(types.Frame{Kind: FrameSelection, Payload: s.Selection()})
}

func (s *Service) onHighlight(st highlight.State) {
	s.hub.broadcast(types.Frame{Kind: FrameHighlight, Payload: st})
}

func (s *Service) publishDatasets() {
	s.hub.broadcast(types.Frame{Kind: FrameDatasets, Payload: s.Datasets()})
}
