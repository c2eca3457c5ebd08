// Package feed fans session lifecycle events out to operator connections.
// Publishing never blocks a session; slow consumers drop events.
package feed

import (
	"time"

	"github.com/airwin/platform/internal/syncx"
)

// Event kinds.
const (
	KindSessionStarted  = "session_started"
	KindSessionRejected = "session_rejected"
	KindChunkTranscript = "chunk_transcript"
	KindOutcome         = "outcome"
	KindDelivery        = "delivery"
	KindSessionDone     = "session_done"
)

// Event is one session lifecycle notification.
type Event struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	CompName  string    `json:"comp_name,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Hub distributes events to subscribers.
type Hub struct {
	subs *syncx.RWGuard[map[chan Event]struct{}]
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{subs: syncx.NewGuard(make(map[chan Event]struct{}))}
}

// Subscribe registers a consumer; call the returned cancel when done.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	h.subs.Write(func(m *map[chan Event]struct{}) {
		(*m)[ch] = struct{}{}
	})
	cancel := func() {
		h.subs.Write(func(m *map[chan Event]struct{}) {
			delete(*m, ch)
		})
	}
	return ch, cancel
}

// Publish sends an event to all subscribers, non-blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.subs.Read(func(m map[chan Event]struct{}) any {
		for ch := range m {
			select {
			case ch <- ev:
			default:
			}
		}
		return nil
	})
}
