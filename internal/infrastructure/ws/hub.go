// Package ws delivers accepted vehicle updates to live map viewers over
// WebSocket. The Hub keeps the subscriber registry; each subscriber owns a
// bounded outbound queue so one slow client never delays the others or the
// ingesting request.
package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/fleettrack/tracking-system/internal/api/metrics"
	"github.com/fleettrack/tracking-system/internal/core/ports"
)

const defaultBuffer = 64

// Hub implements ports.UpdateBroadcaster for locally connected WebSocket
// subscribers. Subscribers added after an update was broadcast do not
// receive it; there is no replay.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	buffer int
	log    zerolog.Logger
}

type subscriber struct {
	send chan ports.VehicleUpdate
}

// NewHub creates a Hub whose subscribers buffer up to buffer pending
// updates each. Non-positive values fall back to a sane default.
func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Broadcast delivers one update to every current subscriber. The send is
// non-blocking per subscriber: when a queue is full the update is dropped
// for that subscriber only. Stale positions are low-value, so dropping
// beats blocking.
func (h *Hub) Broadcast(update ports.VehicleUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.send <- update:
			metrics.BroadcastDeliveredTotal.WithLabelValues("websocket").Inc()
		default:
			metrics.BroadcastDroppedTotal.WithLabelValues("websocket").Inc()
			h.log.Debug().Str("vehicle_id", update.VehicleID).Msg("subscriber queue full, update dropped")
		}
	}
}

// subscribe registers a new subscriber and returns it. The subscriber
// starts receiving updates broadcast from this moment on.
func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{send: make(chan ports.VehicleUpdate, h.buffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	metrics.LiveSubscribers.Inc()
	return sub
}

// unsubscribe removes a subscriber and closes its queue. Closing under the
// write lock is safe: Broadcast only sends while holding the read lock, so
// no send can race the close.
func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
	metrics.LiveSubscribers.Dec()
}

// SubscriberCount reports how many subscribers are currently registered.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
