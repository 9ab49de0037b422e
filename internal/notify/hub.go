// Package notify fans serialized snapshots of the shared document out to live
// subscribers.
package notify

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"onboarding-hub/internal/domain"
	"onboarding-hub/internal/metrics"
)

type Hub struct {
	mu          sync.Mutex
	subscribers map[uint64]Sink
	nextID      uint64
	latest      []byte
}

func NewHub() *Hub {
	initial, _ := json.Marshal(domain.NewSharedDocument())
	return &Hub{
		subscribers: make(map[uint64]Sink),
		latest:      initial,
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id  uint64
	hub *Hub
}

// Unsubscribe removes the subscriber. Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	s.hub.unsubscribe(s.id)
}

// Subscribe registers sink and immediately sends it the latest snapshot. A
// sink that cannot take the first snapshot is closed and never registered.
func (h *Hub) Subscribe(sink Sink) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{id: h.nextID, hub: h}
	if err := sink.Send(h.latest); err != nil {
		log.Debug().Err(err).Uint64("subscriber", sub.id).Msg("initial snapshot not delivered")
		sink.Close()
		metrics.RecordSubscriberDropped()
		return sub
	}
	h.subscribers[sub.id] = sink
	metrics.SetSubscribers(len(h.subscribers))
	return sub
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sink, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		sink.Close()
		metrics.SetSubscribers(len(h.subscribers))
	}
}

// Broadcast serializes doc once and writes it to every subscriber. Failing
// subscribers are dropped; the rest still receive the snapshot.
func (h *Hub) Broadcast(doc domain.SharedDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = payload
	for id, sink := range h.subscribers {
		if err := sink.Send(payload); err != nil {
			log.Info().Err(err).Uint64("subscriber", id).Msg("dropping subscriber")
			delete(h.subscribers, id)
			sink.Close()
			metrics.RecordSubscriberDropped()
		}
	}
	metrics.SetSubscribers(len(h.subscribers))
	metrics.RecordBroadcast()
	return nil
}

// Len reports the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
