// Package stream fans login events out to the admin dashboards watching an
// organization.
package stream

import (
	"context"
	"sync"
	"time"

	"audient.app/internal/workhours"
)

// LoginEvent is published for every successful login of an organization member.
type LoginEvent struct {
	OrganizationID string           `json:"organization_id"`
	UserID         string           `json:"user_id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Period         workhours.Period `json:"period,omitempty"`
	Status         string           `json:"status"`
	Latitude       *float64         `json:"latitude"`
	Longitude      *float64         `json:"longitude"`
	LoginAt        time.Time        `json:"login_at"`
}

type subscriber struct {
	orgID string
	ch    chan LoginEvent
}

// Hub delivers events to the subscribers of the event's organization.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	buffer  int
	dropped int
}

// New initialises an empty hub. buffer is the per-subscriber queue length.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[int]subscriber), buffer: buffer}
}

// Subscribe registers a subscriber for orgID. The channel is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, orgID string) <-chan LoginEvent {
	ch := make(chan LoginEvent, h.buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscriber{orgID: orgID, ch: ch}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish hands evt to every subscriber of its organization. Events without
// an organization have no audience and are dropped.
func (h *Hub) Publish(evt LoginEvent) {
	if evt.OrganizationID == "" {
		return
	}
	h.mu.RLock()
	var missed int
	for _, sub := range h.subs {
		if sub.orgID != evt.OrganizationID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Slow subscriber.
			missed++
		}
	}
	h.mu.RUnlock()
	if missed > 0 {
		h.mu.Lock()
		h.dropped += missed
		h.mu.Unlock()
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for full queues.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
