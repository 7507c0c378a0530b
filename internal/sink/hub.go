package sink

import (
	"context"
	"sync"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/pkg/id"
	"github.com/agenttrace/instrument/internal/pkg/metrics"
)

// Subscriber receives records published to a Hub
type Subscriber struct {
	ID      string
	AppID   string
	Channel chan *domain.CallRecord
	Done    chan struct{}
}

// Hub fans records out to in-process subscribers. A subscriber whose buffer
// is full misses the record.
type Hub struct {
	buffer int

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

// NewHub creates a hub whose subscribers buffer up to buffer records
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 100
	}
	return &Hub{
		buffer:      buffer,
		subscribers: make(map[string]*Subscriber),
	}
}

// Name implements Named
func (h *Hub) Name() string { return "hub" }

// Subscribe registers a subscriber for appID's records; an empty appID
// receives every record. The subscription ends with ctx.
func (h *Hub) Subscribe(ctx context.Context, appID string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{
		ID:      id.NewUUID(),
		AppID:   appID,
		Channel: make(chan *domain.CallRecord, h.buffer),
		Done:    make(chan struct{}),
	}
	h.subscribers[sub.ID] = sub

	go func() {
		select {
		case <-ctx.Done():
			h.Unsubscribe(sub.ID)
		case <-sub.Done:
		}
	}()

	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (h *Hub) Unsubscribe(subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[subID]; ok {
		close(sub.Done)
		close(sub.Channel)
		delete(h.subscribers, subID)
	}
}

// Accept publishes rec to matching subscribers
func (h *Hub) Accept(_ context.Context, rec *domain.CallRecord) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if sub.AppID != "" && sub.AppID != rec.AppID {
			continue
		}
		select {
		case sub.Channel <- rec:
		default:
			metrics.RecordDropped(h.Name(), 1)
		}
	}
	return nil
}

// SubscriberCount returns the number of active subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
