package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event is one live-channel frame, already shaped for the wire.
type Event struct {
	Type    string  `json:"type"`
	WineIDs []int64 `json:"wineIds,omitempty"`
}

const (
	EventConnected       = "connected"
	EventRecommendations = "wine_recommendations"
)

// Registry fans recommendation events out to connected SSE subscribers.
// Delivery is best-effort: a subscriber that cannot keep up has the event
// dropped rather than blocking the search path.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	buffer      int

	onPublish          func()
	onSubscriberChange func(delta int)
}

type RegistryOption func(*Registry)

// WithHooks wires gauge/counter callbacks without coupling the registry to
// a metrics registry.
func WithHooks(onPublish func(), onSubscriberChange func(delta int)) RegistryOption {
	return func(r *Registry) {
		r.onPublish = onPublish
		r.onSubscriberChange = onSubscriberChange
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	registry := &Registry{
		subscribers: make(map[string]chan Event),
		buffer:      8,
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry
}

// Subscribe registers a listener and returns its channel plus an
// unsubscribe func. The channel is never closed by the registry; listeners
// exit via their own context.
func (r *Registry) Subscribe() (string, <-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, r.buffer)

	r.mu.Lock()
	r.subscribers[id] = ch
	r.mu.Unlock()

	if r.onSubscriberChange != nil {
		r.onSubscriberChange(1)
	}

	unsubscribe := func() {
		r.mu.Lock()
		_, ok := r.subscribers[id]
		delete(r.subscribers, id)
		r.mu.Unlock()
		if ok && r.onSubscriberChange != nil {
			r.onSubscriberChange(-1)
		}
	}
	return id, ch, unsubscribe
}

// Publish implements the recommendation fan-out. Always called after a
// search, including with an empty id list, so listeners can clear stale
// highlights.
func (r *Registry) Publish(wineIDs []int64) {
	event := Event{Type: EventRecommendations, WineIDs: wineIDs}

	r.mu.RLock()
	channels := make([]chan Event, 0, len(r.subscribers))
	for _, ch := range r.subscribers {
		channels = append(channels, ch)
	}
	r.mu.RUnlock()

	dropped := 0
	for _, ch := range channels {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("live_event_dropped", "subscribers", len(channels), "dropped", dropped)
	}
	if r.onPublish != nil {
		r.onPublish()
	}
}

func (r *Registry) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Fanout duplicates publishes across several publishers, typically the
// local SSE registry plus the NATS broker.
type Fanout struct {
	targets []interface{ Publish([]int64) }
}

func NewFanout(targets ...interface{ Publish([]int64) }) *Fanout {
	return &Fanout{targets: targets}
}

func (f *Fanout) Publish(wineIDs []int64) {
	for _, target := range f.targets {
		target.Publish(wineIDs)
	}
}

// Encode renders an event as an SSE data payload.
func (e Event) Encode() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"type":"error"}`)
	}
	return data
}
