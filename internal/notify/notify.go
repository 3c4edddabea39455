// Package notify delivers settings change events to same-context
// listeners.
//
// Events arrive either from a backend's native change subscription or
// directly from the orchestrator after a successful write. Both paths
// funnel through the same dedupe: a key whose value did not actually
// change since the last delivered event is dropped. Service-originated
// writes additionally suppress their own native echo (see BeginLocal),
// so a multi-key write is delivered as one event covering the whole
// change map instead of one fragment per backend.
package notify

import (
	"reflect"
	"sync"

	"github.com/confsync/confsync/internal/logging"
	"github.com/confsync/confsync/internal/storage"
)

// Changes maps changed keys to their new values. A nil value means the
// key was removed.
type Changes map[string]any

// Listener is called with each delivered change event.
type Listener func(changes Changes)

// Subscription represents one registered listener.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages change listeners for one context.
type Notifier struct {
	mu        sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64

	// lastSeen holds the most recently delivered value per key, used
	// to drop redundant events.
	lastSeen map[string]any

	// suppressed counts in-flight local writes per key; native backend
	// events for those keys are absorbed.
	suppressed map[string]int

	// broadcastKeys marks keys whose changes are handed to forward.
	broadcastKeys map[string]struct{}
	forward       func(changes Changes)

	logger *logging.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBroadcastKeys designates the keys whose changes are forwarded on
// the cross-context broadcast path.
func WithBroadcastKeys(keys []string) Option {
	return func(n *Notifier) {
		for _, k := range keys {
			n.broadcastKeys[k] = struct{}{}
		}
	}
}

// New creates a Notifier. logger may be nil.
func New(logger *logging.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		listeners:     make(map[uint64]Listener),
		lastSeen:      make(map[string]any),
		suppressed:    make(map[string]int),
		broadcastKeys: make(map[string]struct{}),
		logger:        logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe registers a listener for all change events. Multiple
// independent listeners are supported.
func (n *Notifier) Subscribe(listener Listener) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.listeners[id] = listener

	return &Subscription{id: id, notifier: n}
}

// OnBroadcast installs the forwarding hook for broadcast-worthy keys.
func (n *Notifier) OnBroadcast(fn func(changes Changes)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.forward = fn
}

// BeginLocal marks keys as being written by this context. Native
// backend events for them are absorbed until the returned release
// function runs, leaving delivery to the writer's own Publish.
func (n *Notifier) BeginLocal(keys []string) (release func()) {
	n.mu.Lock()
	for _, k := range keys {
		n.suppressed[k]++
	}
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			for _, k := range keys {
				if n.suppressed[k] <= 1 {
					delete(n.suppressed, k)
				} else {
					n.suppressed[k]--
				}
			}
			n.mu.Unlock()
		})
	}
}

// HandleBackendChange normalizes a backend's native change diffs into
// a change event and delivers it. Keys under an in-flight local write
// are dropped.
func (n *Notifier) HandleBackendChange(diffs map[string]storage.Diff) {
	n.mu.Lock()
	changes := make(Changes, len(diffs))
	for k, d := range diffs {
		if n.suppressed[k] > 0 {
			continue
		}
		changes[k] = d.New
	}
	n.mu.Unlock()

	if len(changes) == 0 {
		return
	}
	n.Publish(changes)
}

// Publish delivers a change event to every listener. Keys whose value
// matches the last delivered value are dropped; an event with no
// remaining keys is not delivered at all.
func (n *Notifier) Publish(changes Changes) {
	n.mu.Lock()

	delivered := make(Changes, len(changes))
	for k, v := range changes {
		if prev, seen := n.lastSeen[k]; seen && reflect.DeepEqual(prev, v) {
			continue
		}
		n.lastSeen[k] = v
		delivered[k] = v
	}

	if len(delivered) == 0 {
		n.mu.Unlock()
		return
	}

	listeners := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	forward := n.forward

	var broadcast Changes
	for k := range n.broadcastKeys {
		if v, ok := delivered[k]; ok {
			if broadcast == nil {
				broadcast = make(Changes)
			}
			broadcast[k] = v
		}
	}
	n.mu.Unlock()

	for _, l := range listeners {
		n.invoke(l, delivered)
	}

	if forward != nil && len(broadcast) > 0 {
		forward(broadcast)
	}
}

// unsubscribe removes a listener by ID.
func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, id)
}

// invoke calls one listener, recovering a panic so a broken listener
// cannot prevent the others from running.
func (n *Notifier) invoke(l Listener, changes Changes) {
	defer func() {
		if r := recover(); r != nil {
			if n.logger != nil {
				n.logger.Error("change listener panic: %v", r)
			}
		}
	}()
	l(changes)
}
