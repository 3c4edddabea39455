// Package broker provides best-effort point-to-point messaging between
// execution contexts.
//
// Contexts (the background process, per-page content scripts, and
// transient UI surfaces) register with the broker while they are
// alive. A send to a context that no longer exists fails; a broadcast
// fans out independent sends and settles them all, so one unreachable
// target never aborts delivery to the rest.
package broker

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Errors returned by the broker.
var (
	// ErrTargetNotFound indicates the target context does not exist.
	ErrTargetNotFound = errors.New("target context not found")

	// ErrNoHandler indicates the target context never installed a
	// message handler.
	ErrNoHandler = errors.New("target context has no message handler")
)

// Message is the unit of cross-context communication.
type Message struct {
	// Type discriminates the message.
	Type string

	// Payload carries the message body.
	Payload any
}

// Handler processes one incoming message and returns a synchronous
// response.
type Handler func(msg Message) (any, error)

// Context is one live execution context known to the broker.
type Context struct {
	// ID uniquely identifies the context.
	ID string

	// URL is the page URL the context is attached to. Empty for
	// contexts without a page (background, popup).
	URL string

	// Handler receives messages sent to this context. May be nil for
	// contexts that never listen.
	Handler Handler
}

// SendResult records the outcome of one delivery during a broadcast.
type SendResult struct {
	// Target is the context the send addressed.
	Target string

	// Response is the handler's response on success.
	Response any

	// Err is the delivery failure, nil on success.
	Err error
}

// Broker tracks live contexts and routes messages between them.
type Broker struct {
	mu       sync.RWMutex
	contexts map[string]Context
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{
		contexts: make(map[string]Context),
	}
}

// Register adds or replaces a live context. Returns a deregistration
// func invoked when the context goes away.
func (b *Broker) Register(ctx Context) (deregister func()) {
	b.mu.Lock()
	b.contexts[ctx.ID] = ctx
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.contexts, ctx.ID)
		b.mu.Unlock()
	}
}

// Contexts returns a snapshot of the live contexts.
func (b *Broker) Contexts() []Context {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Context, 0, len(b.contexts))
	for _, c := range b.contexts {
		result = append(result, c)
	}
	return result
}

// Send delivers a message to one named context and returns its
// response. Fails if the target does not exist or panics.
func (b *Broker) Send(target string, msg Message) (any, error) {
	b.mu.RLock()
	ctx, ok := b.contexts[target]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
	}
	if ctx.Handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, target)
	}

	return deliver(ctx.Handler, msg)
}

// Broadcast sends a message to every live context whose URL matches
// one of the patterns, except the sender itself. Deliveries run
// concurrently and all settle; per-target failures are reported in the
// results, never returned as an error.
func (b *Broker) Broadcast(sender string, msg Message, patterns []string) []SendResult {
	b.mu.RLock()
	var targets []Context
	for _, c := range b.contexts {
		if c.ID == sender {
			continue
		}
		if matchesAny(c.URL, patterns) {
			targets = append(targets, c)
		}
	}
	b.mu.RUnlock()

	results := make([]SendResult, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target Context) {
			defer wg.Done()

			if target.Handler == nil {
				results[i] = SendResult{Target: target.ID, Err: fmt.Errorf("%w: %s", ErrNoHandler, target.ID)}
				return
			}
			resp, err := deliver(target.Handler, msg)
			results[i] = SendResult{Target: target.ID, Response: resp, Err: err}
		}(i, target)
	}
	wg.Wait()

	return results
}

// deliver invokes a handler, converting a panic into a send failure so
// a broken receiver looks like an unreachable one.
func deliver(h Handler, msg Message) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(msg)
}

// matchesAny reports whether url matches any of the patterns. A
// pattern ending in "*" matches by prefix; otherwise it must match
// exactly. An empty pattern list matches every context.
func matchesAny(url string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(url, strings.TrimSuffix(p, "*")) {
				return true
			}
		} else if url == p {
			return true
		}
	}
	return false
}
