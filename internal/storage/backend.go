package storage

import (
	"context"
	"errors"
)

// Errors returned by storage operations.
var (
	// ErrAreaNotConfigured indicates no backend is bound to the area.
	ErrAreaNotConfigured = errors.New("storage area not configured")
)

// Diff describes a single key's change as reported by a backend's
// native change subscription.
type Diff struct {
	// Old is the previous value (nil if the key was absent).
	Old any

	// New is the new value (nil if the key was removed).
	New any
}

// WatchFunc receives the per-key diffs of one backend change event.
type WatchFunc func(diffs map[string]Diff)

// Backend is the uniform contract over one key-value area.
//
// Get returns only the keys that are present; missing keys are simply
// absent from the result, never an error. Defaulting happens one layer
// up. Any error carries the backend's raw failure message.
type Backend interface {
	Get(ctx context.Context, keys []string) (map[string]any, error)
	Set(ctx context.Context, items map[string]any) error
	Remove(ctx context.Context, keys []string) error
}

// Watchable is implemented by backends that deliver native change
// events. Watch registers a subscriber and returns its cancel func.
type Watchable interface {
	Watch(fn WatchFunc) (cancel func())
}
