// Package memory provides an in-process storage backend.
//
// The memory backend serves transient contexts that do not outlive the
// process, and doubles as the failure-injection backend in tests: any
// of the three operations can be forced to fail with a chosen error.
package memory

import (
	"context"
	"reflect"
	"sync"

	"github.com/confsync/confsync/internal/storage"
)

// Backend is an in-memory key-value store with native change events.
type Backend struct {
	mu       sync.RWMutex
	items    map[string]any
	watchers map[uint64]storage.WatchFunc
	nextID   uint64

	// Injected failures, one per operation. Nil means succeed.
	getErr    error
	setErr    error
	removeErr error
}

// New creates an empty memory backend.
func New() *Backend {
	return &Backend{
		items:    make(map[string]any),
		watchers: make(map[uint64]storage.WatchFunc),
	}
}

// Get returns the present keys among those requested.
func (b *Backend) Get(_ context.Context, keys []string) (map[string]any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.getErr != nil {
		return nil, b.getErr
	}

	result := make(map[string]any)
	for _, k := range keys {
		if v, ok := b.items[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

// Set stores the items and emits a change event for keys whose value
// actually changed.
func (b *Backend) Set(_ context.Context, items map[string]any) error {
	b.mu.Lock()
	if b.setErr != nil {
		err := b.setErr
		b.mu.Unlock()
		return err
	}

	diffs := make(map[string]storage.Diff)
	for k, v := range items {
		old, had := b.items[k]
		if had && reflect.DeepEqual(old, v) {
			continue
		}
		b.items[k] = v
		diffs[k] = storage.Diff{Old: old, New: v}
	}
	fns := b.watcherList()
	b.mu.Unlock()

	b.emit(fns, diffs)
	return nil
}

// Remove deletes the keys. Absent keys are ignored.
func (b *Backend) Remove(_ context.Context, keys []string) error {
	b.mu.Lock()
	if b.removeErr != nil {
		err := b.removeErr
		b.mu.Unlock()
		return err
	}

	diffs := make(map[string]storage.Diff)
	for _, k := range keys {
		if old, ok := b.items[k]; ok {
			delete(b.items, k)
			diffs[k] = storage.Diff{Old: old}
		}
	}
	fns := b.watcherList()
	b.mu.Unlock()

	b.emit(fns, diffs)
	return nil
}

// Watch registers a native change subscriber.
func (b *Backend) Watch(fn storage.WatchFunc) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	}
}

// FailGet forces subsequent Get calls to fail with err. Nil clears.
func (b *Backend) FailGet(err error) {
	b.mu.Lock()
	b.getErr = err
	b.mu.Unlock()
}

// FailSet forces subsequent Set calls to fail with err. Nil clears.
func (b *Backend) FailSet(err error) {
	b.mu.Lock()
	b.setErr = err
	b.mu.Unlock()
}

// FailRemove forces subsequent Remove calls to fail with err. Nil clears.
func (b *Backend) FailRemove(err error) {
	b.mu.Lock()
	b.removeErr = err
	b.mu.Unlock()
}

// Len returns the number of stored keys.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// watcherList snapshots the current watchers. Caller holds the lock.
func (b *Backend) watcherList() []storage.WatchFunc {
	fns := make([]storage.WatchFunc, 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	return fns
}

// emit delivers diffs to watchers outside the lock.
func (b *Backend) emit(fns []storage.WatchFunc, diffs map[string]storage.Diff) {
	if len(diffs) == 0 {
		return
	}
	for _, fn := range fns {
		fn(diffs)
	}
}
