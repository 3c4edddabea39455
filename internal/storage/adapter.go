package storage

import (
	"context"
	"sort"
)

// Adapter binds one backend per area behind a uniform get/set/remove
// surface. Every failure leaving the adapter is a *StorageError.
type Adapter struct {
	backends map[Area]Backend
}

// NewAdapter creates an adapter over the given area backends.
func NewAdapter(backends map[Area]Backend) *Adapter {
	bound := make(map[Area]Backend, len(backends))
	for area, b := range backends {
		bound[area] = b
	}
	return &Adapter{backends: bound}
}

// Backend returns the backend bound to the area, or nil.
func (a *Adapter) Backend(area Area) Backend {
	return a.backends[area]
}

// Get reads keys from one area. Missing keys are absent from the
// result; only a backend failure is an error.
func (a *Adapter) Get(ctx context.Context, area Area, keys []string) (map[string]any, error) {
	opctx := NewOperationContext(OpGet, area, keys, "Adapter.Get")
	opctx = opctx.WithExtra(CallerContext(ctx))

	b, ok := a.backends[area]
	if !ok {
		return nil, Classify(ErrAreaNotConfigured, opctx)
	}

	values, err := b.Get(ctx, keys)
	if err != nil {
		return nil, Classify(err, opctx)
	}
	return values, nil
}

// Set writes items to one area.
func (a *Adapter) Set(ctx context.Context, area Area, items map[string]any) error {
	opctx := NewOperationContext(OpSet, area, itemKeys(items), "Adapter.Set")
	opctx = opctx.WithExtra(CallerContext(ctx))
	opctx = opctx.WithExtra(map[string]any{"itemCount": len(items)})

	b, ok := a.backends[area]
	if !ok {
		return Classify(ErrAreaNotConfigured, opctx)
	}

	if err := b.Set(ctx, items); err != nil {
		return Classify(err, opctx)
	}
	return nil
}

// Remove deletes keys from one area. Removing an absent key is not an
// error.
func (a *Adapter) Remove(ctx context.Context, area Area, keys []string) error {
	opctx := NewOperationContext(OpRemove, area, keys, "Adapter.Remove")
	opctx = opctx.WithExtra(CallerContext(ctx))
	opctx = opctx.WithExtra(map[string]any{"keyCount": len(keys)})

	b, ok := a.backends[area]
	if !ok {
		return Classify(ErrAreaNotConfigured, opctx)
	}

	if err := b.Remove(ctx, keys); err != nil {
		return Classify(err, opctx)
	}
	return nil
}

// Watch subscribes to an area's native change events, if the backend
// supports them. Returns a no-op cancel func otherwise.
func (a *Adapter) Watch(area Area, fn WatchFunc) (cancel func()) {
	if w, ok := a.backends[area].(Watchable); ok {
		return w.Watch(fn)
	}
	return func() {}
}

// itemKeys returns sorted item keys for stable error context.
func itemKeys(items map[string]any) []string {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
