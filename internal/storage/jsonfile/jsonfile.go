// Package jsonfile provides a storage backend that keeps an area as a
// single JSON document on disk.
//
// It models the replicated area: a per-item size quota is enforced on
// writes, mirroring the small item limits of cross-device stores.
// Reads and writes address keys inside the document with gjson/sjson.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/confsync/confsync/internal/storage"
)

// DefaultItemQuota is the per-item size limit in bytes (key plus
// JSON-encoded value).
const DefaultItemQuota = 8192

// Backend stores one area as a JSON object document.
type Backend struct {
	path      string
	itemQuota int

	mu       sync.Mutex
	doc      []byte
	watchers map[uint64]storage.WatchFunc
	nextID   uint64
}

// Option configures a Backend.
type Option func(*Backend)

// WithItemQuota overrides the per-item size limit. Zero disables the
// quota.
func WithItemQuota(bytes int) Option {
	return func(b *Backend) {
		b.itemQuota = bytes
	}
}

// Open loads (or creates) the document at path.
func Open(path string, opts ...Option) (*Backend, error) {
	b := &Backend{
		path:      path,
		itemQuota: DefaultItemQuota,
		doc:       []byte("{}"),
		watchers:  make(map[uint64]storage.WatchFunc),
	}
	for _, opt := range opts {
		opt(b)
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if !gjson.ValidBytes(raw) {
			return nil, fmt.Errorf("store %s is not valid JSON", path)
		}
		b.doc = raw
	case os.IsNotExist(err):
		// Fresh store
	default:
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return b, nil
}

// Get returns the present keys among those requested.
func (b *Backend) Get(_ context.Context, keys []string) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make(map[string]any)
	for _, k := range keys {
		if res := gjson.GetBytes(b.doc, escapeKey(k)); res.Exists() {
			result[k] = res.Value()
		}
	}
	return result, nil
}

// Set stores the items and persists the document. The per-item quota
// is checked before any key is written, so a Set either applies fully
// or not at all.
func (b *Backend) Set(_ context.Context, items map[string]any) error {
	b.mu.Lock()

	encoded := make(map[string][]byte, len(items))
	for k, v := range items {
		raw, err := json.Marshal(v)
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("encoding value for %q: %w", k, err)
		}
		if b.itemQuota > 0 && len(k)+len(raw) > b.itemQuota {
			b.mu.Unlock()
			return fmt.Errorf("quota exceeded: item %q is %d bytes, limit is %d",
				k, len(k)+len(raw), b.itemQuota)
		}
		encoded[k] = raw
	}

	doc := b.doc
	diffs := make(map[string]storage.Diff)
	for k, raw := range encoded {
		var old any
		hadOld := false
		if res := gjson.GetBytes(doc, escapeKey(k)); res.Exists() {
			hadOld = true
			old = res.Value()
		}

		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			b.mu.Unlock()
			return fmt.Errorf("decoding value for %q: %w", k, err)
		}
		if hadOld && reflect.DeepEqual(old, v) {
			continue
		}

		next, err := sjson.SetRawBytes(doc, escapeKey(k), raw)
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("writing %q: %w", k, err)
		}
		doc = next
		diffs[k] = storage.Diff{Old: old, New: v}
	}

	if len(diffs) == 0 {
		b.mu.Unlock()
		return nil
	}

	if err := b.persist(doc); err != nil {
		b.mu.Unlock()
		return err
	}
	b.doc = doc
	fns := b.watcherList()
	b.mu.Unlock()

	for _, fn := range fns {
		fn(diffs)
	}
	return nil
}

// Remove deletes the keys and persists the document. Absent keys are
// ignored.
func (b *Backend) Remove(_ context.Context, keys []string) error {
	b.mu.Lock()

	doc := b.doc
	diffs := make(map[string]storage.Diff)
	for _, k := range keys {
		res := gjson.GetBytes(doc, escapeKey(k))
		if !res.Exists() {
			continue
		}
		next, err := sjson.DeleteBytes(doc, escapeKey(k))
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("removing %q: %w", k, err)
		}
		doc = next
		diffs[k] = storage.Diff{Old: res.Value()}
	}

	if len(diffs) == 0 {
		b.mu.Unlock()
		return nil
	}

	if err := b.persist(doc); err != nil {
		b.mu.Unlock()
		return err
	}
	b.doc = doc
	fns := b.watcherList()
	b.mu.Unlock()

	for _, fn := range fns {
		fn(diffs)
	}
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

// persist atomically replaces the on-disk document. Caller holds the
// lock.
func (b *Backend) persist(doc []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".confsync-*")
	if err != nil {
		return fmt.Errorf("persisting store: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persisting store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persisting store: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persisting store: %w", err)
	}
	return nil
}

// watcherList snapshots the current watchers. Caller holds the lock.
func (b *Backend) watcherList() []storage.WatchFunc {
	fns := make([]storage.WatchFunc, 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	return fns
}

// escapeKey escapes every gjson/sjson path metacharacter so setting
// keys address top-level document members literally.
func escapeKey(k string) string {
	k = strings.ReplaceAll(k, `\`, `\\`)
	for _, meta := range []string{".", "*", "?", "|", "#", "@"} {
		k = strings.ReplaceAll(k, meta, `\`+meta)
	}
	return k
}
