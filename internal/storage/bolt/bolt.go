// Package bolt provides a bbolt-backed storage backend for the
// larger-capacity local area. Values are stored as JSON documents, one
// bucket entry per key.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	bbolt "go.etcd.io/bbolt"

	"github.com/confsync/confsync/internal/storage"
)

// bucketName holds all settings entries.
var bucketName = []byte("settings")

// Backend is a bbolt-backed key-value store.
type Backend struct {
	db *bbolt.DB

	mu       sync.Mutex
	watchers map[uint64]storage.WatchFunc
	nextID   uint64
}

// Open opens (or creates) the database at path.
func Open(path string) (*Backend, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing local store: %w", err)
	}

	return &Backend{
		db:       db,
		watchers: make(map[uint64]storage.WatchFunc),
	}, nil
}

// Close closes the underlying database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Get returns the present keys among those requested.
func (b *Backend) Get(_ context.Context, keys []string) (map[string]any, error) {
	result := make(map[string]any)

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for _, k := range keys {
			raw := bucket.Get([]byte(k))
			if raw == nil {
				continue
			}
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decoding value for %q: %w", k, err)
			}
			result[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Set stores the items in one transaction and emits a change event for
// keys whose value actually changed.
func (b *Backend) Set(_ context.Context, items map[string]any) error {
	diffs := make(map[string]storage.Diff)

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for k, v := range items {
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encoding value for %q: %w", k, err)
			}

			var old any
			hadOld := false
			if prev := bucket.Get([]byte(k)); prev != nil {
				hadOld = true
				if err := json.Unmarshal(prev, &old); err != nil {
					old = nil
				}
			}
			if hadOld && reflect.DeepEqual(old, normalize(v)) {
				continue
			}

			if err := bucket.Put([]byte(k), raw); err != nil {
				return err
			}
			diffs[k] = storage.Diff{Old: old, New: v}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.emit(diffs)
	return nil
}

// Remove deletes the keys. Absent keys are ignored.
func (b *Backend) Remove(_ context.Context, keys []string) error {
	diffs := make(map[string]storage.Diff)

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for _, k := range keys {
			raw := bucket.Get([]byte(k))
			if raw == nil {
				continue
			}
			var old any
			if err := json.Unmarshal(raw, &old); err != nil {
				old = nil
			}
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
			diffs[k] = storage.Diff{Old: old}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.emit(diffs)
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

// emit delivers diffs to watchers.
func (b *Backend) emit(diffs map[string]storage.Diff) {
	if len(diffs) == 0 {
		return
	}
	b.mu.Lock()
	fns := make([]storage.WatchFunc, 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(diffs)
	}
}

// normalize round-trips a value through JSON so stored and in-memory
// representations compare equal (ints become float64, etc).
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
