package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/confsync/confsync/internal/storage"
)

// Errors returned by the schema registry.
var (
	// ErrSettingAlreadyRegistered indicates a duplicate registration.
	ErrSettingAlreadyRegistered = errors.New("setting already registered")

	// ErrUnknownSetting indicates an operation on an unregistered key.
	// This is a programmer error, not a storage failure.
	ErrUnknownSetting = errors.New("unknown setting")
)

// Registry maintains all known setting definitions.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]*Setting
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		settings: make(map[string]*Setting),
	}
}

// NewWithDefaults creates a registry with the built-in settings.
func NewWithDefaults() *Registry {
	r := New()
	r.RegisterDefaults()
	return r
}

// Register adds a setting definition. Returns an error if a setting
// with the same key already exists.
func (r *Registry) Register(setting Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.settings[setting.Key]; exists {
		return fmt.Errorf("%w: %s", ErrSettingAlreadyRegistered, setting.Key)
	}

	s := &setting // Copy to heap
	r.settings[setting.Key] = s
	return nil
}

// MustRegister registers a setting and panics on error. Useful for
// registering built-in settings at startup.
func (r *Registry) MustRegister(setting Setting) {
	if err := r.Register(setting); err != nil {
		panic(err)
	}
}

// Get returns the setting definition for the key, or an error if the
// key is not registered.
func (r *Registry) Get(key string) (*Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return s, nil
}

// Has checks if a setting is registered.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.settings[key]
	return exists
}

// All returns all registered settings sorted by key.
func (r *Registry) All() []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Setting, 0, len(r.settings))
	for _, s := range r.settings {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// Keys returns every registered key sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.settings))
	for k := range r.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysForArea returns the keys assigned to one area, sorted.
func (r *Registry) KeysForArea(area storage.Area) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for k, s := range r.settings {
		if s.Area == area {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Partition splits keys by their area assignment. Returns an error on
// the first unknown key.
func (r *Registry) Partition(keys []string) (map[storage.Area][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byArea := make(map[storage.Area][]string)
	for _, k := range keys {
		s, ok := r.settings[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, k)
		}
		byArea[s.Area] = append(byArea[s.Area], k)
	}
	return byArea, nil
}

// Default returns the default value for a key, or an error if the key
// is not registered.
func (r *Registry) Default(key string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return s.Default, nil
}

// Defaults returns a map of all default values.
func (r *Registry) Defaults() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]any, len(r.settings))
	for k, s := range r.settings {
		result[k] = s.Default
	}
	return result
}

// BroadcastKeys returns the keys whose changes must reach other
// contexts, sorted.
func (r *Registry) BroadcastKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for k, s := range r.settings {
		if s.Broadcast {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if a value is valid for a setting.
func (r *Registry) Validate(key string, value any) error {
	r.mu.RLock()
	s, ok := r.settings[key]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return s.Validate(value)
}
