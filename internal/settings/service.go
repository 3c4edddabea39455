// Package settings implements the public configuration surface on top
// of the schema registry and the backend areas.
//
// Read paths absorb backend failures and substitute registered
// defaults, because a configuration read must never block feature
// usage. Write and remove paths surface failures to the caller: a
// silently dropped write would misinform the user about the state of
// their settings. Operations spanning both areas issue their per-area
// calls concurrently and settle them all before aggregating the
// result.
package settings

import (
	"context"
	"sync/atomic"

	"github.com/confsync/confsync/internal/cache"
	"github.com/confsync/confsync/internal/logging"
	"github.com/confsync/confsync/internal/notify"
	"github.com/confsync/confsync/internal/schema"
	"github.com/confsync/confsync/internal/storage"
)

// Service is the configuration service for one execution context. It
// is constructed once per context and passed by reference to all
// consumers; there is no package-level instance.
type Service struct {
	registry *schema.Registry
	adapter  *storage.Adapter
	notifier *notify.Notifier
	logger   *logging.Logger

	// values caches resolved single-key reads. Change events, local or
	// from another context, invalidate the affected keys; the TTL
	// bounds staleness for changes no event reported.
	values *cache.Cache[any]

	initialized  atomic.Bool
	watchCancels []func()
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithNotifier sets the change notifier. A default notifier wired to
// the registry's broadcast keys is created otherwise.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// New creates a Service over one backend per area. The service
// subscribes to each backend's native change events so changes applied
// by other contexts reach this context's listeners.
func New(registry *schema.Registry, backends map[storage.Area]storage.Backend, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		adapter:  storage.NewAdapter(backends),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.NewLogger(logging.DefaultConfig())
	}
	if s.notifier == nil {
		s.notifier = notify.New(s.logger,
			notify.WithBroadcastKeys(registry.BroadcastKeys()))
	}

	s.values = cache.New[any](cache.DefaultCapacity, cache.DefaultTTL)
	s.notifier.Subscribe(func(changes notify.Changes) {
		for k := range changes {
			s.values.Delete(k)
		}
	})

	for area := range backends {
		cancel := s.adapter.Watch(area, s.notifier.HandleBackendChange)
		s.watchCancels = append(s.watchCancels, cancel)
	}

	return s
}

// Close detaches the service from backend change events.
func (s *Service) Close() {
	for _, cancel := range s.watchCancels {
		cancel()
	}
	s.watchCancels = nil
	s.values.Stop()
}

// Notifier returns the service's change notifier.
func (s *Service) Notifier() *notify.Notifier {
	return s.notifier
}

// Registry returns the schema registry.
func (s *Service) Registry() *schema.Registry {
	return s.registry
}

// IsInitialized reports whether default seeding has completed (even if
// it completed with an error).
func (s *Service) IsInitialized() bool {
	return s.initialized.Load()
}

// OnChanged registers a listener for settings change events.
func (s *Service) OnChanged(listener notify.Listener) *notify.Subscription {
	return s.notifier.Subscribe(listener)
}

// AttachLevelSync seeds the synchronizer's logger from the stored
// loggingLevel setting and keeps it synchronized with later changes:
// a successful write of loggingLevel reaches the synchronizer through
// the broadcast path, which applies it locally and announces it to
// other contexts. Seeding absorbs read failures the way Get does, so
// an unreachable backend leaves the level at the registered default.
func (s *Service) AttachLevelSync(ctx context.Context, sync *logging.Synchronizer) {
	if v, err := s.Get(ctx, logging.LevelSettingKey); err == nil {
		sync.ApplyLevel(v)
	}
	s.notifier.OnBroadcast(func(changes notify.Changes) {
		sync.HandleLocalChange(changes)
	})
}

// Get returns the value of one setting, served from the read cache
// when possible. A backend failure is logged and absorbed: the
// registered default is returned instead. Only an unknown key is an
// error.
func (s *Service) Get(ctx context.Context, key string) (any, error) {
	setting, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}

	if v, ok := s.values.Get(key); ok {
		return v, nil
	}

	values, err := s.adapter.Get(ctx, setting.Area, []string{key})
	if err != nil {
		// The failure is not cached: the next read retries the backend.
		s.logStorageError("reading setting, returning default", err)
		return setting.Default, nil
	}

	resolved := setting.Default
	if v, ok := values[key]; ok && v != nil {
		resolved = v
	}
	s.values.Put(key, resolved)
	return resolved, nil
}

// Set writes one setting. The classified error is returned on
// failure; on success the change event is delivered to listeners.
func (s *Service) Set(ctx context.Context, key string, value any) error {
	setting, err := s.registry.Get(key)
	if err != nil {
		return err
	}
	if err := setting.Validate(value); err != nil {
		return err
	}

	release := s.notifier.BeginLocal([]string{key})
	defer release()

	if err := s.adapter.Set(ctx, setting.Area, map[string]any{key: value}); err != nil {
		s.logStorageError("writing setting", err)
		return err
	}

	s.notifier.Publish(notify.Changes{key: value})
	return nil
}

// Remove deletes one setting from its area. Reads of the key fall back
// to the registered default afterwards.
func (s *Service) Remove(ctx context.Context, key string) error {
	setting, err := s.registry.Get(key)
	if err != nil {
		return err
	}

	release := s.notifier.BeginLocal([]string{key})
	defer release()

	if err := s.adapter.Remove(ctx, setting.Area, []string{key}); err != nil {
		s.logStorageError("removing setting", err)
		return err
	}

	s.notifier.Publish(notify.Changes{key: nil})
	return nil
}

// GetFromStorage reads keys from one explicit area, bypassing schema
// defaulting. For advanced callers and internal use.
func (s *Service) GetFromStorage(ctx context.Context, area storage.Area, keys []string) (map[string]any, error) {
	values, err := s.adapter.Get(ctx, area, keys)
	if err != nil {
		s.logStorageError("reading from area", err)
		return nil, err
	}
	return values, nil
}

// SetToStorage writes items to one explicit area.
func (s *Service) SetToStorage(ctx context.Context, area storage.Area, items map[string]any) error {
	if err := s.adapter.Set(ctx, area, items); err != nil {
		s.logStorageError("writing to area", err)
		return err
	}
	return nil
}

// RemoveFromStorage deletes keys from one explicit area.
func (s *Service) RemoveFromStorage(ctx context.Context, area storage.Area, keys []string) error {
	if err := s.adapter.Remove(ctx, area, keys); err != nil {
		s.logStorageError("removing from area", err)
		return err
	}
	return nil
}

// logStorageError logs a classified failure with its full context.
func (s *Service) logStorageError(msg string, err error) {
	if se, ok := AsStorageError(err); ok {
		s.logger.WithFields(se.Fields()).Error("%s: %v (%s)", msg, se.Err, se.RecoveryAction)
		return
	}
	s.logger.Error("%s: %v", msg, err)
}
