package settings

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/confsync/confsync/internal/notify"
	"github.com/confsync/confsync/internal/storage"
)

// areaOutcome is one area's settled result within a multi-area write.
type areaOutcome struct {
	area storage.Area
	keys []string
	err  error
}

// GetMultiple reads several settings, partitioning them by area and
// issuing one concurrent read per touched area. Missing keys fall back
// to their registered defaults. Unlike Get, a backend failure in any
// area rejects the whole call: callers that want per-key tolerance
// read keys individually.
func (s *Service) GetMultiple(ctx context.Context, keys []string) (map[string]any, error) {
	byArea, err := s.registry.Partition(keys)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	merged := make(map[string]any, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for area, areaKeys := range byArea {
		area, areaKeys := area, areaKeys
		g.Go(func() error {
			values, err := s.adapter.Get(gctx, area, areaKeys)
			if err != nil {
				return err
			}
			mu.Lock()
			for k, v := range values {
				merged[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logStorageError("reading settings", err)
		return nil, err
	}

	for _, k := range keys {
		if v, ok := merged[k]; ok && v != nil {
			continue
		}
		def, err := s.registry.Default(k)
		if err != nil {
			return nil, err
		}
		merged[k] = def
	}
	return merged, nil
}

// SetMultiple writes several settings, one concurrent write per
// touched area. All per-area writes settle before the result is
// aggregated: full success delivers one change event covering the
// whole change map, total failure returns a CompleteFailureError, and
// a mixed outcome returns a PartialFailureError naming the areas that
// succeeded and failed.
func (s *Service) SetMultiple(ctx context.Context, changes map[string]any) error {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	byArea, err := s.registry.Partition(keys)
	if err != nil {
		return err
	}
	for k, v := range changes {
		if err := s.registry.Validate(k, v); err != nil {
			return err
		}
	}

	ctx = storage.WithCallerContext(ctx, map[string]any{"batchId": uuid.NewString()})

	release := s.notifier.BeginLocal(keys)
	defer release()

	outcomes := s.settleWrites(ctx, byArea, func(ctx context.Context, area storage.Area, areaKeys []string) error {
		items := make(map[string]any, len(areaKeys))
		for _, k := range areaKeys {
			items[k] = changes[k]
		}
		return s.adapter.Set(ctx, area, items)
	})

	if err := s.aggregate("writing settings", outcomes); err != nil {
		return err
	}

	s.notifier.Publish(notify.Changes(changes))
	return nil
}

// ClearAll removes every known key from both areas, regardless of
// per-key area assignment, because historical or default keys may
// exist in either. Aggregation follows SetMultiple.
func (s *Service) ClearAll(ctx context.Context) error {
	keys := s.registry.Keys()
	byArea := make(map[storage.Area][]string, 2)
	for _, area := range storage.Areas() {
		byArea[area] = keys
	}

	release := s.notifier.BeginLocal(keys)
	defer release()

	outcomes := s.settleWrites(ctx, byArea, func(ctx context.Context, area storage.Area, areaKeys []string) error {
		return s.adapter.Remove(ctx, area, areaKeys)
	})

	if err := s.aggregate("clearing settings", outcomes); err != nil {
		return err
	}

	cleared := make(notify.Changes, len(keys))
	for _, k := range keys {
		cleared[k] = nil
	}
	s.notifier.Publish(cleared)
	return nil
}

// GetAll reads every registered setting across both areas. It never
// fails: full-settings hydration runs at startup and must not block
// initialization, so any backend failure is logged and the affected
// keys are substituted with their defaults.
func (s *Service) GetAll(ctx context.Context) map[string]any {
	result := make(map[string]any, len(s.registry.Keys()))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, area := range storage.Areas() {
		areaKeys := s.registry.KeysForArea(area)
		if len(areaKeys) == 0 {
			continue
		}
		wg.Add(1)
		go func(area storage.Area, areaKeys []string) {
			defer wg.Done()

			values, err := s.adapter.Get(ctx, area, areaKeys)
			if err != nil {
				s.logStorageError("hydrating settings, substituting defaults", err)
				return
			}
			mu.Lock()
			for k, v := range values {
				result[k] = v
			}
			mu.Unlock()
		}(area, areaKeys)
	}
	wg.Wait()

	for k, def := range s.registry.Defaults() {
		if v, ok := result[k]; !ok || v == nil {
			result[k] = def
		}
	}
	return result
}

// SetDefaultsForMissingKeys writes the registered default for every
// key not yet present in its area. Failures accumulate per area
// without aborting the remaining areas, and the service is marked
// initialized even when an aggregated error is returned: starting up
// with a reported error beats blocking startup indefinitely.
//
// The call is idempotent: once every key is present, a repeat call
// performs no writes.
func (s *Service) SetDefaultsForMissingKeys(ctx context.Context) error {
	defer s.initialized.Store(true)

	var agg *multierror.Error
	for _, area := range storage.Areas() {
		areaKeys := s.registry.KeysForArea(area)
		if len(areaKeys) == 0 {
			continue
		}

		present, err := s.adapter.Get(ctx, area, areaKeys)
		if err != nil {
			s.logStorageError("checking defaults", err)
			agg = multierror.Append(agg, err)
			continue
		}

		missing := make(map[string]any)
		for _, k := range areaKeys {
			if _, ok := present[k]; ok {
				continue
			}
			def, derr := s.registry.Default(k)
			if derr != nil {
				continue
			}
			missing[k] = def
		}
		if len(missing) == 0 {
			continue
		}

		if err := s.adapter.Set(ctx, area, missing); err != nil {
			s.logStorageError("writing defaults", err)
			agg = multierror.Append(agg, err)
		}
	}

	return agg.ErrorOrNil()
}

// settleWrites runs one write per touched area concurrently and waits
// for all of them, so one slow or failing area never delays or masks
// the other. Outcomes are reported in area order, replicated first.
func (s *Service) settleWrites(
	ctx context.Context,
	byArea map[storage.Area][]string,
	write func(ctx context.Context, area storage.Area, keys []string) error,
) []areaOutcome {
	type indexed struct {
		idx     int
		outcome areaOutcome
	}

	ordered := make([]storage.Area, 0, len(byArea))
	for _, area := range storage.Areas() {
		if _, ok := byArea[area]; ok {
			ordered = append(ordered, area)
		}
	}

	results := make([]areaOutcome, len(ordered))
	ch := make(chan indexed, len(ordered))
	for i, area := range ordered {
		go func(i int, area storage.Area, keys []string) {
			err := write(ctx, area, keys)
			ch <- indexed{idx: i, outcome: areaOutcome{area: area, keys: keys, err: err}}
		}(i, area, byArea[area])
	}
	for range ordered {
		r := <-ch
		results[r.idx] = r.outcome
	}
	return results
}

// aggregate folds settled per-area outcomes into nil, a complete
// failure, or a partial failure.
func (s *Service) aggregate(operation string, outcomes []areaOutcome) error {
	var successful, failed []AreaResult
	var areaErrs []AreaError
	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, AreaResult{Area: o.area, Keys: o.keys})
			areaErrs = append(areaErrs, AreaError{Area: o.area, Keys: o.keys, Err: o.err})
			continue
		}
		successful = append(successful, AreaResult{Area: o.area, Keys: o.keys})
	}

	switch {
	case len(failed) == 0:
		return nil
	case len(successful) == 0:
		err := newCompleteFailure(operation, areaErrs)
		s.logger.Error("%v", err)
		return err
	default:
		err := newPartialFailure(operation, successful, failed, areaErrs)
		s.logger.Error("%v", err)
		return err
	}
}
