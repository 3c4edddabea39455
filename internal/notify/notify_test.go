package notify

import (
	"io"
	"testing"

	"github.com/confsync/confsync/internal/logging"
	"github.com/confsync/confsync/internal/storage"
)

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.LevelOff, Output: io.Discard})
}

func TestNotifier_MultipleListeners(t *testing.T) {
	n := New(quietLogger())

	var first, second []Changes
	n.Subscribe(func(c Changes) { first = append(first, c) })
	n.Subscribe(func(c Changes) { second = append(second, c) })

	n.Publish(Changes{"uiLanguage": "de"})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", len(first), len(second))
	}
	if first[0]["uiLanguage"] != "de" {
		t.Errorf("event = %v, want uiLanguage -> de", first[0])
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := New(quietLogger())

	calls := 0
	sub := n.Subscribe(func(Changes) { calls++ })
	n.Publish(Changes{"a": 1})
	sub.Unsubscribe()
	n.Publish(Changes{"a": 2})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestNotifier_DeduplicatesRedundantEvents(t *testing.T) {
	n := New(quietLogger())

	var events []Changes
	n.Subscribe(func(c Changes) { events = append(events, c) })

	// A local write followed by the backend's own change callback for
	// the same write must deliver once.
	n.Publish(Changes{"uiLanguage": "de"})
	n.HandleBackendChange(map[string]storage.Diff{
		"uiLanguage": {Old: "en", New: "de"},
	})

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	// A genuinely new value is delivered again.
	n.HandleBackendChange(map[string]storage.Diff{
		"uiLanguage": {Old: "de", New: "fr"},
	})
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1]["uiLanguage"] != "fr" {
		t.Errorf("event = %v, want uiLanguage -> fr", events[1])
	}
}

func TestNotifier_DropsUnchangedKeysFromEvent(t *testing.T) {
	n := New(quietLogger())

	var events []Changes
	n.Subscribe(func(c Changes) { events = append(events, c) })

	n.Publish(Changes{"a": 1})
	n.Publish(Changes{"a": 1, "b": 2})

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if _, ok := events[1]["a"]; ok {
		t.Error("unchanged key leaked into the second event")
	}
	if events[1]["b"] != 2 {
		t.Errorf("second event = %v, want b -> 2", events[1])
	}
}

func TestNotifier_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	n := New(quietLogger())

	var delivered bool
	n.Subscribe(func(Changes) { panic("broken listener") })
	n.Subscribe(func(Changes) { delivered = true })

	n.Publish(Changes{"a": 1})

	if !delivered {
		t.Error("second listener never ran after the first panicked")
	}
}

func TestNotifier_ForwardsBroadcastKeys(t *testing.T) {
	n := New(quietLogger(), WithBroadcastKeys([]string{"loggingLevel"}))

	var forwarded []Changes
	n.OnBroadcast(func(c Changes) { forwarded = append(forwarded, c) })

	n.Publish(Changes{"uiLanguage": "de"})
	if len(forwarded) != 0 {
		t.Fatalf("non-broadcast key was forwarded: %v", forwarded)
	}

	n.Publish(Changes{"loggingLevel": 4, "uiLanguage": "fr"})
	if len(forwarded) != 1 {
		t.Fatalf("got %d forwards, want 1", len(forwarded))
	}
	if forwarded[0]["loggingLevel"] != 4 {
		t.Errorf("forwarded = %v, want loggingLevel -> 4", forwarded[0])
	}
	if _, ok := forwarded[0]["uiLanguage"]; ok {
		t.Error("non-broadcast key leaked into the forward")
	}
}

func TestNotifier_BeginLocalAbsorbsNativeEcho(t *testing.T) {
	n := New(quietLogger())

	var events []Changes
	n.Subscribe(func(c Changes) { events = append(events, c) })

	release := n.BeginLocal([]string{"uiLanguage", "debugMode"})

	// The backend echoes each key separately mid-write; both echoes
	// must be absorbed so the writer's own event is the only delivery.
	n.HandleBackendChange(map[string]storage.Diff{
		"uiLanguage": {New: "fr"},
	})
	n.HandleBackendChange(map[string]storage.Diff{
		"debugMode": {New: true},
	})
	if len(events) != 0 {
		t.Fatalf("native echo delivered during local write: %v", events)
	}

	n.Publish(Changes{"uiLanguage": "fr", "debugMode": true})
	release()
	release() // release is idempotent

	if len(events) != 1 {
		t.Fatalf("got %d events, want the single combined event", len(events))
	}
	if events[0]["uiLanguage"] != "fr" || events[0]["debugMode"] != true {
		t.Errorf("event = %v, want the full change map", events[0])
	}

	// After release, native events for the same keys flow again.
	n.HandleBackendChange(map[string]storage.Diff{
		"uiLanguage": {Old: "fr", New: "es"},
	})
	if len(events) != 2 {
		t.Fatalf("native event after release not delivered, got %d events", len(events))
	}
}
