package broker

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestBroker_SendAndRespond(t *testing.T) {
	b := New()
	b.Register(Context{
		ID: "popup",
		Handler: func(msg Message) (any, error) {
			return "ack:" + msg.Type, nil
		},
	})

	resp, err := b.Send("popup", Message{Type: "PING"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp != "ack:PING" {
		t.Errorf("resp = %v, want ack:PING", resp)
	}
}

func TestBroker_SendTargetGone(t *testing.T) {
	b := New()
	deregister := b.Register(Context{
		ID:      "tab-1",
		Handler: func(Message) (any, error) { return nil, nil },
	})
	deregister()

	if _, err := b.Send("tab-1", Message{Type: "PING"}); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("err = %v, want ErrTargetNotFound", err)
	}
}

func TestBroker_SendNoHandler(t *testing.T) {
	b := New()
	b.Register(Context{ID: "tab-1"})

	if _, err := b.Send("tab-1", Message{Type: "PING"}); !errors.Is(err, ErrNoHandler) {
		t.Errorf("err = %v, want ErrNoHandler", err)
	}
}

func TestBroker_BroadcastMatchesURLPatterns(t *testing.T) {
	b := New()

	var reached atomic.Int32
	handler := func(Message) (any, error) {
		reached.Add(1)
		return nil, nil
	}

	b.Register(Context{ID: "yt-1", URL: "https://www.youtube.com/watch?v=abc", Handler: handler})
	b.Register(Context{ID: "yt-2", URL: "https://www.youtube.com/watch?v=def", Handler: handler})
	b.Register(Context{ID: "other", URL: "https://example.com/page", Handler: handler})

	results := b.Broadcast("background", Message{Type: "PING"}, []string{"https://www.youtube.com/*"})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if reached.Load() != 2 {
		t.Errorf("reached = %d contexts, want 2", reached.Load())
	}
	for _, r := range results {
		if r.Target == "other" {
			t.Error("non-matching context was targeted")
		}
	}
}

func TestBroker_BroadcastSkipsSender(t *testing.T) {
	b := New()

	var reached atomic.Int32
	handler := func(Message) (any, error) {
		reached.Add(1)
		return nil, nil
	}
	b.Register(Context{ID: "background", URL: "https://www.youtube.com/a", Handler: handler})
	b.Register(Context{ID: "tab-1", URL: "https://www.youtube.com/b", Handler: handler})

	b.Broadcast("background", Message{Type: "PING"}, nil)

	if reached.Load() != 1 {
		t.Errorf("reached = %d, want the sender to be skipped", reached.Load())
	}
}

func TestBroker_BroadcastSettlesAllDespiteFailures(t *testing.T) {
	b := New()

	var reached atomic.Int32
	b.Register(Context{ID: "broken", URL: "https://www.youtube.com/a", Handler: func(Message) (any, error) {
		return nil, errors.New("context unloaded")
	}})
	b.Register(Context{ID: "panicky", URL: "https://www.youtube.com/b", Handler: func(Message) (any, error) {
		panic("receiver crashed")
	}})
	b.Register(Context{ID: "healthy", URL: "https://www.youtube.com/c", Handler: func(Message) (any, error) {
		reached.Add(1)
		return nil, nil
	}})

	results := b.Broadcast("background", Message{Type: "PING"}, nil)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if reached.Load() != 1 {
		t.Error("healthy context was not reached despite other failures")
	}

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
		}
	}
	if failures != 2 {
		t.Errorf("failures = %d, want 2", failures)
	}
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		patterns []string
		want     bool
	}{
		{"empty patterns match all", "https://anything", nil, true},
		{"prefix wildcard", "https://www.youtube.com/watch", []string{"https://www.youtube.com/*"}, true},
		{"prefix mismatch", "https://example.com/", []string{"https://www.youtube.com/*"}, false},
		{"exact match", "https://example.com/page", []string{"https://example.com/page"}, true},
		{"exact mismatch", "https://example.com/other", []string{"https://example.com/page"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesAny(tt.url, tt.patterns); got != tt.want {
				t.Errorf("matchesAny(%q, %v) = %v, want %v", tt.url, tt.patterns, got, tt.want)
			}
		})
	}
}
