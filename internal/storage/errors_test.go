package storage

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestClassify_Taxonomy(t *testing.T) {
	tests := []struct {
		name        string
		rawMessage  string
		wantQuota   bool
		wantMention string
	}{
		{
			name:        "quota",
			rawMessage:  "QUOTA_BYTES_PER_ITEM quota exceeded",
			wantQuota:   true,
			wantMention: "quota",
		},
		{
			name:        "quota beats rate limit",
			rawMessage:  "quota exceeded due to rate limit",
			wantQuota:   true,
			wantMention: "quota",
		},
		{
			name:        "rate limit",
			rawMessage:  "MAX_WRITE_OPERATIONS rate limit reached",
			wantMention: "backoff",
		},
		{
			name:        "network",
			rawMessage:  "network request failed",
			wantMention: "connectivity",
		},
		{
			name:        "permission",
			rawMessage:  "permission denied by policy",
			wantMention: "permission",
		},
		{
			name:        "access denied",
			rawMessage:  "storage access denied",
			wantMention: "permission",
		},
		{
			name:        "sync disabled",
			rawMessage:  "sync is disabled for this profile",
			wantMention: "local-only",
		},
		{
			name:        "generic",
			rawMessage:  "something odd happened",
			wantMention: "something odd happened",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opctx := NewOperationContext(OpSet, AreaReplicated, []string{"uiLanguage"}, "Adapter.Set")
			se := Classify(errors.New(tt.rawMessage), opctx)

			if se.IsQuotaError != tt.wantQuota {
				t.Errorf("IsQuotaError = %v, want %v", se.IsQuotaError, tt.wantQuota)
			}
			if !strings.Contains(se.RecoveryAction, tt.wantMention) {
				t.Errorf("RecoveryAction %q does not mention %q", se.RecoveryAction, tt.wantMention)
			}
		})
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	opctx := NewOperationContext(OpSet, AreaReplicated, []string{"k"}, "Adapter.Set")
	se := Classify(errors.New("Quota Exceeded"), opctx)
	if !se.IsQuotaError {
		t.Error("expected quota detection to be case-insensitive")
	}
}

func TestClassify_QuotaNamesArea(t *testing.T) {
	opctx := NewOperationContext(OpSet, AreaLocal, []string{"debugMode"}, "Adapter.Set")
	se := Classify(errors.New("quota exceeded"), opctx)
	if !strings.Contains(se.RecoveryAction, "local") {
		t.Errorf("RecoveryAction %q does not name the area", se.RecoveryAction)
	}
}

func TestClassify_DurationAndTimestamp(t *testing.T) {
	opctx := NewOperationContext(OpGet, AreaLocal, []string{"k"}, "Adapter.Get")
	time.Sleep(time.Millisecond)
	se := Classify(errors.New("boom"), opctx)

	if se.Duration < 0 {
		t.Errorf("Duration = %v, want non-negative", se.Duration)
	}
	if se.Timestamp.Before(opctx.StartedAt) {
		t.Error("Timestamp precedes the operation start")
	}
}

func TestClassify_Unwrap(t *testing.T) {
	raw := errors.New("backend broke")
	se := Classify(raw, NewOperationContext(OpGet, AreaLocal, nil, "Adapter.Get"))
	if !errors.Is(se, raw) {
		t.Error("classified error does not wrap the raw error")
	}
}

func TestStorageError_FieldsPrecedence(t *testing.T) {
	opctx := NewOperationContext(OpSet, AreaReplicated, []string{"uiLanguage"}, "Adapter.Set")
	opctx = opctx.WithExtra(map[string]any{
		"batchId":    "b-123",
		"userAction": "toggle",
		"operation":  "bogus", // collides with an auto-computed field
	})
	se := Classify(errors.New("boom"), opctx)

	fields := se.Fields()
	if fields["batchId"] != "b-123" {
		t.Errorf("batchId = %v, want b-123", fields["batchId"])
	}
	if fields["userAction"] != "toggle" {
		t.Errorf("userAction = %v, want toggle", fields["userAction"])
	}
	if fields["operation"] != "set" {
		t.Errorf("operation = %v, want auto-computed value to win", fields["operation"])
	}
	if fields["area"] != "replicated" {
		t.Errorf("area = %v, want replicated", fields["area"])
	}
	if fields["method"] != "Adapter.Set" {
		t.Errorf("method = %v, want Adapter.Set", fields["method"])
	}
}
