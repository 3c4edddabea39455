package storage

import (
	"fmt"
	"strings"
	"time"
)

// StorageError is a classified backend failure. It is immutable once
// constructed by Classify.
type StorageError struct {
	// Message summarizes the failure.
	Message string

	// Err is the raw backend error.
	Err error

	// Context describes the failed call.
	Context OperationContext

	// Duration is the wall-clock time of the failed call.
	Duration time.Duration

	// Timestamp is when the error was constructed (distinct from
	// Context.StartedAt).
	Timestamp time.Time

	// IsQuotaError is true when the raw message indicates a quota
	// limit. It only influences RecoveryAction, never the error's
	// shape.
	IsQuotaError bool

	// RecoveryAction is a human-readable suggestion suitable for
	// displaying or logging directly.
	RecoveryAction string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s on %s area failed for %v: %v",
		e.Context.Method, e.Context.Op, e.Context.Area, e.Context.Keys, e.Err)
}

// Unwrap returns the raw backend error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Fields renders the error context for structured logging. Caller
// fields from Context.Extra appear first; the auto-computed fields
// (operation, area, keys, method, duration, timestamp) overwrite them
// on name collision.
func (e *StorageError) Fields() map[string]any {
	fields := make(map[string]any, len(e.Context.Extra)+6)
	for k, v := range e.Context.Extra {
		fields[k] = v
	}
	fields["operation"] = e.Context.Op.String()
	fields["area"] = e.Context.Area.String()
	fields["keys"] = e.Context.Keys
	fields["method"] = e.Context.Method
	fields["duration"] = e.Duration
	fields["timestamp"] = e.Timestamp
	return fields
}

// Classify inspects a raw backend failure and produces a StorageError
// with a taxonomy-derived recovery action. Substrings are tested in
// priority order against the lower-cased raw message.
func Classify(err error, opctx OperationContext) *StorageError {
	now := time.Now()
	se := &StorageError{
		Message:   err.Error(),
		Err:       err,
		Context:   opctx,
		Duration:  now.Sub(opctx.StartedAt),
		Timestamp: now,
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		se.IsQuotaError = true
		se.RecoveryAction = fmt.Sprintf(
			"storage quota exceeded for the %s area; reduce the size of stored items or remove unused settings",
			opctx.Area)
	case strings.Contains(msg, "rate limit"):
		se.RecoveryAction = "backend rate limit hit; retry with exponential backoff"
	case strings.Contains(msg, "network"):
		se.RecoveryAction = "network problem reaching the backend; check connectivity and retry"
	case strings.Contains(msg, "permission"), strings.Contains(msg, "access denied"):
		se.RecoveryAction = "permission problem accessing the backend; check storage permissions"
	case strings.Contains(msg, "sync is disabled"):
		se.RecoveryAction = "the replicated area is unavailable because sync is disabled; local-only settings still work"
	default:
		se.RecoveryAction = fmt.Sprintf("storage operation failed: %s", err.Error())
	}

	return se
}
