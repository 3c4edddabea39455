package storage

import (
	"context"
	"time"
)

// Op identifies the kind of backend operation.
type Op uint8

const (
	// OpGet is a read.
	OpGet Op = iota
	// OpSet is a write.
	OpSet
	// OpRemove is a deletion.
	OpRemove
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// OperationContext is the transient record attached to a backend call.
// It is created when the call starts and folded into the classified
// error if the call fails.
type OperationContext struct {
	// Op is the kind of operation.
	Op Op

	// Area is the backend area the call targets.
	Area Area

	// Keys are the keys the call touches.
	Keys []string

	// Method names the adapter function that issued the call.
	Method string

	// StartedAt is when the call was issued.
	StartedAt time.Time

	// Extra carries caller-supplied context (batch IDs, user action
	// tags). Auto-computed fields win on key collision when the
	// context is rendered into an error.
	Extra map[string]any
}

// NewOperationContext records the start of a backend call.
func NewOperationContext(op Op, area Area, keys []string, method string) OperationContext {
	return OperationContext{
		Op:        op,
		Area:      area,
		Keys:      keys,
		Method:    method,
		StartedAt: time.Now(),
	}
}

// callerContextKey keys caller-supplied error context in a
// context.Context.
type callerContextKey struct{}

// WithCallerContext attaches caller-supplied fields (batch IDs, user
// action tags) to ctx. The adapter folds them into the
// OperationContext of any failure, where auto-computed fields win on
// name collision.
func WithCallerContext(ctx context.Context, fields map[string]any) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, callerContextKey{}, fields)
}

// CallerContext returns the caller-supplied fields attached to ctx,
// or nil.
func CallerContext(ctx context.Context) map[string]any {
	fields, _ := ctx.Value(callerContextKey{}).(map[string]any)
	return fields
}

// WithExtra returns a copy of the context with the given caller fields
// merged in.
func (c OperationContext) WithExtra(extra map[string]any) OperationContext {
	if len(extra) == 0 {
		return c
	}
	merged := make(map[string]any, len(c.Extra)+len(extra))
	for k, v := range c.Extra {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	c.Extra = merged
	return c
}
