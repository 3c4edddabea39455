package settings

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/confsync/confsync/internal/storage"
)

// AreaResult identifies one area touched by a multi-area operation and
// the keys the operation addressed there.
type AreaResult struct {
	Area storage.Area
	Keys []string
}

// AreaError records one area's failure within a multi-area operation.
type AreaError struct {
	Area storage.Area
	Keys []string
	Err  error
}

// PartialFailureError is returned by multi-area writes when at least
// one area succeeded and at least one failed. Successful and Failed
// together cover every area the operation touched.
type PartialFailureError struct {
	Successful []AreaResult
	Failed     []AreaResult
	Errors     []AreaError

	msg string
}

// Error implements the error interface.
func (e *PartialFailureError) Error() string {
	return e.msg
}

// Unwrap exposes the per-area failures to errors.Is/As.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, ae := range e.Errors {
		errs = append(errs, ae.Err)
	}
	return errs
}

// CompleteFailureError is returned by multi-area writes when every
// touched area failed.
type CompleteFailureError struct {
	Errors []AreaError

	msg     string
	wrapped error
}

// Error implements the error interface.
func (e *CompleteFailureError) Error() string {
	return e.msg
}

// Unwrap returns the aggregated per-area failures.
func (e *CompleteFailureError) Unwrap() error {
	return e.wrapped
}

// newCompleteFailure aggregates every area's failure into one error
// whose message names the operation and contains "failed completely".
func newCompleteFailure(operation string, areaErrs []AreaError) *CompleteFailureError {
	var agg *multierror.Error
	for _, ae := range areaErrs {
		agg = multierror.Append(agg, fmt.Errorf("%s area: %w", ae.Area, ae.Err))
	}

	first := areaErrs[0].Err
	return &CompleteFailureError{
		Errors:  areaErrs,
		msg:     fmt.Sprintf("%s failed completely: %v", operation, underlying(first)),
		wrapped: agg.ErrorOrNil(),
	}
}

// newPartialFailure builds the error for a write that succeeded in
// some areas and failed in others.
func newPartialFailure(operation string, successful []AreaResult, failed []AreaResult, areaErrs []AreaError) *PartialFailureError {
	return &PartialFailureError{
		Successful: successful,
		Failed:     failed,
		Errors:     areaErrs,
		msg: fmt.Sprintf("%s completed with partial failures: %d area(s) succeeded, %d failed",
			operation, len(successful), len(failed)),
	}
}

// underlying digs out the raw backend error from a classified failure.
func underlying(err error) error {
	var se *storage.StorageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err
	}
	return err
}

// IsPartialFailure reports whether err is (or wraps) a partial
// multi-area failure.
func IsPartialFailure(err error) bool {
	var pe *PartialFailureError
	return errors.As(err, &pe)
}

// IsCompleteFailure reports whether err is (or wraps) a complete
// multi-area failure.
func IsCompleteFailure(err error) bool {
	var ce *CompleteFailureError
	return errors.As(err, &ce)
}

// AsStorageError extracts a classified single-area failure from err.
func AsStorageError(err error) (*storage.StorageError, bool) {
	var se *storage.StorageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
