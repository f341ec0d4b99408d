package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound covers lookups by id/reference that do not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded status edit finds the record
// changed underneath it. Unguarded edits are last-write-wins; callers that
// pass an expected status opt into the conflict check.
var ErrConflict = errors.New("concurrent update conflict")

// ValidationError marks a malformed inbound request. It is resolved at the
// boundary; no upstream call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError marks the analysis service unreachable or answering non-2xx.
// Session state is left unchanged and the identical call may be retried.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError marks a structurally invalid analyzer response that
// survived the single format-fix retry.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	raw := e.Raw
	if len(raw) > 256 {
		raw = raw[:256] + "..."
	}
	return fmt.Sprintf("malformed analysis response: %s (raw: %s)", e.Reason, raw)
}
