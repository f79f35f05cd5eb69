package scheduling

import (
	"errors"
	"fmt"

	"github.com/example/studygroup-scheduler/internal/persistence"
)

var (
	// ErrNotAuthorized is returned when the acting principal lacks permission.
	ErrNotAuthorized = errors.New("scheduling: not authorized")
	// ErrNotFound is returned when the requested session does not exist.
	ErrNotFound = errors.New("scheduling: session not found")
	// ErrGroupNotFound is returned when the referenced group cannot be loaded.
	ErrGroupNotFound = errors.New("scheduling: group not found")
	// ErrSessionImmutable is returned when mutating a completed or cancelled session.
	ErrSessionImmutable = errors.New("scheduling: session is immutable")
	// ErrNoEligibleCandidates is returned when the balancer receives an empty pool.
	ErrNoEligibleCandidates = errors.New("scheduling: no eligible candidates")
	// ErrStorage wraps collaborator failures so callers can detect them uniformly.
	ErrStorage = errors.New("scheduling: storage failure")
)

// ValidationError captures field level validation issues that callers can
// surface to users. Covers both missing required fields and unparseable input.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ConflictError reports that a proposed interval truly overlaps existing
// sessions. It carries the full analysis for user-facing messaging.
type ConflictError struct {
	Analysis ConflictAnalysis
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict: %d overlapping session(s)", len(e.Analysis.Conflicts))
}

// InvalidTimeError reports that a proposed start violates the time-of-day or
// day-of-week policy.
type InvalidTimeError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidTimeError) Error() string {
	return "invalid session time: " + e.Reason
}

// mapStoreError translates persistence sentinels into engine errors; anything
// else is wrapped as a storage failure.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
