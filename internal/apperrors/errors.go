// Package apperrors defines the error taxonomy shared by the catalog,
// shelf, and metadata packages. Controllers map these to HTTP codes;
// everything else wraps with fmt.Errorf("...: %w", err).
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed request field. The
// message is safe to show to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation creates a ValidationError for the given field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports a uniqueness violation, e.g. a book already on
// the user's shelf.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func Conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

// NotFoundError reports a missing entity, or one not owned by the
// requesting user (deliberately indistinguishable).
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// ErrRateLimited signals that the external metadata source is
// throttling us. Callers may retry later; it is not a permanent miss.
var ErrRateLimited = errors.New("external metadata source rate limited")

// UpstreamError reports that the external metadata source is
// unreachable or returned an unexpected response.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "external metadata source unavailable: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func Upstream(err error) error {
	return &UpstreamError{Err: err}
}

// StorageError wraps a data-store failure. Never retried by the core.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func Storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
