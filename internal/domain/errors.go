package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced to a caller wraps exactly one of these so
// handlers can tell them apart with errors.Is.
var (
	// ErrInvalidInput is returned for non-PDF uploads, empty extracted text and
	// malformed questions. Nothing is written to any store.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotReady is returned when a question arrives before any document was
	// ever embedded, so there is no vector space to project into.
	ErrNotReady = errors.New("embedding space not fitted")

	// ErrResourceExhausted is returned when the memory guard refuses an ingestion.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrStoreFailure wraps vector index and graph store errors.
	ErrStoreFailure = errors.New("store failure")

	// ErrNotFound is returned when a referenced paper does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInternal covers embedding failures and anything unexpected.
	ErrInternal = errors.New("internal error")
)

// Error wraps an underlying error with the operation that failed and its kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WrapError tags err with op and kind. A nil err with a non-nil kind still
// produces an error, which lets callers raise a bare kind.
func WrapError(op string, kind error, err error) error {
	if kind == nil {
		kind = ErrInternal
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf reports which kind err carries. Untagged errors are ErrInternal.
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidInput, ErrNotReady, ErrResourceExhausted, ErrStoreFailure, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// KindName returns the short machine-readable name used in API responses.
func KindName(kind error) string {
	switch kind {
	case ErrInvalidInput:
		return "invalid_input"
	case ErrNotReady:
		return "not_ready"
	case ErrResourceExhausted:
		return "resource_exhausted"
	case ErrStoreFailure:
		return "store_failure"
	case ErrNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
