package grantor

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/grantor/store"
)

var (
	// ErrNotFound is returned when an entity id does not resolve.
	ErrNotFound = errors.New("grantor: not found")

	// ErrConflict is returned on a uniqueness violation: a permission
	// (resource, action, scope) triple or a role name already in use.
	ErrConflict = errors.New("grantor: conflict")

	// ErrForbidden is returned when deleting or deactivating a system
	// permission or role.
	ErrForbidden = errors.New("grantor: forbidden")

	// ErrInvalidReference is returned when a parent id, permission id or
	// role id supplied to a mutation does not exist.
	ErrInvalidReference = errors.New("grantor: invalid reference")

	// ErrCancelled is returned when the caller's context is cancelled or
	// its deadline passes before an operation completes.
	ErrCancelled = errors.New("grantor: cancelled")

	// ErrStorageUnavailable wraps any failure of the persistence layer.
	ErrStorageUnavailable = errors.New("grantor: storage unavailable")

	// ErrInvalidInput is returned when an input fails validation.
	ErrInvalidInput = errors.New("grantor: invalid input")
)

// Error carries the offending entity and field of a failed mutation so
// callers can render an actionable message. It matches its Kind with
// errors.Is; an ErrInvalidReference also matches ErrNotFound.
type Error struct {
	Kind   error
	Entity string
	Field  string
	Value  string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Entity != "" {
		msg += ": " + e.Entity
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" %s=%q", e.Field, e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Kind == ErrInvalidReference && target == ErrNotFound
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

func notFound(entity, field, value string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, Field: field, Value: value}
}

func conflict(entity, field, value string) error {
	return &Error{Kind: ErrConflict, Entity: entity, Field: field, Value: value}
}

func forbidden(entity, field, value string) error {
	return &Error{Kind: ErrForbidden, Entity: entity, Field: field, Value: value}
}

func invalidReference(entity, field, value string) error {
	return &Error{Kind: ErrInvalidReference, Entity: entity, Field: field, Value: value}
}

func invalidInput(entity, field, value string, cause error) error {
	return &Error{Kind: ErrInvalidInput, Entity: entity, Field: field, Value: value, Err: cause}
}

// storageError classifies a failure returned by the store. Cancellation
// of ctx wins over whatever the backend reported.
func storageError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrCancelled, op, ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrCancelled, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

// classify maps store sentinels onto the engine's taxonomy. Not-found and
// conflict results get the supplied entity context; everything else is a
// storage failure.
func classify(ctx context.Context, op string, err error, onNotFound, onConflict func() error) error {
	switch {
	case errors.Is(err, store.ErrNotFound) && onNotFound != nil:
		return onNotFound()
	case errors.Is(err, store.ErrConflict) && onConflict != nil:
		return onConflict()
	default:
		return storageError(ctx, op, err)
	}
}
