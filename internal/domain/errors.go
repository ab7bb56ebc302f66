package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the role directory, the workflow engine and the stores.
// Callers match with errors.Is; messages are wrapped with fmt.Errorf("%w: ...").
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrStorage           = errors.New("storage unavailable")
)

var known = []error{
	ErrUnauthorized,
	ErrForbidden,
	ErrInvalidTransition,
	ErrValidation,
	ErrNotFound,
	ErrConflict,
	ErrStorage,
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}

// StorageError wraps an unexpected store failure as ErrStorage.
// Errors that already belong to the taxonomy are returned unchanged.
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
