package simplevideo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error kinds. Every error returned by this package and its stores matches
// exactly one of these through errors.Is.
var (
	// ErrNotFound indicates an asset or version is absent or soft-deleted
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a concurrent write claimed the same version number
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates a request was rejected before any side effect
	ErrValidation = errors.New("validation failed")

	// ErrStorage indicates a content store I/O failure
	ErrStorage = errors.New("storage failure")

	// ErrPersistence indicates a catalog store transaction failure
	ErrPersistence = errors.New("persistence failure")
)

var (
	ErrAssetNotFound   = fmt.Errorf("asset %w", ErrNotFound)
	ErrVersionNotFound = fmt.Errorf("version %w", ErrNotFound)
	ErrContentNotFound = fmt.Errorf("content %w", ErrNotFound)

	// ErrContentExists is returned by ContentStore.Put when the key is taken
	ErrContentExists = fmt.Errorf("content already exists: %w", ErrConflict)

	// ErrRetriesExhausted is returned when version allocation kept colliding
	ErrRetriesExhausted = fmt.Errorf("version allocation retries exhausted: %w", ErrConflict)
)

// AssetError adds the asset and operation to an error.
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// StorageError represents a content store failure.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets a StorageError match ErrStorage unless it wraps a more specific kind.
func (e *StorageError) Is(target error) bool {
	if target != ErrStorage {
		return false
	}
	return !errors.Is(e.Err, ErrNotFound) && !errors.Is(e.Err, ErrConflict)
}

// PersistenceError represents a catalog store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("catalog operation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// ValidationError names the rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ErrorKind classifies errors for transport layers.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindValidation  ErrorKind = "validation"
	KindStorage     ErrorKind = "storage"
	KindPersistence ErrorKind = "persistence"
	KindCanceled    ErrorKind = "canceled"
	KindUnknown     ErrorKind = "unknown"
)

// Kind returns the kind of err. Specific kinds win over the storage and
// persistence wrappers, so a missing blob reports KindNotFound. A caller
// that gave up is KindCanceled whichever backend noticed it.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindUnknown
	}
}
