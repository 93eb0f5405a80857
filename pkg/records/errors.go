package records

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by Storage.Get for unknown IDs.
var ErrRecordNotFound = errors.New("record not found")

// StorageError wraps a failure inside a storage backend.
type StorageError struct {
	Backend string // "sqlite" or "memory"
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("records: %s backend: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a failure of op on backend.
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}

// QueryError reports a query filter that cannot be executed. Field names
// the offending filter using its wire name (limit, offset, sort, since,
// status).
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

func queryError(field, format string, args ...any) *QueryError {
	return &QueryError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PruneError reports which retention rule failed to apply.
type PruneError struct {
	Rule string // "age" or "count"
	Err  error
}

func (e *PruneError) Error() string {
	return fmt.Sprintf("records: prune by %s: %v", e.Rule, e.Err)
}

func (e *PruneError) Unwrap() error { return e.Err }
