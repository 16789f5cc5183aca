package record

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that miss. A miss is an empty
// result, not a storage failure.
var ErrNotFound = errors.New("record not found")

// StorageError wraps a connectivity or transaction failure from the
// directory database. Lookup misses are never wrapped as StorageError.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("directory storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
