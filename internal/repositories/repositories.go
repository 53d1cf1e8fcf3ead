package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// StorageError wraps a persistence failure with operation and entity context.
//
//	var storErr *repositories.StorageError
//	if errors.As(err, &storErr) {
//		log.Error("storage failed", "op", storErr.Op, "entity", storErr.Entity)
//	}
type StorageError struct {
	Op     string // "get", "save", "delete", "list"
	Entity string // "credential", "override"
	ID     string
	Err    error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, entity, id string, err error) error {
	return &StorageError{Op: op, Entity: entity, ID: id, Err: err}
}
