package vectorstore

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable indicates the backing vector database did not answer
	// the startup health check.
	ErrUnreachable = errors.New("vector store unreachable")

	// ErrDimensionMismatch indicates a vector whose dimensionality differs
	// from the collection's. Writes fail fast instead of truncating.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyFilter indicates a delete or search without any condition.
	// Unscoped operations are refused; the orchestrator always adds at
	// least a tenant condition.
	ErrEmptyFilter = errors.New("empty filter: operation must be scoped")
)

// StoreError wraps a failed store operation with its name. The underlying
// error is surfaced to the caller; no automatic compensation is attempted.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
