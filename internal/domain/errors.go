package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports a referenced entity that does not exist in the store.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Entity, e.ID)
}

// ValidationError reports a request rejected before any store write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// AlreadyExistsError reports a write rejected by a uniqueness constraint.
type AlreadyExistsError struct {
	Entity string
	Detail string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists (%s)", e.Entity, e.Detail)
}

// InsufficientStockError aborts the whole order transaction: the requested
// quantity would drive stock_quantity below zero.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (requested: %d, available: %d)",
		e.ProductID, e.Requested, e.Available)
}

// TransientError marks a store failure that is safe to retry with backoff
// (lock timeout, deadlock, serialization failure, broken connection).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
