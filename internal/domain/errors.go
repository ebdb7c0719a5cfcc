package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrStatusConflict is returned by a store when a conditional status
	// write finds the order no longer in the expected status.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// UnknownStatusError is returned when a value is not a member of the
// closed status set.
type UnknownStatusError struct {
	Value string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown order status %q", e.Value)
}

// TransitionError is returned when a status change is not allowed by the
// lifecycle graph. Allowed lists the legal targets from From.
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("transition from %q to %q is not allowed (allowed: [%s])",
		e.From, e.To, strings.Join(allowed, ", "))
}

// StoreReadError is returned when the order store could not be read.
type StoreReadError struct {
	OrderID string
	Err     error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("reading order %q: %v", e.OrderID, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

// StoreWriteError is returned when a status commit did not happen.
// When it wraps ErrStatusConflict the order was changed by another writer
// and the caller should reload before retrying.
type StoreWriteError struct {
	OrderID string
	Err     error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("committing status for order %q: %v", e.OrderID, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// Conflict reports whether the write lost a race with another writer.
func (e *StoreWriteError) Conflict() bool {
	return errors.Is(e.Err, ErrStatusConflict)
}
