package domain

import "context"

// OrderStore defines the persistence contract for orders.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)

	// GetStatus returns the current status of an order, or ErrOrderNotFound.
	GetStatus(ctx context.Context, id string) (Status, error)

	// CommitStatus sets the order's status to entry.Status and appends entry
	// to its history in one unit, but only if the status still equals
	// expected. It returns ErrStatusConflict when the condition fails and
	// ErrOrderNotFound when the order is gone.
	CommitStatus(ctx context.Context, id string, expected Status, entry HistoryEntry) (Order, error)
}

// ListFilter holds optional criteria for listing orders.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// TransitionValidator checks a status change against the lifecycle graph.
type TransitionValidator interface {
	Validate(ctx context.Context, from, to Status) error
}
