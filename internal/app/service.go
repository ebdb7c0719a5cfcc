package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/gemdesk/internal/domain"
)

// OrderService orchestrates order status changes. It holds no order state of
// its own; every call reads the store afresh.
type OrderService struct {
	store     domain.OrderStore
	validator domain.TransitionValidator
	now       func() time.Time
}

// NewOrderService creates a service with the given adapters.
func NewOrderService(store domain.OrderStore, validator domain.TransitionValidator) *OrderService {
	return &OrderService{
		store:     store,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrderInput carries the fields of a manually entered order.
type CreateOrderInput struct {
	CustomerName  string
	CustomerEmail string
	TotalMinor    int64
	Currency      string
	Actor         string
}

// Create persists a new order in the "pending" status.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	id, err := generateID()
	if err != nil {
		return domain.Order{}, fmt.Errorf("generating order id: %w", err)
	}

	order := domain.NewOrder(id, in.CustomerName, in.CustomerEmail, in.TotalMinor, in.Currency, in.Actor)

	if err := s.store.Create(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("creating order: %w", err)
	}

	return order, nil
}

// GetByID returns an order and its status history.
func (s *OrderService) GetByID(ctx context.Context, id string) (domain.Order, error) {
	return s.store.GetByID(ctx, id)
}

// List returns orders matching the given filter.
func (s *OrderService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, &domain.UnknownStatusError{Value: string(*filter.Status)}
	}
	return s.store.List(ctx, filter)
}

// Describe returns the display metadata for a status.
func (s *OrderService) Describe(status domain.Status) (domain.StatusDescriptor, error) {
	return domain.Describe(status)
}

// AllowedTransitions returns the statuses an order may move to from the
// given status, without touching the store.
func (s *OrderService) AllowedTransitions(from domain.Status) ([]domain.Status, error) {
	return domain.AllowedTransitions(from)
}

// ValidateTransition reports whether from → to is a legal move.
func (s *OrderService) ValidateTransition(ctx context.Context, from, to domain.Status) error {
	return s.validator.Validate(ctx, from, to)
}

// ApplyTransition moves an order to a new status on behalf of actor.
//
// The current status is read, validated against the lifecycle graph, and
// committed conditionally on it being unchanged. A failed validation never
// reaches the store. The write is attempted at most once: a lost race comes
// back as a *domain.StoreWriteError wrapping domain.ErrStatusConflict.
func (s *OrderService) ApplyTransition(ctx context.Context, id string, to domain.Status, actor, note string) (domain.Order, error) {
	if !to.Valid() {
		return domain.Order{}, &domain.UnknownStatusError{Value: string(to)}
	}

	current, err := s.store.GetStatus(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, err
		}
		return domain.Order{}, &domain.StoreReadError{OrderID: id, Err: err}
	}

	if err := s.validator.Validate(ctx, current, to); err != nil {
		return domain.Order{}, err
	}

	entry := domain.HistoryEntry{
		Status:    to,
		ChangedAt: s.now(),
		ChangedBy: actor,
		Note:      note,
	}

	order, err := s.store.CommitStatus(ctx, id, current, entry)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, err
		}
		return domain.Order{}, &domain.StoreWriteError{OrderID: id, Err: err}
	}

	return order, nil
}
