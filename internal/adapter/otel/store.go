package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/gemdesk/internal/domain"
)

const instrumentationName = "github.com/neomorfeo/gemdesk/internal/adapter/otel"

// TracingStore wraps a domain.OrderStore with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
// Status commits are also counted by outcome.
type TracingStore struct {
	next    domain.OrderStore
	tracer  trace.Tracer
	commits metric.Int64Counter
}

// Compile-time check: TracingStore implements domain.OrderStore.
var _ domain.OrderStore = (*TracingStore)(nil)

// NewTracingStore creates a tracing decorator around the given store.
func NewTracingStore(next domain.OrderStore) (*TracingStore, error) {
	commits, err := otel.Meter(instrumentationName).Int64Counter(
		"gemdesk.order.status_commits",
		metric.WithDescription("Order status commits by outcome"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, err
	}

	return &TracingStore{
		next:    next,
		tracer:  otel.Tracer(instrumentationName),
		commits: commits,
	}, nil
}

func (s *TracingStore) Create(ctx context.Context, order domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "OrderStore.Create",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("order.status", string(order.Status)),
		),
	)
	defer span.End()

	err := s.next.Create(ctx, order)
	recordError(span, err)
	return err
}

func (s *TracingStore) GetByID(ctx context.Context, id string) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderStore.GetByID",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	order, err := s.next.GetByID(ctx, id)
	recordError(span, err)
	return order, err
}

func (s *TracingStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderStore.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	orders, err := s.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(orders)))
	}
	return orders, err
}

func (s *TracingStore) GetStatus(ctx context.Context, id string) (domain.Status, error) {
	ctx, span := s.tracer.Start(ctx, "OrderStore.GetStatus",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	status, err := s.next.GetStatus(ctx, id)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.String("order.status", string(status)))
	}
	return status, err
}

func (s *TracingStore) CommitStatus(ctx context.Context, id string, expected domain.Status, entry domain.HistoryEntry) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderStore.CommitStatus",
		trace.WithAttributes(
			attribute.String("order.id", id),
			attribute.String("order.status.expected", string(expected)),
			attribute.String("order.status.next", string(entry.Status)),
			attribute.String("order.actor", entry.ChangedBy),
		),
	)
	defer span.End()

	order, err := s.next.CommitStatus(ctx, id, expected, entry)
	recordError(span, err)

	s.commits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("order.status.next", string(entry.Status)),
		attribute.String("result", commitResult(err)),
	))
	return order, err
}

func commitResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrStatusConflict):
		return "conflict"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
