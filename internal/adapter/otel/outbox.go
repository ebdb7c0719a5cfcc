package otel

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/gemdesk/internal/adapter/sqlite"
	"github.com/neomorfeo/gemdesk/internal/domain"
)

// TracingOutbox wraps a sqlite.Outbox with OpenTelemetry tracing.
type TracingOutbox struct {
	next   sqlite.Outbox
	tracer trace.Tracer
}

// Compile-time check: TracingOutbox implements sqlite.Outbox.
var _ sqlite.Outbox = (*TracingOutbox)(nil)

// NewTracingOutbox creates a tracing decorator around the given outbox.
func NewTracingOutbox(next sqlite.Outbox) *TracingOutbox {
	return &TracingOutbox{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
	}
}

func (o *TracingOutbox) EnqueueTx(ctx context.Context, tx *sql.Tx, change domain.StatusChange) error {
	ctx, span := o.tracer.Start(ctx, "Outbox.EnqueueTx",
		trace.WithAttributes(
			attribute.String("order.id", change.OrderID),
			attribute.String("order.status.from", string(change.From)),
			attribute.String("order.status.to", string(change.To)),
		),
	)
	defer span.End()

	err := o.next.EnqueueTx(ctx, tx, change)
	recordError(span, err)
	return err
}
