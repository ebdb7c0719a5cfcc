package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/gemdesk/internal/adapter/sqlite"
	"github.com/neomorfeo/gemdesk/internal/domain"
)

// Compile-time check: Outbox implements sqlite.Outbox.
var _ sqlite.Outbox = (*Outbox)(nil)

// StatusChangedArgs carries a committed status change to the audit worker.
// River serializes this as JSON into its job queue table, so the worker never
// needs to query the orders table.
type StatusChangedArgs struct {
	OrderID   string    `json:"order_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Actor     string    `json:"actor"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (StatusChangedArgs) Kind() string { return "order.status_changed" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Outbox enqueues status-change jobs inside the caller's transaction.
type Outbox struct {
	client *Client
}

// NewOutbox creates an outbox backed by the given River client.
func NewOutbox(client *Client) *Outbox {
	return &Outbox{client: client}
}

// EnqueueTx inserts a status-change job in tx. The job becomes visible only
// if tx commits.
func (o *Outbox) EnqueueTx(ctx context.Context, tx *sql.Tx, change domain.StatusChange) error {
	_, err := o.client.InsertTx(ctx, tx, StatusChangedArgs{
		OrderID:   change.OrderID,
		From:      string(change.From),
		To:        string(change.To),
		Actor:     change.Actor,
		Note:      change.Note,
		ChangedAt: change.At,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing status change job: %w", err)
	}
	return nil
}
