package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/gemdesk/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: OrderRepository implements domain.OrderStore.
var _ domain.OrderStore = (*OrderRepository)(nil)

// Outbox enqueues follow-up work inside the transaction that commits a
// status change, so the work exists if and only if the commit happened.
type Outbox interface {
	EnqueueTx(ctx context.Context, tx *sql.Tx, change domain.StatusChange) error
}

// Option configures an OrderRepository.
type Option func(*OrderRepository)

// WithOutbox registers an outbox that receives every committed status change.
func WithOutbox(outbox Outbox) Option {
	return func(r *OrderRepository) { r.outbox = outbox }
}

// OrderRepository implements domain.OrderStore using SQLite.
type OrderRepository struct {
	db     *sql.DB
	outbox Outbox
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string, opts ...Option) (*OrderRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and
	// serializes writers instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db, opts...)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB, opts ...Option) (*OrderRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	r := &OrderRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close closes the underlying database connection.
func (r *OrderRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *OrderRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05.000000Z"

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const orderColumns = `id, customer_name, customer_email, total_minor, currency, status, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.CustomerName, o.CustomerEmail, o.TotalMinor, o.Currency, string(o.Status),
		o.CreatedAt.UTC().Format(timeFormat),
		o.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	for _, entry := range o.History {
		if err := insertHistory(ctx, tx, o.ID, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	return getOrder(ctx, r.db, id)
}

// List returns orders newest first. History is not loaded for list results.
func (r *OrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any

	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

func (r *OrderRepository) GetStatus(ctx context.Context, id string) (domain.Status, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrOrderNotFound
		}
		return "", fmt.Errorf("reading order status: %w", err)
	}
	return domain.Status(status), nil
}

// CommitStatus performs a compare-and-swap on the order status. The status
// update, the history row and the outbox job share one transaction.
func (r *OrderRepository) CommitStatus(ctx context.Context, id string, expected domain.Status, entry domain.HistoryEntry) (domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(entry.Status), entry.ChangedAt.UTC().Format(timeFormat), id, string(expected),
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("updating order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		if err != nil {
			return domain.Order{}, fmt.Errorf("checking order existence: %w", err)
		}
		return domain.Order{}, domain.ErrStatusConflict
	}

	if err := insertHistory(ctx, tx, id, entry); err != nil {
		return domain.Order{}, err
	}

	if r.outbox != nil {
		change := domain.StatusChange{
			OrderID: id,
			From:    expected,
			To:      entry.Status,
			Actor:   entry.ChangedBy,
			Note:    entry.Note,
			At:      entry.ChangedAt,
		}
		if err := r.outbox.EnqueueTx(ctx, tx, change); err != nil {
			return domain.Order{}, fmt.Errorf("enqueuing status change: %w", err)
		}
	}

	order, err := getOrder(ctx, tx, id)
	if err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("committing status change: %w", err)
	}

	return order, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, orderID string, entry domain.HistoryEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, changed_at, changed_by, note)
		 VALUES (?, ?, ?, ?, ?)`,
		orderID, string(entry.Status), entry.ChangedAt.UTC().Format(timeFormat), entry.ChangedBy, entry.Note,
	)
	if err != nil {
		return fmt.Errorf("appending status history: %w", err)
	}
	return nil
}

// getOrder loads an order and its full history through q.
func getOrder(ctx context.Context, q queryer, id string) (domain.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scanning order: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT status, changed_at, changed_by, note
		 FROM order_status_history WHERE order_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("loading status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.HistoryEntry
		var status, changedAt string
		if err := rows.Scan(&status, &changedAt, &entry.ChangedBy, &entry.Note); err != nil {
			return domain.Order{}, fmt.Errorf("scanning history row: %w", err)
		}
		entry.Status = domain.Status(status)
		entry.ChangedAt = parseTime(changedAt)
		o.History = append(o.History, entry)
	}

	return o, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var status, createdAt, updatedAt string

	err := row.Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.TotalMinor, &o.Currency,
		&status, &createdAt, &updatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	o.Status = domain.Status(status)
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)

	return o, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, strings.TrimSpace(s))
	return t
}
