package domain

import "time"

// HistoryEntry records one status change. Entries are append-only.
type HistoryEntry struct {
	Status    Status
	ChangedAt time.Time
	ChangedBy string
	Note      string
}

// Order is a customer order as seen by the back-office.
type Order struct {
	ID            string
	CustomerName  string
	CustomerEmail string
	TotalMinor    int64
	Currency      string
	Status        Status
	History       []HistoryEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrder creates an order in the initial "pending" state. The first
// history entry attributes its creation to createdBy.
func NewOrder(id, customerName, customerEmail string, totalMinor int64, currency, createdBy string) Order {
	now := time.Now().UTC()
	return Order{
		ID:            id,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		TotalMinor:    totalMinor,
		Currency:      currency,
		Status:        StatusPending,
		History: []HistoryEntry{
			{Status: StatusPending, ChangedAt: now, ChangedBy: createdBy},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StatusChange describes a committed transition. It is what the store hands
// to the outbox so downstream consumers learn about the change.
type StatusChange struct {
	OrderID string
	From    Status
	To      Status
	Actor   string
	Note    string
	At      time.Time
}
