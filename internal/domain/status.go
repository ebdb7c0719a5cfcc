package domain

// Status represents the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Tone is a semantic presentation hint for rendering a status badge.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	TonePrimary Tone = "primary"
	ToneWarning Tone = "warning"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
)

// StatusDescriptor is the display metadata and outgoing edges of one status.
type StatusDescriptor struct {
	Status      Status
	Label       string
	Description string
	AllowedNext []Status
	Tone        Tone
}

// Terminal reports whether no transition leaves this status.
func (d StatusDescriptor) Terminal() bool {
	return len(d.AllowedNext) == 0
}

// statusOrder is the canonical display order of the closed status set.
var statusOrder = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// descriptors is the order lifecycle graph. It is built once and never
// mutated; accessors hand out copies.
var descriptors = map[Status]StatusDescriptor{
	StatusPending: {
		Status:      StatusPending,
		Label:       "Pending",
		Description: "Order placed, awaiting confirmation by the shop.",
		AllowedNext: []Status{StatusConfirmed, StatusCancelled},
		Tone:        ToneWarning,
	},
	StatusConfirmed: {
		Status:      StatusConfirmed,
		Label:       "Confirmed",
		Description: "Payment and stock verified; the order is accepted.",
		AllowedNext: []Status{StatusProcessing, StatusCancelled},
		Tone:        ToneInfo,
	},
	StatusProcessing: {
		Status:      StatusProcessing,
		Label:       "Processing",
		Description: "Stones are being certified, packed and insured.",
		AllowedNext: []Status{StatusShipped, StatusCancelled},
		Tone:        TonePrimary,
	},
	StatusShipped: {
		Status:      StatusShipped,
		Label:       "Shipped",
		Description: "Handed to the carrier and in transit.",
		AllowedNext: []Status{StatusDelivered, StatusCancelled},
		Tone:        ToneInfo,
	},
	StatusDelivered: {
		Status:      StatusDelivered,
		Label:       "Delivered",
		Description: "Received by the customer.",
		AllowedNext: nil,
		Tone:        ToneSuccess,
	},
	StatusCancelled: {
		Status:      StatusCancelled,
		Label:       "Cancelled",
		Description: "The order was cancelled and will not be fulfilled.",
		AllowedNext: nil,
		Tone:        ToneDanger,
	},
}

// ParseStatus converts untrusted input into a Status, failing with an
// UnknownStatusError for anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", &UnknownStatusError{Value: s}
	}
	return status, nil
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	_, ok := descriptors[s]
	return ok
}

// Statuses returns every status in canonical order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Describe returns the descriptor for status.
func Describe(status Status) (StatusDescriptor, error) {
	d, ok := descriptors[status]
	if !ok {
		return StatusDescriptor{}, &UnknownStatusError{Value: string(status)}
	}
	d.AllowedNext = cloneStatuses(d.AllowedNext)
	return d, nil
}

// AllowedTransitions returns the statuses reachable directly from status,
// in display order. The result is empty for terminal statuses.
func AllowedTransitions(from Status) ([]Status, error) {
	d, ok := descriptors[from]
	if !ok {
		return nil, &UnknownStatusError{Value: string(from)}
	}
	return cloneStatuses(d.AllowedNext), nil
}

// Transition is a single edge of the lifecycle graph.
type Transition struct {
	Src Status
	Dst Status
}

// Transitions flattens the lifecycle graph into its edges, in canonical
// source order. This is domain knowledge consumed by the FSM adapter.
func Transitions() []Transition {
	var out []Transition
	for _, src := range statusOrder {
		for _, dst := range descriptors[src].AllowedNext {
			out = append(out, Transition{Src: src, Dst: dst})
		}
	}
	return out
}

func cloneStatuses(in []Status) []Status {
	out := make([]Status, len(in))
	copy(out, in)
	return out
}
