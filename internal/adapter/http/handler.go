package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/gemdesk/internal/app"
	"github.com/neomorfeo/gemdesk/internal/domain"
)

const statusEnum = "pending,confirmed,processing,shipped,delivered,cancelled"

// Operator-facing messages for the failures the back-office UI surfaces verbatim.
const (
	msgConflict          = "That order was already updated by someone else — refresh and try again"
	msgInvalidTransition = "This status change isn't allowed from the current state"
	msgStoreUnavailable  = "The order store is unavailable, try again shortly"
)

// StatusResponse is the API representation of a status descriptor.
type StatusResponse struct {
	Status      string   `json:"status" doc:"Status value"`
	Label       string   `json:"label" doc:"Human-readable name"`
	Description string   `json:"description" doc:"Short explanation"`
	AllowedNext []string `json:"allowed_next" doc:"Statuses reachable directly from this one"`
	Tone        string   `json:"tone" doc:"Presentation hint for the status badge"`
	Terminal    bool     `json:"terminal" doc:"True when no further transitions are possible"`
}

func toStatusResponse(d domain.StatusDescriptor) StatusResponse {
	return StatusResponse{
		Status:      string(d.Status),
		Label:       d.Label,
		Description: d.Description,
		AllowedNext: toStrings(d.AllowedNext),
		Tone:        string(d.Tone),
		Terminal:    d.Terminal(),
	}
}

// HistoryEntryResponse is the API representation of one status change.
type HistoryEntryResponse struct {
	Status    string `json:"status" doc:"Status the order moved to"`
	ChangedAt string `json:"changed_at" doc:"Change timestamp (RFC 3339)"`
	ChangedBy string `json:"changed_by" doc:"Who made the change"`
	Note      string `json:"note,omitempty" doc:"Optional operator note"`
}

// OrderResponse is the API representation of an order.
type OrderResponse struct {
	ID            string                 `json:"id" doc:"Unique identifier"`
	CustomerName  string                 `json:"customer_name" doc:"Customer display name"`
	CustomerEmail string                 `json:"customer_email" doc:"Customer email"`
	TotalMinor    int64                  `json:"total_minor" doc:"Order total in minor currency units"`
	Currency      string                 `json:"currency" doc:"ISO 4217 currency code"`
	Status        string                 `json:"status" doc:"Current status"`
	History       []HistoryEntryResponse `json:"history,omitempty" doc:"Status history, oldest first"`
	CreatedAt     string                 `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt     string                 `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
}

func toOrderResponse(o domain.Order) OrderResponse {
	history := make([]HistoryEntryResponse, len(o.History))
	for i, e := range o.History {
		history[i] = HistoryEntryResponse{
			Status:    string(e.Status),
			ChangedAt: e.ChangedAt.Format(time.RFC3339),
			ChangedBy: e.ChangedBy,
			Note:      e.Note,
		}
	}
	return OrderResponse{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		TotalMinor:    o.TotalMinor,
		Currency:      o.Currency,
		Status:        string(o.Status),
		History:       history,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     o.UpdatedAt.Format(time.RFC3339),
	}
}

// --- Statuses ---

type ListStatusesOutput struct {
	Body []StatusResponse
}

type GetStatusInput struct {
	Status string `path:"status" enum:"pending,confirmed,processing,shipped,delivered,cancelled" doc:"Status value"`
}

type GetStatusOutput struct {
	Body StatusResponse
}

type AllowedTransitionsOutput struct {
	Body []string
}

// --- Validate Transition ---

type ValidateTransitionInput struct {
	Body struct {
		From string `json:"from" enum:"pending,confirmed,processing,shipped,delivered,cancelled" doc:"Current status"`
		To   string `json:"to" enum:"pending,confirmed,processing,shipped,delivered,cancelled" doc:"Requested status"`
	}
}

type ValidateTransitionOutput struct {
	Body struct {
		Valid   bool     `json:"valid" doc:"Whether the transition is allowed"`
		Reason  string   `json:"reason,omitempty" doc:"Why the transition is not allowed"`
		Allowed []string `json:"allowed" doc:"Statuses reachable from 'from'"`
	}
}

// --- Create Order ---

type CreateOrderInput struct {
	Body struct {
		CustomerName  string `json:"customer_name" minLength:"1" maxLength:"255" doc:"Customer display name"`
		CustomerEmail string `json:"customer_email" format:"email" doc:"Customer email"`
		TotalMinor    int64  `json:"total_minor" minimum:"0" doc:"Order total in minor currency units"`
		Currency      string `json:"currency,omitempty" default:"EUR" pattern:"^[A-Z]{3}$" doc:"ISO 4217 currency code"`
		Actor         string `json:"actor,omitempty" default:"back-office" maxLength:"255" doc:"Who entered the order"`
	}
}

type CreateOrderOutput struct {
	Body OrderResponse
}

// --- Get Order ---

type GetOrderInput struct {
	ID string `path:"id" doc:"Order ID"`
}

type GetOrderOutput struct {
	Body OrderResponse
}

// --- List Orders ---

type ListOrdersInput struct {
	Status string `query:"status" required:"false" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"0" maximum:"500" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListOrdersOutput struct {
	Body []OrderResponse
}

// --- Transition ---

type TransitionInput struct {
	ID   string `path:"id" doc:"Order ID"`
	Body struct {
		To    string `json:"to" enum:"pending,confirmed,processing,shipped,delivered,cancelled" doc:"Target status"`
		Actor string `json:"actor" minLength:"1" maxLength:"255" doc:"Operator performing the change"`
		Note  string `json:"note,omitempty" maxLength:"1000" doc:"Optional note stored in the history"`
	}
}

type TransitionOutput struct {
	Body OrderResponse
}

// Register adds all order status API routes to the Huma API.
func Register(api huma.API, svc *app.OrderService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-statuses",
		Method:      http.MethodGet,
		Path:        "/api/v1/statuses",
		Summary:     "List order statuses",
		Tags:        []string{"Statuses"},
	}, func(_ context.Context, _ *struct{}) (*ListStatusesOutput, error) {
		statuses := domain.Statuses()
		resp := make([]StatusResponse, 0, len(statuses))
		for _, s := range statuses {
			d, err := svc.Describe(s)
			if err != nil {
				return nil, toHumaError(err)
			}
			resp = append(resp, toStatusResponse(d))
		}
		return &ListStatusesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/statuses/{status}",
		Summary:     "Describe an order status",
		Tags:        []string{"Statuses"},
	}, func(_ context.Context, input *GetStatusInput) (*GetStatusOutput, error) {
		d, err := svc.Describe(domain.Status(input.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetStatusOutput{Body: toStatusResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-allowed-transitions",
		Method:      http.MethodGet,
		Path:        "/api/v1/statuses/{status}/transitions",
		Summary:     "List statuses reachable from a status",
		Tags:        []string{"Statuses"},
	}, func(_ context.Context, input *GetStatusInput) (*AllowedTransitionsOutput, error) {
		next, err := svc.AllowedTransitions(domain.Status(input.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AllowedTransitionsOutput{Body: toStrings(next)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "validate-transition",
		Method:      http.MethodPost,
		Path:        "/api/v1/transitions/validate",
		Summary:     "Check a status change without applying it",
		Tags:        []string{"Statuses"},
	}, func(ctx context.Context, input *ValidateTransitionInput) (*ValidateTransitionOutput, error) {
		from, err := domain.ParseStatus(input.Body.From)
		if err != nil {
			return nil, toHumaError(err)
		}
		to, err := domain.ParseStatus(input.Body.To)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &ValidateTransitionOutput{}
		allowed, err := svc.AllowedTransitions(from)
		if err != nil {
			return nil, toHumaError(err)
		}
		out.Body.Allowed = toStrings(allowed)

		err = svc.ValidateTransition(ctx, from, to)
		var trErr *domain.TransitionError
		switch {
		case err == nil:
			out.Body.Valid = true
		case errors.As(err, &trErr):
			out.Body.Reason = trErr.Error()
		default:
			return nil, toHumaError(err)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-order",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders",
		Summary:     "Create a pending order",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *CreateOrderInput) (*CreateOrderOutput, error) {
		order, err := svc.Create(ctx, app.CreateOrderInput{
			CustomerName:  input.Body.CustomerName,
			CustomerEmail: input.Body.CustomerEmail,
			TotalMinor:    input.Body.TotalMinor,
			Currency:      input.Body.Currency,
			Actor:         input.Body.Actor,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateOrderOutput{Body: toOrderResponse(order)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-order",
		Method:      http.MethodGet,
		Path:        "/api/v1/orders/{id}",
		Summary:     "Get an order with its status history",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *GetOrderInput) (*GetOrderOutput, error) {
		order, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetOrderOutput{Body: toOrderResponse(order)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Method:      http.MethodGet,
		Path:        "/api/v1/orders",
		Summary:     "List orders",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *ListOrdersInput) (*ListOrdersOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s, err := domain.ParseStatus(input.Status)
			if err != nil {
				return nil, toHumaError(err)
			}
			filter.Status = &s
		}

		orders, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]OrderResponse, len(orders))
		for i, o := range orders {
			resp[i] = toOrderResponse(o)
		}
		return &ListOrdersOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-order",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders/{id}/transitions",
		Summary:     "Move an order to a new status",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
		to, err := domain.ParseStatus(input.Body.To)
		if err != nil {
			return nil, toHumaError(err)
		}

		order, err := svc.ApplyTransition(ctx, input.ID, to, input.Body.Actor, input.Body.Note)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toOrderResponse(order)}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrOrderNotFound) {
		return huma.Error404NotFound("order not found")
	}

	var unknown *domain.UnknownStatusError
	if errors.As(err, &unknown) {
		return huma.Error422UnprocessableEntity(unknown.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(msgInvalidTransition, &huma.ErrorDetail{
			Message:  trErr.Error(),
			Location: "body.to",
			Value:    toStrings(trErr.Allowed),
		})
	}

	var writeErr *domain.StoreWriteError
	if errors.As(err, &writeErr) {
		if writeErr.Conflict() {
			return huma.Error409Conflict(msgConflict)
		}
		return huma.Error503ServiceUnavailable(msgStoreUnavailable)
	}

	var readErr *domain.StoreReadError
	if errors.As(err, &readErr) {
		return huma.Error503ServiceUnavailable(msgStoreUnavailable)
	}

	return huma.Error500InternalServerError("internal server error")
}

func toStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
