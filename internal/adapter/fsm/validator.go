package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/gemdesk/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// events converts the domain lifecycle graph into looplab/fsm EventDesc
// format. The event name is the target status, so every source that may move
// to the same target is folded into one EventDesc (e.g., "cancelled" is
// reachable from pending, confirmed, processing and shipped).
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	grouped := make(map[domain.Status][]string)
	order := make([]domain.Status, 0)

	for _, t := range domain.Transitions() {
		if _, exists := grouped[t.Dst]; !exists {
			order = append(order, t.Dst)
		}
		grouped[t.Dst] = append(grouped[t.Dst], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, dst := range order {
		out = append(out, loopfsm.EventDesc{
			Name: string(dst),
			Src:  grouped[dst],
			Dst:  string(dst),
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per call, initialized with the
// order's current status, because looplab/fsm tracks state internally.
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks whether an order may move from one status to another.
// Both statuses must belong to the closed set. A disallowed move, including
// a self-transition or any move out of a terminal status, yields a
// domain.TransitionError listing the legal targets.
func (v *Validator) Validate(ctx context.Context, from, to domain.Status) error {
	allowed, err := domain.AllowedTransitions(from)
	if err != nil {
		return err
	}
	if !to.Valid() {
		return &domain.UnknownStatusError{Value: string(to)}
	}

	machine := loopfsm.NewFSM(string(from), events, nil)

	if err := machine.Event(ctx, string(to)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return &domain.TransitionError{
				From:    from,
				To:      to,
				Allowed: allowed,
			}
		}
		return err
	}

	return nil
}
