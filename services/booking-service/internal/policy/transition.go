package policy

import (
	"fmt"

	"github.com/tavolo/tavolo/services/booking-service/internal/model"
)

// Action is a staff decision on a reservation awaiting review.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func (a Action) target() (model.Status, bool) {
	switch a {
	case ActionApprove:
		return model.StatusConfirmed, true
	case ActionReject:
		return model.StatusCancelled, true
	}
	return "", false
}

// Transition applies a staff action to the current status. Only pending reservations move.
// Repeating the action that produced the current status reports changed=false with no error,
// so two staff members acting on the same row do not fail each other.
func Transition(from model.Status, action Action) (to model.Status, changed bool, err error) {
	target, ok := action.target()
	if !ok {
		return from, false, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	switch from {
	case model.StatusPending:
		return target, true, nil
	case target:
		return from, false, nil
	default:
		return from, false, fmt.Errorf("%w: cannot %s a %s reservation", ErrInvalidTransition, action, from)
	}
}
