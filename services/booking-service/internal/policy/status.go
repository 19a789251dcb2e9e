package policy

import (
	"errors"
	"fmt"

	"github.com/tavolo/tavolo/services/booking-service/internal/model"
)

// MaxAutoConfirmGuests is the largest party confirmed without staff review.
const MaxAutoConfirmGuests = 6

var (
	ErrGuestsOutOfRange  = errors.New("guest count out of range")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// AssignStatus decides the initial status of a new reservation. It runs once at creation;
// later edits to the party size never re-evaluate it.
func AssignStatus(guests int) (model.Status, error) {
	switch {
	case guests < model.MinGuests || guests > model.MaxGuests:
		return "", fmt.Errorf("%w: %d not in [%d, %d]", ErrGuestsOutOfRange, guests, model.MinGuests, model.MaxGuests)
	case guests <= MaxAutoConfirmGuests:
		return model.StatusConfirmed, nil
	default:
		return model.StatusPending, nil
	}
}
