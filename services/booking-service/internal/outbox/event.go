package outbox

import (
	"encoding/json"
	"time"

	"github.com/tavolo/tavolo/libs/events"
	"github.com/tavolo/tavolo/services/booking-service/internal/model"
)

// Event is the envelope written to the outbox table. EventType doubles as the Kafka topic.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// TopicFor maps a reservation status to the lifecycle event announcing it.
func TopicFor(status model.Status) string {
	switch status {
	case model.StatusConfirmed:
		return events.TopicReservationConfirmed
	case model.StatusCancelled:
		return events.TopicReservationCancelled
	default:
		return events.TopicReservationCreated
	}
}

// ReservationEvent snapshots res into an outbox event of the given type.
func ReservationEvent(eventType string, res model.Reservation, at time.Time) (Event, error) {
	payload, err := json.Marshal(events.Reservation{
		ReservationID:   res.ID.String(),
		Name:            res.Name,
		Email:           res.Email,
		Phone:           res.Phone,
		Date:            res.Date.String(),
		StartTime:       res.StartTime.String(),
		EndTime:         res.EndTime.String(),
		Guests:          res.Guests,
		SpecialRequests: res.SpecialRequests,
		Status:          string(res.Status),
		OccurredAt:      at.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: events.AggregateReservation,
		AggregateID:   res.ID.String(),
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
