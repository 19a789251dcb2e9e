// Package events holds the reservation lifecycle contract shared by the booking producer
// and its consumers. The Kafka topic of each event equals its type.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TopicReservationCreated   = "reservation.created.v1"
	TopicReservationConfirmed = "reservation.confirmed.v1"
	TopicReservationCancelled = "reservation.cancelled.v1"
)

// ReservationTopics lists every topic a reservation consumer may subscribe to.
var ReservationTopics = []string{
	TopicReservationCreated,
	TopicReservationConfirmed,
	TopicReservationCancelled,
}

const AggregateReservation = "reservation"

// Reservation is the payload of every reservation event. Date is YYYY-MM-DD and the
// times are restaurant-local HH:MM.
type Reservation struct {
	ReservationID   string    `json:"reservation_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	Guests          int       `json:"guests"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	Status          string    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
}

var ErrInvalidPayload = errors.New("invalid reservation event payload")

// DecodeReservation parses and checks a payload read from Kafka.
func DecodeReservation(raw []byte) (Reservation, error) {
	var evt Reservation
	if err := json.Unmarshal(raw, &evt); err != nil {
		return Reservation{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if evt.ReservationID == "" || evt.Email == "" || evt.Date == "" || evt.Status == "" {
		return Reservation{}, fmt.Errorf("%w: missing required fields", ErrInvalidPayload)
	}
	return evt, nil
}
