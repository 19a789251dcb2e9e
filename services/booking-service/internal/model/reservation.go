package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Reservation is a guest's claim on a table window for one day.
// StartTime and EndTime are restaurant-local times of day on Date.
type Reservation struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone"`
	Date            schedule.Date  `json:"date"`
	StartTime       schedule.Clock `json:"start_time"`
	EndTime         schedule.Clock `json:"end_time"`
	Guests          int            `json:"guests"`
	SpecialRequests string         `json:"special_requests,omitempty"`
	Status          Status         `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Blocking reports whether the reservation still holds its window.
func (r Reservation) Blocking() bool {
	return r.Status != StatusCancelled
}
