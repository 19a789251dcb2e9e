package model

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
)

const (
	MinGuests = 1
	MaxGuests = 22

	maxNameLength     = 120
	maxRequestsLength = 1000
)

// ReservationDraft is the booking form as submitted. It is never mutated; Build produces the
// Reservation once every field checks out.
type ReservationDraft struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
}

// Validate lists every problem with the draft relative to today, in field order.
func (d ReservationDraft) Validate(today schedule.Date) []string {
	_, problems := d.parse(today)
	return problems
}

// Build validates the draft and returns the reservation it describes. ID, Status and timestamps
// are left for the caller, which owns the status policy and persistence.
func (d ReservationDraft) Build(today schedule.Date) (Reservation, []string) {
	return d.parse(today)
}

func (d ReservationDraft) parse(today schedule.Date) (Reservation, []string) {
	var problems []string
	res := Reservation{
		Name:            strings.TrimSpace(d.Name),
		Email:           strings.TrimSpace(d.Email),
		Phone:           strings.TrimSpace(d.Phone),
		Guests:          d.Guests,
		SpecialRequests: strings.TrimSpace(d.SpecialRequests),
		StartTime:       schedule.Unset,
		EndTime:         schedule.Unset,
	}

	switch {
	case res.Name == "":
		problems = append(problems, "name is required")
	case len(res.Name) > maxNameLength:
		problems = append(problems, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if res.Email == "" {
		problems = append(problems, "email is required")
	} else if addr, err := mail.ParseAddress(res.Email); err != nil || addr.Address != res.Email {
		problems = append(problems, "email is not a valid address")
	}
	if res.Phone == "" {
		problems = append(problems, "phone is required")
	} else if !validPhone(res.Phone) {
		problems = append(problems, "phone is not a valid number")
	}
	if res.Guests < MinGuests || res.Guests > MaxGuests {
		problems = append(problems, fmt.Sprintf("guests must be between %d and %d", MinGuests, MaxGuests))
	}
	if len(res.SpecialRequests) > maxRequestsLength {
		problems = append(problems, fmt.Sprintf("special_requests must be at most %d characters", maxRequestsLength))
	}

	date, err := schedule.ParseDate(strings.TrimSpace(d.Date))
	if err != nil {
		problems = append(problems, "date must be YYYY-MM-DD")
	} else {
		res.Date = date
		if date.Before(today) {
			problems = append(problems, "date must not be in the past")
		}
	}

	start, err := schedule.ParseClock(strings.TrimSpace(d.StartTime))
	if err != nil {
		problems = append(problems, "start_time must be HH:MM")
	} else {
		res.StartTime = start
		switch {
		case !schedule.InCatalog(start):
			problems = append(problems, "start_time is not a bookable time")
		case !res.Date.IsZero() && !schedule.IsTimeSlotAvailable(res.Date, start):
			problems = append(problems, "start_time is outside opening hours on that date")
		}
	}

	end, err := schedule.ParseClock(strings.TrimSpace(d.EndTime))
	if err != nil {
		problems = append(problems, "end_time must be HH:MM")
	} else {
		res.EndTime = end
		if res.StartTime != schedule.Unset && !schedule.IsValidEndTime(res.StartTime, end) {
			problems = append(problems, "end_time must be a later time within the same service period")
		}
	}

	return res, problems
}

// validPhone accepts digits with common separators and an optional leading +.
func validPhone(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 6 && digits <= 15
}
