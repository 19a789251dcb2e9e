package conflicts

import "github.com/tavolo/tavolo/services/booking-service/internal/model"

// Overlaps reports whether two windows on the same day intersect. Windows are half-open,
// so a booking ending at 20:00 does not clash with one starting at 20:00.
func Overlaps(a, b model.Reservation) bool {
	return a.StartTime < b.EndTime && b.StartTime < a.EndTime
}

// Detect returns the reservations in pool that clash with candidate, in pool order.
// The candidate itself, other days and cancelled reservations never clash.
// A candidate with no clashes yields an empty, non-nil slice.
func Detect(candidate model.Reservation, pool []model.Reservation) []model.Reservation {
	out := []model.Reservation{}
	for _, other := range pool {
		if other.ID == candidate.ID || other.Date != candidate.Date || !other.Blocking() {
			continue
		}
		if Overlaps(candidate, other) {
			out = append(out, other)
		}
	}
	return out
}

// Flagged pairs a reservation with the reservations it clashes with.
type Flagged struct {
	Reservation model.Reservation
	Conflicts   []model.Reservation
}

// Report runs Detect for each target against the whole pool, keeping target order.
func Report(targets, pool []model.Reservation) []Flagged {
	out := make([]Flagged, 0, len(targets))
	for _, r := range targets {
		out = append(out, Flagged{Reservation: r, Conflicts: Detect(r, pool)})
	}
	return out
}

// Count returns how many targets clash with at least one other reservation.
func Count(flagged []Flagged) int {
	n := 0
	for _, f := range flagged {
		if len(f.Conflicts) > 0 {
			n++
		}
	}
	return n
}
