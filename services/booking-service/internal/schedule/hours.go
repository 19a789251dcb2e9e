package schedule

import "time"

// Period is one of the two daily service windows.
type Period struct {
	Name      string
	startHour int
	endHour   int
}

var (
	Lunch  = Period{Name: "lunch", startHour: 11, endHour: 14}
	Dinner = Period{Name: "dinner", startHour: 18, endHour: 22}
)

// catalog is every start/end time a guest can pick, at 30 minute steps.
var catalog = []Clock{
	NewClock(11, 30), NewClock(12, 0), NewClock(12, 30), NewClock(13, 0), NewClock(13, 30), NewClock(14, 0),
	NewClock(18, 0), NewClock(18, 30), NewClock(19, 0), NewClock(19, 30), NewClock(20, 0), NewClock(20, 30),
	NewClock(21, 0), NewClock(21, 30), NewClock(22, 0),
}

// Catalog returns a copy of the selectable times in ascending order.
func Catalog() []Clock {
	out := make([]Clock, len(catalog))
	copy(out, catalog)
	return out
}

func InCatalog(c Clock) bool {
	for _, t := range catalog {
		if t == c {
			return true
		}
	}
	return false
}

// open reports whether hour h lies inside the period, both bounds inclusive.
func (p Period) open(h int) bool {
	return h >= p.startHour && h <= p.endHour
}

// seats reports whether a booking may start at hour h: the end hour is excluded.
func (p Period) seats(h int) bool {
	return h >= p.startHour && h < p.endHour
}

// IsTimeSlotAvailable reports whether t on day d falls inside business hours.
// Sunday is closed, Saturday serves dinner only, weekdays serve lunch and dinner.
func IsTimeSlotAvailable(d Date, t Clock) bool {
	h := t.Hour()
	switch d.Weekday() {
	case time.Sunday:
		return false
	case time.Saturday:
		return Dinner.open(h)
	default:
		return Lunch.open(h) || Dinner.open(h)
	}
}

// AvailableSlots filters the catalog down to the start times offered on d.
// The result is empty, never nil, when the restaurant is closed.
func AvailableSlots(d Date) []Clock {
	out := []Clock{}
	for _, t := range catalog {
		if IsTimeSlotAvailable(d, t) {
			out = append(out, t)
		}
	}
	return out
}

// PeriodOf returns the period a booking starting at start belongs to.
func PeriodOf(start Clock) (Period, bool) {
	switch h := start.Hour(); {
	case Lunch.seats(h):
		return Lunch, true
	case Dinner.seats(h):
		return Dinner, true
	default:
		return Period{}, false
	}
}

// ValidEndTimes lists the catalog times a booking starting at start may end at: strictly later
// than start and inside the same period, so no booking spans the afternoon gap or midnight.
// Unset yields the whole catalog for the initial form state.
func ValidEndTimes(start Clock) []Clock {
	if start == Unset {
		return Catalog()
	}
	out := []Clock{}
	p, ok := PeriodOf(start)
	if !ok {
		return out
	}
	for _, t := range catalog {
		if t > start && t.Hour() <= p.endHour {
			out = append(out, t)
		}
	}
	return out
}

func IsValidEndTime(start, end Clock) bool {
	for _, t := range ValidEndTimes(start) {
		if t == end {
			return true
		}
	}
	return false
}
