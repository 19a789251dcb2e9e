package storage

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
)

const microsPerMinute = int64(time.Minute / time.Microsecond)

func pgDate(d schedule.Date) pgtype.Date {
	return pgtype.Date{Time: time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), Valid: true}
}

func pgDates(ds []schedule.Date) []pgtype.Date {
	out := make([]pgtype.Date, 0, len(ds))
	for _, d := range ds {
		out = append(out, pgDate(d))
	}
	return out
}

func fromPgDate(d pgtype.Date) schedule.Date {
	if !d.Valid {
		return schedule.Date{}
	}
	return schedule.DateOf(d.Time)
}

func pgTime(c schedule.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * microsPerMinute, Valid: true}
}

// fromPgTime drops seconds; the schema only ever stores whole minutes.
func fromPgTime(t pgtype.Time) schedule.Clock {
	if !t.Valid {
		return schedule.Unset
	}
	return schedule.Clock(t.Microseconds / microsPerMinute)
}
