package model

import (
	"strings"
	"testing"

	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
)

var today = schedule.MustParseDate("2026-10-15")

func validDraft() ReservationDraft {
	return ReservationDraft{
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Phone:     "+39 055 123 4567",
		Date:      "2026-10-21",
		StartTime: "19:00",
		EndTime:   "20:30",
		Guests:    4,
	}
}

func TestBuildValidDraft(t *testing.T) {
	res, problems := validDraft().Build(today)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if res.Date.String() != "2026-10-21" || res.StartTime.String() != "19:00" || res.EndTime.String() != "20:30" {
		t.Fatalf("unexpected reservation: %+v", res)
	}
	if res.Guests != 4 || res.Name != "Ada Lovelace" {
		t.Fatalf("unexpected reservation: %+v", res)
	}
}

func TestValidateReportsEachField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ReservationDraft)
		want   string
	}{
		{"missing name", func(d *ReservationDraft) { d.Name = "  " }, "name is required"},
		{"bad email", func(d *ReservationDraft) { d.Email = "ada at example" }, "email is not a valid address"},
		{"display-name email", func(d *ReservationDraft) { d.Email = "Ada <ada@example.com>" }, "email is not a valid address"},
		{"missing phone", func(d *ReservationDraft) { d.Phone = "" }, "phone is required"},
		{"bad phone", func(d *ReservationDraft) { d.Phone = "call me" }, "phone is not a valid number"},
		{"zero guests", func(d *ReservationDraft) { d.Guests = 0 }, "guests must be between 1 and 22"},
		{"too many guests", func(d *ReservationDraft) { d.Guests = 23 }, "guests must be between 1 and 22"},
		{"bad date", func(d *ReservationDraft) { d.Date = "21/10/2026" }, "date must be YYYY-MM-DD"},
		{"past date", func(d *ReservationDraft) { d.Date = "2026-10-14" }, "date must not be in the past"},
		{"bad start", func(d *ReservationDraft) { d.StartTime = "7pm" }, "start_time must be HH:MM"},
		{"off-catalog start", func(d *ReservationDraft) { d.StartTime = "19:15" }, "start_time is not a bookable time"},
		{"sunday", func(d *ReservationDraft) { d.Date = "2026-10-18" }, "start_time is outside opening hours on that date"},
		{"saturday lunch", func(d *ReservationDraft) {
			d.Date = "2026-10-24"
			d.StartTime = "12:00"
			d.EndTime = "13:00"
		}, "start_time is outside opening hours on that date"},
		{"end before start", func(d *ReservationDraft) { d.EndTime = "18:30" }, "end_time must be a later time within the same service period"},
		{"end across gap", func(d *ReservationDraft) {
			d.StartTime = "13:00"
			d.EndTime = "18:30"
		}, "end_time must be a later time within the same service period"},
		{"bad end", func(d *ReservationDraft) { d.EndTime = "" }, "end_time must be HH:MM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)
			problems := d.Validate(today)
			if len(problems) != 1 || problems[0] != tc.want {
				t.Fatalf("problems = %v, want [%s]", problems, tc.want)
			}
		})
	}
}

func TestValidateSameDayAllowed(t *testing.T) {
	d := validDraft()
	d.Date = today.String()
	if problems := d.Validate(today); len(problems) != 0 {
		t.Fatalf("same-day booking rejected: %v", problems)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	problems := ReservationDraft{}.Validate(today)
	joined := strings.Join(problems, "; ")
	for _, want := range []string{"name is required", "email is required", "phone is required", "guests", "date", "start_time", "end_time"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q among %v", want, problems)
		}
	}
}

func TestBlocking(t *testing.T) {
	if (Reservation{Status: StatusCancelled}).Blocking() {
		t.Fatal("cancelled reservation must not block")
	}
	if !(Reservation{Status: StatusPending}).Blocking() {
		t.Fatal("pending reservation must block")
	}
}
