package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo/tavolo/services/booking-service/internal/model"
	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
)

func TestPgTimeRoundTrip(t *testing.T) {
	for _, c := range schedule.Catalog() {
		if got := fromPgTime(pgTime(c)); got != c {
			t.Fatalf("round trip %s -> %s", c, got)
		}
	}
	if got := pgTime(schedule.MustParseClock("19:30")).Microseconds; got != int64(19*60+30)*60_000_000 {
		t.Fatalf("19:30 encoded as %d", got)
	}
	if fromPgTime(pgtype.Time{}) != schedule.Unset {
		t.Fatal("NULL time should map to Unset")
	}
}

func TestPgDateRoundTrip(t *testing.T) {
	d := schedule.MustParseDate("2026-12-31")
	pd := pgDate(d)
	if !pd.Valid || pd.Time.Location() != time.UTC {
		t.Fatalf("unexpected pg date: %+v", pd)
	}
	if fromPgDate(pd) != d {
		t.Fatalf("round trip %s -> %s", d, fromPgDate(pd))
	}
	if len(pgDates([]schedule.Date{d, d.AddDays(1)})) != 2 {
		t.Fatal("pgDates dropped entries")
	}
}

func TestScanTargetsConvertColumns(t *testing.T) {
	var res model.Reservation
	targets := scanTargets(&res)
	if len(targets) != 12 {
		t.Fatalf("expected 12 scan targets, got %d", len(targets))
	}
	if err := targets[4].(dateScanner).ScanDate(pgDate(schedule.MustParseDate("2026-10-21"))); err != nil {
		t.Fatal(err)
	}
	if err := targets[5].(clockScanner).ScanTime(pgTime(schedule.MustParseClock("19:00"))); err != nil {
		t.Fatal(err)
	}
	if res.Date.String() != "2026-10-21" || res.StartTime.String() != "19:00" {
		t.Fatalf("unexpected reservation: %+v", res)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(ErrNotFound) || !IsNotFound(fmt.Errorf("wrap: %w", pgx.ErrNoRows)) {
		t.Fatal("expected not found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatal("unexpected not found")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected reservation and outbox migrations, got %d", len(entries))
	}
}
