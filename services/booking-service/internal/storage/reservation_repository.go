package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo/tavolo/libs/db"
	"github.com/tavolo/tavolo/libs/events"
	"github.com/tavolo/tavolo/services/booking-service/internal/model"
	"github.com/tavolo/tavolo/services/booking-service/internal/outbox"
	"github.com/tavolo/tavolo/services/booking-service/internal/policy"
	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
)

var ErrNotFound = errors.New("reservation not found")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

const reservationColumns = `id, name, email, phone, date, start_time, end_time, guests,
	special_requests, status, created_at, updated_at`

type ReservationRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewReservationRepository(pool *db.Pool, outboxRepo *outbox.Repository) *ReservationRepository {
	return &ReservationRepository{pool: pool, outbox: outboxRepo}
}

// Create persists res and its reservation.created.v1 event in one transaction.
// With a non-empty idempotency key, a repeated call returns the reservation stored by the
// first call and replayed=true instead of inserting again.
func (r *ReservationRepository) Create(ctx context.Context, res model.Reservation, idempotencyKey string) (stored model.Reservation, replayed bool, err error) {
	err = r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if idempotencyKey != "" {
			existing, found, err := r.lockIdempotencyKey(ctx, tx, idempotencyKey)
			if err != nil {
				return fmt.Errorf("lock idempotency key: %w", err)
			}
			if found {
				stored, err = r.get(ctx, tx, existing, false)
				replayed = true
				return err
			}
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO reservations
				(id, name, email, phone, date, start_time, end_time, guests, special_requests, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+reservationColumns,
			res.ID, res.Name, res.Email, res.Phone, pgDate(res.Date), pgTime(res.StartTime), pgTime(res.EndTime),
			res.Guests, res.SpecialRequests, string(res.Status),
		).Scan(scanTargets(&stored)...)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}

		evt, err := outbox.ReservationEvent(events.TopicReservationCreated, stored, stored.CreatedAt)
		if err != nil {
			return err
		}
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return fmt.Errorf("write outbox event: %w", err)
		}

		if idempotencyKey != "" {
			if _, err := tx.Exec(ctx, `
				UPDATE reservation_idempotency_keys
				SET reservation_id = $2, updated_at = now()
				WHERE idempotency_key = $1
			`, idempotencyKey, stored.ID); err != nil {
				return fmt.Errorf("finalize idempotency key: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Reservation{}, false, err
	}
	return stored, replayed, nil
}

// lockIdempotencyKey claims key for this transaction. found is true when an earlier request
// under the same key already created a reservation.
func (r *ReservationRepository) lockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (uuid.UUID, bool, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO reservation_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key); err != nil {
		return uuid.Nil, false, err
	}

	var id pgtype.UUID
	if err := tx.QueryRow(ctx, `
		SELECT reservation_id
		FROM reservation_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(&id); err != nil {
		return uuid.Nil, false, err
	}
	if !id.Valid {
		return uuid.Nil, false, nil
	}
	return uuid.UUID(id.Bytes), true, nil
}

func (r *ReservationRepository) Get(ctx context.Context, id uuid.UUID) (model.Reservation, error) {
	return r.get(ctx, r.pool, id, false)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ReservationRepository) get(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var res model.Reservation
	if err := q.QueryRow(ctx, query, id).Scan(scanTargets(&res)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Reservation{}, ErrNotFound
		}
		return model.Reservation{}, err
	}
	return res, nil
}

// ListByDate returns every reservation on d, cancelled ones included, by start time.
func (r *ReservationRepository) ListByDate(ctx context.Context, d schedule.Date) ([]model.Reservation, error) {
	return r.list(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE date = $1
		ORDER BY start_time, created_at
	`, pgDate(d))
}

// ListByDates returns every reservation on any of ds, ordered by date then start time.
func (r *ReservationRepository) ListByDates(ctx context.Context, ds []schedule.Date) ([]model.Reservation, error) {
	if len(ds) == 0 {
		return []model.Reservation{}, nil
	}
	return r.list(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE date = ANY($1)
		ORDER BY date, start_time, created_at
	`, pgDates(ds))
}

// ListPending returns reservations awaiting staff review from day from onward.
func (r *ReservationRepository) ListPending(ctx context.Context, from schedule.Date) ([]model.Reservation, error) {
	return r.list(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = 'pending' AND date >= $1
		ORDER BY date, start_time, created_at
	`, pgDate(from))
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(scanTargets(&res)...); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyAction runs a staff decision under a row lock. When the status moves, the new status
// and its lifecycle event commit together. A repeated decision returns changed=false.
func (r *ReservationRepository) ApplyAction(ctx context.Context, id uuid.UUID, action policy.Action) (res model.Reservation, changed bool, err error) {
	err = r.pool.InTx(ctx, func(tx pgx.Tx) error {
		current, err := r.get(ctx, tx, id, true)
		if err != nil {
			return err
		}
		to, moved, err := policy.Transition(current.Status, action)
		if err != nil {
			return err
		}
		if !moved {
			res = current
			return nil
		}

		if err := tx.QueryRow(ctx, `
			UPDATE reservations
			SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING `+reservationColumns,
			id, string(to),
		).Scan(scanTargets(&res)...); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		evt, err := outbox.ReservationEvent(outbox.TopicFor(to), res, res.UpdatedAt)
		if err != nil {
			return err
		}
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return fmt.Errorf("write outbox event: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return model.Reservation{}, false, err
	}
	return res, changed, nil
}

// scanTargets binds the reservationColumns order to res. The returned scanners convert
// DATE and TIME columns once Scan has filled them.
func scanTargets(res *model.Reservation) []any {
	return []any{
		&res.ID,
		&res.Name,
		&res.Email,
		&res.Phone,
		dateScanner{&res.Date},
		clockScanner{&res.StartTime},
		clockScanner{&res.EndTime},
		&res.Guests,
		&res.SpecialRequests,
		(*string)(&res.Status),
		&res.CreatedAt,
		&res.UpdatedAt,
	}
}

type dateScanner struct{ dst *schedule.Date }

func (s dateScanner) ScanDate(v pgtype.Date) error {
	*s.dst = fromPgDate(v)
	return nil
}

type clockScanner struct{ dst *schedule.Clock }

func (s clockScanner) ScanTime(v pgtype.Time) error {
	*s.dst = fromPgTime(v)
	return nil
}
