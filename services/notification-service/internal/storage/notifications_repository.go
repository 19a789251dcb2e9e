package storage

import (
	"context"
	"embed"
	"io/fs"

	"github.com/tavolo/tavolo/libs/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

func Migrate(ctx context.Context, pool *db.Pool) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	return db.Migrate(ctx, pool, sub)
}

// Notification is one delivery attempt to one recipient over one channel.
type Notification struct {
	ReservationID string
	EventID       string
	EventType     string
	Audience      string
	Channel       string
	ProviderID    string
	Recipient     string
	Subject       string
	Status        string
	ErrorReason   string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records a delivery attempt. One row is kept per event, audience, channel and
// recipient; a later attempt overwrites a failed row but never a sent one.
func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(reservation_id, event_id, event_type, audience, channel, provider_id, recipient, subject, status, error_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id, audience, channel, recipient) DO UPDATE
		SET provider_id = EXCLUDED.provider_id,
			subject = EXCLUDED.subject,
			status = EXCLUDED.status,
			error_reason = EXCLUDED.error_reason,
			created_at = now()
		WHERE notifications.status <> 'sent'
	`, n.ReservationID, n.EventID, n.EventType, n.Audience, n.Channel, n.ProviderID, n.Recipient, n.Subject, n.Status, n.ErrorReason)
	return err
}

// Sent reports whether the delivery n describes already went out for its event.
func (r *Repository) Sent(ctx context.Context, n Notification) (bool, error) {
	var sent bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE event_id = $1 AND audience = $2 AND channel = $3 AND recipient = $4 AND status = 'sent'
		)
	`, n.EventID, n.Audience, n.Channel, n.Recipient).Scan(&sent)
	return sent, err
}
