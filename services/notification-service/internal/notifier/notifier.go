package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
	"github.com/tavolo/tavolo/libs/events"
	"github.com/tavolo/tavolo/libs/kafkax"
	"github.com/tavolo/tavolo/services/notification-service/internal/email"
	"github.com/tavolo/tavolo/services/notification-service/internal/messages"
	"github.com/tavolo/tavolo/services/notification-service/internal/sms"
	"github.com/tavolo/tavolo/services/notification-service/internal/storage"
)

const (
	statusSent   = "sent"
	statusFailed = "failed"

	emailProviderID = "smtp"

	recordAttempts = 3
)

// Recorder stores delivery attempts keyed by event, audience, channel and recipient.
type Recorder interface {
	Insert(ctx context.Context, n storage.Notification) error
	Sent(ctx context.Context, n storage.Notification) (bool, error)
}

type Config struct {
	Restaurant string
	StaffEmail string
	// FailSuffix simulates delivery failure for recipients ending with it; empty disables.
	FailSuffix string
}

// Notifier turns reservation events into guest and staff notices.
type Notifier struct {
	email    email.Sender
	sms      sms.Sender
	recorder Recorder
	logger   *slog.Logger
	cfg      Config
}

func New(emailSender email.Sender, smsSender sms.Sender, recorder Recorder, logger *slog.Logger, cfg Config) *Notifier {
	if cfg.Restaurant == "" {
		cfg.Restaurant = "Tavolo"
	}
	return &Notifier{email: emailSender, sms: smsSender, recorder: recorder, logger: logger, cfg: cfg}
}

// Handle delivers every notice for msg and records each attempt. A malformed payload is
// dropped. Only storage failures return an error, and a redelivered event skips every
// notice already recorded as sent.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	evt, err := events.DecodeReservation(msg.Value)
	if err != nil {
		n.logger.Error("invalid reservation payload", "err", err, "event_id", meta.EventID)
		return nil
	}

	var errs []error
	for _, m := range messages.Render(n.cfg.Restaurant, meta.EventType, evt) {
		base := storage.Notification{
			ReservationID: evt.ReservationID,
			EventID:       meta.EventID,
			EventType:     meta.EventType,
			Audience:      string(m.Audience),
			Subject:       m.Subject,
		}

		switch m.Audience {
		case messages.AudienceGuest:
			errs = append(errs, n.sendEmail(ctx, base, evt.Email, m))
			if m.SMS != "" && evt.Phone != "" && n.sms != nil {
				errs = append(errs, n.sendSMS(ctx, base, evt.Phone, m))
			}
		case messages.AudienceStaff:
			if n.cfg.StaffEmail == "" {
				n.logger.Warn("staff notice skipped (no STAFF_EMAIL)", "reservation_id", evt.ReservationID)
				continue
			}
			errs = append(errs, n.sendEmail(ctx, base, n.cfg.StaffEmail, m))
		}
	}

	n.logger.Info("reservation event processed",
		"reservation_id", evt.ReservationID,
		"event_type", meta.EventType,
		"status", evt.Status,
	)
	return errors.Join(errs...)
}

func (n *Notifier) sendEmail(ctx context.Context, rec storage.Notification, to string, m messages.Message) error {
	rec.Channel = "email"
	rec.Recipient = to
	rec.ProviderID = emailProviderID
	return n.deliver(ctx, rec, func() error { return n.email.Send(to, m.Subject, m.Body) })
}

func (n *Notifier) sendSMS(ctx context.Context, rec storage.Notification, to string, m messages.Message) error {
	rec.Channel = "sms"
	rec.Recipient = to
	rec.ProviderID = n.sms.ProviderID()
	return n.deliver(ctx, rec, func() error { return n.sms.Send(ctx, to, m.SMS) })
}

func (n *Notifier) deliver(ctx context.Context, rec storage.Notification, send func() error) error {
	sent, err := n.recorder.Sent(ctx, rec)
	if err != nil {
		return fmt.Errorf("check %s notification: %w", rec.Channel, err)
	}
	if sent {
		n.logger.Debug(rec.Channel+" already sent", "reservation_id", rec.ReservationID, "audience", rec.Audience)
		return nil
	}
	err = n.simulate(rec.Recipient)
	if err == nil {
		err = send()
	}
	return n.record(ctx, rec, err)
}

func (n *Notifier) simulate(to string) error {
	if n.cfg.FailSuffix != "" && strings.HasSuffix(to, n.cfg.FailSuffix) {
		return errors.New("simulated failure")
	}
	return nil
}

func (n *Notifier) record(ctx context.Context, rec storage.Notification, sendErr error) error {
	rec.Status = statusSent
	if sendErr != nil {
		rec.Status = statusFailed
		rec.ErrorReason = sendErr.Error()
		n.logger.Error(rec.Channel+" send failed", "err", sendErr, "reservation_id", rec.ReservationID, "audience", rec.Audience)
	}
	// Only the write is retried here; the notice itself is not sent again.
	var err error
	for attempt := 1; attempt <= recordAttempts; attempt++ {
		if err = n.recorder.Insert(ctx, rec); err == nil {
			return nil
		}
		n.logger.Warn("record notification failed", "err", err, "attempt", attempt, "channel", rec.Channel)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("record %s notification: %w", rec.Channel, err)
}
