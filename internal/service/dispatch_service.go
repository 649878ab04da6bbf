package service

import (
	"context"
	"time"

	"github.com/ridegate/be-commute-permits/internal/logger"
	"github.com/ridegate/be-commute-permits/internal/repository"
)

// dedupWindow is the trailing interval within which a repeat notification
// of the same kind to the same recipient about the same document is
// suppressed.
const dedupWindow = 24 * time.Hour

// Limiter throttles dispatches to the messaging collaborator.
// *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Dispatcher sends structured notifications and records every attempt in
// the append-only notification log. It never returns errors: delivery
// failure is reported as false so batch and monitor callers continue.
type Dispatcher struct {
	records   NotificationStore
	messenger Messenger
	limiter   Limiter
	clock     Clock
	log       *logger.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(records NotificationStore, messenger Messenger, limiter Limiter, clock Clock, log *logger.Logger) *Dispatcher {
	if clock == nil {
		clock = realClock{}
	}
	return &Dispatcher{
		records:   records,
		messenger: messenger,
		limiter:   limiter,
		clock:     clock,
		log:       log,
	}
}

// Send delivers one message and appends a log record for both success
// and failure, so a persistently failing recipient is not retried within
// the dedup window. Returns whether delivery succeeded.
func (d *Dispatcher) Send(ctx context.Context, recipientID string, msg Message) bool {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Warn().Err(err).
				Str("recipient_id", recipientID).
				Msg("Notification dispatch canceled while rate limited")
			return false
		}
	}

	deliverErr := d.messenger.Deliver(ctx, recipientID, msg)

	status := repository.NotificationStatusSent
	if deliverErr != nil {
		status = repository.NotificationStatusFailed
		d.log.Warn().Err(deliverErr).
			Str("recipient_id", recipientID).
			Str("type", string(msg.Type)).
			Msg("Notification delivery failed")
	}

	record := &repository.NotificationRecord{
		RecipientID: recipientID,
		Type:        msg.Type,
		DocumentID:  msg.DocumentID,
		Title:       msg.Title,
		Message:     msg.Body,
		Status:      status,
	}
	if err := d.records.Append(ctx, record); err != nil {
		d.log.Warn().Err(err).
			Str("recipient_id", recipientID).
			Str("type", string(msg.Type)).
			Msg("Failed to append notification record")
	}

	return deliverErr == nil
}

// IsDuplicate reports whether a matching record exists within the
// trailing dedup window. The check is read-then-write: a rare duplicate
// under concurrent dispatch is tolerated rather than prevented with
// locking. A log-store failure reports false, degrading to a possible
// duplicate instead of silently suppressing a notification.
func (d *Dispatcher) IsDuplicate(ctx context.Context, recipientID string, documentID *string, typ repository.NotificationType) bool {
	since := d.clock.Now().Add(-dedupWindow)

	exists, err := d.records.ExistsSince(ctx, recipientID, documentID, typ, since)
	if err != nil {
		d.log.Warn().Err(err).
			Str("recipient_id", recipientID).
			Str("type", string(typ)).
			Msg("Dedup lookup failed, treating as not duplicate")
		return false
	}

	return exists
}
