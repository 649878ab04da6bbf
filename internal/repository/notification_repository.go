package repository

import (
	"context"
	"time"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
)

// NotificationRepository appends and queries the append-only notification
// log, which is the sole source of truth for deduplication.
type NotificationRepository struct {
	db Querier
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db Querier) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Append inserts one notification record. Records are written for both
// successful and failed deliveries.
func (r *NotificationRepository) Append(ctx context.Context, rec *NotificationRecord) error {
	query := `
		INSERT INTO notification_log
		    (recipient_id, notification_type, document_id, title, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, sent_at
	`

	err := r.db.QueryRow(ctx, query,
		rec.RecipientID,
		rec.Type,
		rec.DocumentID,
		rec.Title,
		rec.Message,
		rec.Status,
	).Scan(&rec.ID, &rec.SentAt)

	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to append notification record")
	}

	return nil
}

// ExistsSince reports whether a record matching (recipient, document,
// type) exists with sent_at at or after the given instant. A nil
// documentID matches records with no document reference, which is how
// per-admin escalation digests are keyed.
func (r *NotificationRepository) ExistsSince(ctx context.Context, recipientID string, documentID *string, typ NotificationType, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_log
			WHERE recipient_id = $1
			  AND notification_type = $2
			  AND document_id IS NOT DISTINCT FROM $3
			  AND sent_at >= $4
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, recipientID, typ, documentID, since).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to query notification log")
	}

	return exists, nil
}

// ListByRecipient returns a recipient's notification records, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, recipient_id, notification_type, document_id, title, message, status, sent_at
		FROM notification_log
		WHERE recipient_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list notifications")
	}
	defer rows.Close()

	records := make([]*NotificationRecord, 0)
	for rows.Next() {
		rec := &NotificationRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.RecipientID,
			&rec.Type,
			&rec.DocumentID,
			&rec.Title,
			&rec.Message,
			&rec.Status,
			&rec.SentAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan notification record")
		}
		records = append(records, rec)
	}

	return records, nil
}
