package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
)

// HistoryRepository appends and reads immutable approval history entries.
type HistoryRepository struct {
	db Querier
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db Querier) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one history entry. The table is append-only; no update
// or delete operation is exposed.
func (r *HistoryRepository) Append(ctx context.Context, entry *HistoryEntry) error {
	query := `
		INSERT INTO approval_history
		    (document_type, document_id, employee_id, action, actor_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, performed_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.DocumentType,
		entry.DocumentID,
		entry.EmployeeID,
		entry.Action,
		entry.ActorID,
		entry.Reason,
	).Scan(&entry.ID, &entry.PerformedAt)

	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to append history entry")
	}

	return nil
}

// ListByDocument returns the history for one document, oldest first.
func (r *HistoryRepository) ListByDocument(ctx context.Context, typ DocumentType, documentID string) ([]*HistoryEntry, error) {
	query := `
		SELECT id, document_type, document_id, employee_id, action, actor_id, reason, performed_at
		FROM approval_history
		WHERE document_type = $1 AND document_id = $2
		ORDER BY performed_at ASC
	`

	rows, err := r.db.Query(ctx, query, typ, documentID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list history")
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// ListByEmployee returns all history entries for an employee's documents,
// oldest first.
func (r *HistoryRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*HistoryEntry, error) {
	query := `
		SELECT id, document_type, document_id, employee_id, action, actor_id, reason, performed_at
		FROM approval_history
		WHERE employee_id = $1
		ORDER BY performed_at ASC
	`

	rows, err := r.db.Query(ctx, query, employeeID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list employee history")
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

func scanHistoryRows(rows pgx.Rows) ([]*HistoryEntry, error) {
	entries := make([]*HistoryEntry, 0)
	for rows.Next() {
		entry := &HistoryEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.DocumentType,
			&entry.DocumentID,
			&entry.EmployeeID,
			&entry.Action,
			&entry.ActorID,
			&entry.Reason,
			&entry.PerformedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan history entry")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
