package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
)

// PermitRepository is the permit registry. Permits are never deleted;
// revocation and expiry are status updates.
type PermitRepository struct {
	db Querier
}

// NewPermitRepository creates a new PermitRepository.
func NewPermitRepository(db Querier) *PermitRepository {
	return &PermitRepository{db: db}
}

const permitColumns = `
	id, employee_id, vehicle_id, issue_date, expiration_date,
	status, verification_token, permit_file_key, created_at, updated_at
`

// Create inserts a new permit row and fills in generated fields.
func (r *PermitRepository) Create(ctx context.Context, p *Permit) error {
	query := `
		INSERT INTO permits (employee_id, vehicle_id, issue_date, expiration_date,
		                     status, verification_token, permit_file_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		p.EmployeeID,
		p.VehicleID,
		p.IssueDate,
		p.ExpirationDate,
		p.Status,
		p.VerificationToken,
		p.PermitFileKey,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create permit")
	}

	return nil
}

// GetByID retrieves a permit by ID.
func (r *PermitRepository) GetByID(ctx context.Context, id string) (*Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE id = $1`

	p := &Permit{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.EmployeeID, &p.VehicleID, &p.IssueDate, &p.ExpirationDate,
		&p.Status, &p.VerificationToken, &p.PermitFileKey, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("permit", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get permit")
	}

	return p, nil
}

// GetValidByVehicleID returns the single valid permit for a vehicle, or
// nil when none exists.
func (r *PermitRepository) GetValidByVehicleID(ctx context.Context, vehicleID string) (*Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE vehicle_id = $1 AND status = 'valid'`

	p := &Permit{}
	err := r.db.QueryRow(ctx, query, vehicleID).Scan(
		&p.ID, &p.EmployeeID, &p.VehicleID, &p.IssueDate, &p.ExpirationDate,
		&p.Status, &p.VerificationToken, &p.PermitFileKey, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get valid permit")
	}

	return p, nil
}

// List returns all permits ordered newest-first.
func (r *PermitRepository) List(ctx context.Context) ([]*Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list permits")
	}
	defer rows.Close()

	permits := make([]*Permit, 0)
	for rows.Next() {
		p := &Permit{}
		err := rows.Scan(
			&p.ID, &p.EmployeeID, &p.VehicleID, &p.IssueDate, &p.ExpirationDate,
			&p.Status, &p.VerificationToken, &p.PermitFileKey, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan permit")
		}
		permits = append(permits, p)
	}

	return permits, nil
}

// Revoke marks a permit revoked. Revocation is never a delete.
func (r *PermitRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE permits
		SET status = 'revoked', updated_at = NOW()
		WHERE id = $1 AND status = 'valid'
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("valid permit", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to revoke permit")
	}

	return nil
}

// UpdateFileKey stores the rendered artifact reference on a permit.
func (r *PermitRepository) UpdateFileKey(ctx context.Context, id, fileKey string) error {
	query := `
		UPDATE permits
		SET permit_file_key = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, fileKey).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("permit", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update permit file key")
	}

	return nil
}

// MarkExpired flips valid permits whose expiration date is strictly
// before the given date to expired, returning how many were flipped.
func (r *PermitRepository) MarkExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE permits
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'valid' AND expiration_date < $1
	`

	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to mark permits expired")
	}

	return tag.RowsAffected(), nil
}
