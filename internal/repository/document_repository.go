package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
)

// documentTable describes where one document category lives and which
// columns carry its identifying number and validity end date. All reads
// below exclude soft-deleted rows; a resignation cascade marks documents
// deleted and they must become invisible to the engine.
type documentTable struct {
	name      string
	numberCol string
	endCol    string
}

var documentTables = map[DocumentType]documentTable{
	DocumentTypeLicense:   {name: "licenses", numberCol: "license_number", endCol: "expires_on"},
	DocumentTypeVehicle:   {name: "vehicles", numberCol: "plate_number", endCol: "inspection_expires_on"},
	DocumentTypeInsurance: {name: "insurance_policies", numberCol: "policy_number", endCol: "coverage_end"},
}

// DocumentRepository is the store adapter over the three document tables.
// It maps the loosely shaped rows into typed variants at this boundary.
type DocumentRepository struct {
	db Querier
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db Querier) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// GetSummary loads the category-independent projection of one document.
// Soft-deleted documents are reported as not found.
func (r *DocumentRepository) GetSummary(ctx context.Context, typ DocumentType, id string) (*DocumentSummary, error) {
	table, ok := documentTables[typ]
	if !ok {
		return nil, apperrors.InvalidInput("type", fmt.Sprintf("unknown document type '%s'", typ))
	}

	query := fmt.Sprintf(`
		SELECT id, employee_id, %s, %s, status, deleted
		FROM %s
		WHERE id = $1 AND deleted = FALSE
	`, table.numberCol, table.endCol, table.name)

	s := &DocumentSummary{Type: typ}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.EmployeeID,
		&s.Number,
		&s.EndDate,
		&s.Status,
		&s.Deleted,
	)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound(string(typ), id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get document")
	}

	return s, nil
}

// SetApproved transitions a document to approved and stamps approved_at.
func (r *DocumentRepository) SetApproved(ctx context.Context, typ DocumentType, id string) error {
	table, ok := documentTables[typ]
	if !ok {
		return apperrors.InvalidInput("type", fmt.Sprintf("unknown document type '%s'", typ))
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'approved',
		    approved_at = NOW(),
		    rejection_reason = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE
		RETURNING id
	`, table.name)

	var returnedID string
	err := r.db.QueryRow(ctx, query, id).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound(string(typ), id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to approve document")
	}

	return nil
}

// SetRejected transitions a document to rejected with the given reason.
func (r *DocumentRepository) SetRejected(ctx context.Context, typ DocumentType, id, reason string) error {
	table, ok := documentTables[typ]
	if !ok {
		return apperrors.InvalidInput("type", fmt.Sprintf("unknown document type '%s'", typ))
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'rejected',
		    rejection_reason = $2,
		    updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE
		RETURNING id
	`, table.name)

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, reason).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound(string(typ), id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to reject document")
	}

	return nil
}

// GetVehicle loads one vehicle record. Soft-deleted vehicles are
// reported as not found.
func (r *DocumentRepository) GetVehicle(ctx context.Context, id string) (*Vehicle, error) {
	query := `
		SELECT id, employee_id, plate_number, model, inspection_expires_on, status,
		       rejection_reason, approved_at, deleted, deleted_at,
		       created_at, updated_at
		FROM vehicles
		WHERE id = $1 AND deleted = FALSE
	`

	v := &Vehicle{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.EmployeeID, &v.PlateNumber, &v.Model, &v.InspectionExpiresOn, &v.Status,
		&v.RejectionReason, &v.ApprovedAt, &v.Deleted, &v.DeletedAt,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("vehicle", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get vehicle")
	}

	return v, nil
}

// ListApprovedLicenses returns an employee's approved, non-deleted
// licenses ordered most-recently-approved first, so callers picking one
// get a deterministic choice.
func (r *DocumentRepository) ListApprovedLicenses(ctx context.Context, employeeID string) ([]*License, error) {
	query := `
		SELECT id, employee_id, license_number, expires_on, status,
		       rejection_reason, approved_at, deleted, deleted_at,
		       created_at, updated_at
		FROM licenses
		WHERE employee_id = $1 AND status = 'approved' AND deleted = FALSE
		ORDER BY approved_at DESC, id
	`

	rows, err := r.db.Query(ctx, query, employeeID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list licenses")
	}
	defer rows.Close()

	licenses := make([]*License, 0)
	for rows.Next() {
		l := &License{}
		err := rows.Scan(
			&l.ID, &l.EmployeeID, &l.LicenseNumber, &l.ExpiresOn, &l.Status,
			&l.RejectionReason, &l.ApprovedAt, &l.Deleted, &l.DeletedAt,
			&l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan license")
		}
		licenses = append(licenses, l)
	}

	return licenses, nil
}

// ListApprovedVehicles returns an employee's approved, non-deleted vehicles.
func (r *DocumentRepository) ListApprovedVehicles(ctx context.Context, employeeID string) ([]*Vehicle, error) {
	query := `
		SELECT id, employee_id, plate_number, model, inspection_expires_on, status,
		       rejection_reason, approved_at, deleted, deleted_at,
		       created_at, updated_at
		FROM vehicles
		WHERE employee_id = $1 AND status = 'approved' AND deleted = FALSE
		ORDER BY approved_at DESC, id
	`

	rows, err := r.db.Query(ctx, query, employeeID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list vehicles")
	}
	defer rows.Close()

	vehicles := make([]*Vehicle, 0)
	for rows.Next() {
		v := &Vehicle{}
		err := rows.Scan(
			&v.ID, &v.EmployeeID, &v.PlateNumber, &v.Model, &v.InspectionExpiresOn, &v.Status,
			&v.RejectionReason, &v.ApprovedAt, &v.Deleted, &v.DeletedAt,
			&v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan vehicle")
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, nil
}

// ListApprovedInsurance returns an employee's approved, non-deleted
// insurance policies ordered most-recently-approved first.
func (r *DocumentRepository) ListApprovedInsurance(ctx context.Context, employeeID string) ([]*Insurance, error) {
	query := `
		SELECT id, employee_id, policy_number, coverage_start, coverage_end, status,
		       rejection_reason, approved_at, deleted, deleted_at,
		       created_at, updated_at
		FROM insurance_policies
		WHERE employee_id = $1 AND status = 'approved' AND deleted = FALSE
		ORDER BY approved_at DESC, id
	`

	rows, err := r.db.Query(ctx, query, employeeID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list insurance policies")
	}
	defer rows.Close()

	policies := make([]*Insurance, 0)
	for rows.Next() {
		p := &Insurance{}
		err := rows.Scan(
			&p.ID, &p.EmployeeID, &p.PolicyNumber, &p.CoverageStart, &p.CoverageEnd, &p.Status,
			&p.RejectionReason, &p.ApprovedAt, &p.Deleted, &p.DeletedAt,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan insurance policy")
		}
		policies = append(policies, p)
	}

	return policies, nil
}

// ListEndingBetween returns approved, non-deleted documents of one
// category whose validity end falls in [from, to] inclusive.
func (r *DocumentRepository) ListEndingBetween(ctx context.Context, typ DocumentType, from, to time.Time) ([]*DocumentSummary, error) {
	table, ok := documentTables[typ]
	if !ok {
		return nil, apperrors.InvalidInput("type", fmt.Sprintf("unknown document type '%s'", typ))
	}

	query := fmt.Sprintf(`
		SELECT id, employee_id, %s, %s, status, deleted
		FROM %s
		WHERE status = 'approved' AND deleted = FALSE
		  AND %s >= $1 AND %s <= $2
		ORDER BY %s, id
	`, table.numberCol, table.endCol, table.name, table.endCol, table.endCol, table.endCol)

	return r.querySummaries(ctx, typ, query, from, to)
}

// ListEndedBefore returns approved, non-deleted documents of one category
// whose validity end is strictly before the given date.
func (r *DocumentRepository) ListEndedBefore(ctx context.Context, typ DocumentType, before time.Time) ([]*DocumentSummary, error) {
	table, ok := documentTables[typ]
	if !ok {
		return nil, apperrors.InvalidInput("type", fmt.Sprintf("unknown document type '%s'", typ))
	}

	query := fmt.Sprintf(`
		SELECT id, employee_id, %s, %s, status, deleted
		FROM %s
		WHERE status = 'approved' AND deleted = FALSE
		  AND %s < $1
		ORDER BY %s, id
	`, table.numberCol, table.endCol, table.name, table.endCol, table.endCol)

	return r.querySummaries(ctx, typ, query, before)
}

func (r *DocumentRepository) querySummaries(ctx context.Context, typ DocumentType, query string, args ...any) ([]*DocumentSummary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to query documents")
	}
	defer rows.Close()

	summaries := make([]*DocumentSummary, 0)
	for rows.Next() {
		s := &DocumentSummary{Type: typ}
		err := rows.Scan(&s.ID, &s.EmployeeID, &s.Number, &s.EndDate, &s.Status, &s.Deleted)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan document summary")
		}
		summaries = append(summaries, s)
	}

	return summaries, nil
}
