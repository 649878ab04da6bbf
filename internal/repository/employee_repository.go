package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
)

// EmployeeRepository reads employee records.
type EmployeeRepository struct {
	db Querier
}

// NewEmployeeRepository creates a new EmployeeRepository.
func NewEmployeeRepository(db Querier) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, name, department, role, employment_status, created_at, updated_at`

// GetByID retrieves one employee.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	e := &Employee{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.Department, &e.Role, &e.EmploymentStatus,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("employee", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get employee")
	}

	return e, nil
}

// ListAdmins returns active employees holding admin-level permission.
// These are the recipients of escalation digests.
func (r *EmployeeRepository) ListAdmins(ctx context.Context) ([]*Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE role = 'admin' AND employment_status = 'active'
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list admins")
	}
	defer rows.Close()

	admins := make([]*Employee, 0)
	for rows.Next() {
		e := &Employee{}
		err := rows.Scan(
			&e.ID, &e.Name, &e.Department, &e.Role, &e.EmploymentStatus,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan employee")
		}
		admins = append(admins, e)
	}

	return admins, nil
}
