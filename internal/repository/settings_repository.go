package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
)

// SettingsRepository reads and updates monitor thresholds. The table
// holds a single row; defaults apply when it is absent.
type SettingsRepository struct {
	db Querier
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db Querier) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the current settings, falling back to the documented
// defaults (30/30/30 day warnings, 7 day escalation) when no row exists.
func (r *SettingsRepository) Get(ctx context.Context) (Settings, error) {
	query := `
		SELECT license_warning_days, vehicle_warning_days,
		       insurance_warning_days, admin_escalation_days, updated_at
		FROM system_settings
		WHERE id = 1
	`

	var s Settings
	err := r.db.QueryRow(ctx, query).Scan(
		&s.LicenseWarningDays,
		&s.VehicleWarningDays,
		&s.InsuranceWarningDays,
		&s.AdminEscalationDays,
		&s.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get settings")
	}

	return s, nil
}

// Update upserts the single settings row.
func (r *SettingsRepository) Update(ctx context.Context, s Settings) error {
	query := `
		INSERT INTO system_settings
		    (id, license_warning_days, vehicle_warning_days,
		     insurance_warning_days, admin_escalation_days, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE
		SET license_warning_days = EXCLUDED.license_warning_days,
		    vehicle_warning_days = EXCLUDED.vehicle_warning_days,
		    insurance_warning_days = EXCLUDED.insurance_warning_days,
		    admin_escalation_days = EXCLUDED.admin_escalation_days,
		    updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		s.LicenseWarningDays,
		s.VehicleWarningDays,
		s.InsuranceWarningDays,
		s.AdminEscalationDays,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update settings")
	}

	return nil
}
