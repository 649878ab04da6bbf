package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/logger"
	"github.com/ridegate/be-commute-permits/internal/repository"
)

// Outcome classifies what happened to one vehicle during an eligibility
// check.
type Outcome string

const (
	OutcomeIssued   Outcome = "issued"   // first permit for this vehicle
	OutcomeReissued Outcome = "reissued" // old permit revoked, replacement created
	OutcomeSkipped  Outcome = "skipped"  // existing permit still accurate
	OutcomeFailed   Outcome = "failed"   // store or registry call failed
)

// VehicleResult is the per-vehicle outcome of CheckAndIssue.
type VehicleResult struct {
	VehicleID string
	Outcome   Outcome
	PermitID  string
	Err       error
}

// IssueReport is the explicit result of an eligibility check. Issuance
// runs off the approval path's critical section, so errors are collected
// here for the caller to log instead of being returned.
type IssueReport struct {
	EmployeeID string
	Eligible   bool
	Results    []VehicleResult
	Err        error // load-phase failure; Results is empty when set
}

// HasErrors reports whether any step of the check failed.
func (r IssueReport) HasErrors() bool {
	if r.Err != nil {
		return true
	}
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// reissueTolerance is the idempotence guard: an existing permit whose
// expiration differs from the recomputed one by less than this is left
// alone, so redundant triggers (including the sibling-approval race)
// cannot churn permits.
const reissueTolerance = 24 * time.Hour

// EligibilityService decides whether an employee qualifies for commuting
// permits and issues or reissues them.
type EligibilityService struct {
	docs          DocumentStore
	permits       PermitStore
	employees     EmployeeStore
	renderer      ArtifactRenderer
	clock         Clock
	publicBaseURL string
	log           *logger.Logger
}

// NewEligibilityService creates a new EligibilityService.
func NewEligibilityService(
	docs DocumentStore,
	permits PermitStore,
	employees EmployeeStore,
	renderer ArtifactRenderer,
	clock Clock,
	publicBaseURL string,
	log *logger.Logger,
) *EligibilityService {
	if clock == nil {
		clock = realClock{}
	}
	return &EligibilityService{
		docs:          docs,
		permits:       permits,
		employees:     employees,
		renderer:      renderer,
		clock:         clock,
		publicBaseURL: publicBaseURL,
		log:           log,
	}
}

// CheckAndIssue recomputes eligibility for an employee and brings the
// permit registry in line with it. Eligibility requires at least one
// approved document in each of the three categories; when satisfied,
// every approved vehicle gets exactly one valid permit whose expiration
// is the minimum across the supporting documents.
//
// The method never returns an error: a permit-issuance failure must not
// block the approval that triggered it. Callers log the report.
func (s *EligibilityService) CheckAndIssue(ctx context.Context, employeeID string) IssueReport {
	report := IssueReport{EmployeeID: employeeID}

	licenses, err := s.docs.ListApprovedLicenses(ctx, employeeID)
	if err != nil {
		report.Err = err
		return report
	}
	vehicles, err := s.docs.ListApprovedVehicles(ctx, employeeID)
	if err != nil {
		report.Err = err
		return report
	}
	policies, err := s.docs.ListApprovedInsurance(ctx, employeeID)
	if err != nil {
		report.Err = err
		return report
	}

	// All three categories must have at least one approved entry;
	// otherwise there is nothing to do and no side effect.
	if len(licenses) == 0 || len(vehicles) == 0 || len(policies) == 0 {
		return report
	}
	report.Eligible = true

	// The store orders by approved_at descending, so the first entry is
	// the deterministic most-recently-approved choice.
	license := licenses[0]
	policy := policies[0]

	employeeName := s.employeeName(ctx, employeeID)

	for _, vehicle := range vehicles {
		report.Results = append(report.Results,
			s.issueForVehicle(ctx, employeeName, license, vehicle, policy))
	}

	return report
}

// issueForVehicle reconciles one vehicle against the permit registry.
func (s *EligibilityService) issueForVehicle(
	ctx context.Context,
	employeeName string,
	license *repository.License,
	vehicle *repository.Vehicle,
	policy *repository.Insurance,
) VehicleResult {
	result := VehicleResult{VehicleID: vehicle.ID}

	// A permit can never outlive its weakest supporting document.
	expiration := minDate(license.ExpiresOn, vehicle.InspectionExpiresOn, policy.CoverageEnd)

	existing, err := s.permits.GetValidByVehicleID(ctx, vehicle.ID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	if existing != nil {
		drift := existing.ExpirationDate.Sub(expiration)
		if drift < 0 {
			drift = -drift
		}
		if drift < reissueTolerance {
			result.Outcome = OutcomeSkipped
			result.PermitID = existing.ID
			return result
		}

		if err := s.permits.Revoke(ctx, existing.ID); err != nil {
			result.Outcome = OutcomeFailed
			result.Err = err
			return result
		}

		s.log.Info().
			Str("permit_id", existing.ID).
			Str("vehicle_id", vehicle.ID).
			Time("old_expiration", existing.ExpirationDate).
			Time("new_expiration", expiration).
			Msg("Permit revoked for reissuance")
	}

	permit, err := s.createPermit(ctx, employeeName, vehicle, expiration)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	result.PermitID = permit.ID
	if existing != nil {
		result.Outcome = OutcomeReissued
	} else {
		result.Outcome = OutcomeIssued
	}
	return result
}

// createPermit inserts the permit row, then requests artifact rendering.
// A renderer failure leaves the permit with an empty file key; the
// artifact can be regenerated manually later. The permit row is never
// rolled back on renderer failure.
func (s *EligibilityService) createPermit(
	ctx context.Context,
	employeeName string,
	vehicle *repository.Vehicle,
	expiration time.Time,
) (*repository.Permit, error) {
	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	permit := &repository.Permit{
		EmployeeID:        vehicle.EmployeeID,
		VehicleID:         vehicle.ID,
		IssueDate:         dateOnly(s.clock.Now()),
		ExpirationDate:    expiration,
		Status:            repository.PermitStatusValid,
		VerificationToken: token,
	}

	if err := s.permits.Create(ctx, permit); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("permit_id", permit.ID).
		Str("employee_id", permit.EmployeeID).
		Str("vehicle_id", permit.VehicleID).
		Time("expiration_date", permit.ExpirationDate).
		Msg("Permit issued")

	fileKey, err := s.renderer.Render(ctx, RenderRequest{
		EmployeeName:    employeeName,
		VehicleNumber:   vehicle.PlateNumber,
		VehicleModel:    vehicle.Model,
		IssueDate:       permit.IssueDate,
		ExpirationDate:  permit.ExpirationDate,
		VerificationURL: s.verificationURL(token),
	})
	if err != nil {
		s.log.Warn().Err(err).
			Str("permit_id", permit.ID).
			Msg("Permit artifact rendering failed, file key left empty")
		return permit, nil
	}

	if err := s.permits.UpdateFileKey(ctx, permit.ID, fileKey); err != nil {
		s.log.Warn().Err(err).
			Str("permit_id", permit.ID).
			Msg("Failed to store permit file key")
		return permit, nil
	}
	permit.PermitFileKey = fileKey

	return permit, nil
}

// RegenerateArtifact re-renders the artifact for an existing permit,
// recovering permits left without a file key by an earlier renderer
// failure.
func (s *EligibilityService) RegenerateArtifact(ctx context.Context, permitID string) (*repository.Permit, error) {
	permit, err := s.permits.GetByID(ctx, permitID)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.docs.GetVehicle(ctx, permit.VehicleID)
	if err != nil {
		return nil, err
	}

	fileKey, err := s.renderer.Render(ctx, RenderRequest{
		EmployeeName:    s.employeeName(ctx, permit.EmployeeID),
		VehicleNumber:   vehicle.PlateNumber,
		VehicleModel:    vehicle.Model,
		IssueDate:       permit.IssueDate,
		ExpirationDate:  permit.ExpirationDate,
		VerificationURL: s.verificationURL(permit.VerificationToken),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExternal, "artifact regeneration failed")
	}

	if err := s.permits.UpdateFileKey(ctx, permitID, fileKey); err != nil {
		return nil, err
	}
	permit.PermitFileKey = fileKey

	s.log.Info().
		Str("permit_id", permitID).
		Msg("Permit artifact regenerated")

	return permit, nil
}

// employeeName resolves the owner's display name for the artifact. A
// lookup failure degrades to the ID rather than blocking issuance.
func (s *EligibilityService) employeeName(ctx context.Context, employeeID string) string {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		s.log.Warn().Err(err).
			Str("employee_id", employeeID).
			Msg("Could not resolve employee name for permit artifact")
		return employeeID
	}
	return employee.Name
}

func (s *EligibilityService) verificationURL(token string) string {
	return fmt.Sprintf("%s/verify/%s", s.publicBaseURL, token)
}

// newVerificationToken returns a high-entropy opaque token for the
// public verification URL. 24 random bytes give 192 bits of entropy.
func newVerificationToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to generate verification token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func minDate(dates ...time.Time) time.Time {
	min := dates[0]
	for _, d := range dates[1:] {
		if d.Before(min) {
			min = d
		}
	}
	return min
}

// dateOnly truncates an instant to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
