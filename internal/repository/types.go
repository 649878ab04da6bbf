package repository

import "time"

// ── Domain types for commute permit management ───────────────────────────────

// DocumentType tags the three independently tracked document categories.
type DocumentType string

const (
	DocumentTypeLicense   DocumentType = "license"
	DocumentTypeVehicle   DocumentType = "vehicle"
	DocumentTypeInsurance DocumentType = "insurance"
)

// ValidDocumentType reports whether t is one of the three known categories.
func ValidDocumentType(t DocumentType) bool {
	switch t {
	case DocumentTypeLicense, DocumentTypeVehicle, DocumentTypeInsurance:
		return true
	default:
		return false
	}
}

// ApprovalStatus is the review state of a document.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// License is a driver license record, modeled 1:1 per employee by convention.
type License struct {
	ID              string
	EmployeeID      string
	LicenseNumber   string
	ExpiresOn       time.Time // date-valued
	Status          ApprovalStatus
	RejectionReason *string
	ApprovedAt      *time.Time
	Deleted         bool
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Vehicle is a registered vehicle record; an employee may hold several.
type Vehicle struct {
	ID                  string
	EmployeeID          string
	PlateNumber         string
	Model               string
	InspectionExpiresOn time.Time // date-valued
	Status              ApprovalStatus
	RejectionReason     *string
	ApprovedAt          *time.Time
	Deleted             bool
	DeletedAt           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Insurance is an insurance policy record; an employee may hold several.
type Insurance struct {
	ID              string
	EmployeeID      string
	PolicyNumber    string
	CoverageStart   time.Time // date-valued
	CoverageEnd     time.Time // date-valued
	Status          ApprovalStatus
	RejectionReason *string
	ApprovedAt      *time.Time
	Deleted         bool
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DocumentSummary is the category-independent projection the approval
// engine and expiration monitor operate on. EndDate is the document's
// validity end: license expiration, vehicle inspection expiration, or
// insurance coverage end.
type DocumentSummary struct {
	Type       DocumentType
	ID         string
	EmployeeID string
	Number     string
	EndDate    time.Time
	Status     ApprovalStatus
	Deleted    bool
}

// EmploymentStatus is the employment state of an employee.
type EmploymentStatus string

const (
	EmploymentStatusActive   EmploymentStatus = "active"
	EmploymentStatusResigned EmploymentStatus = "resigned"
)

// Employee is the document owner.
type Employee struct {
	ID               string
	Name             string
	Department       string
	Role             string // "admin" receives escalation digests
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PermitStatus is the lifecycle state of a commuting permit.
type PermitStatus string

const (
	PermitStatusValid   PermitStatus = "valid"
	PermitStatusExpired PermitStatus = "expired"
	PermitStatusRevoked PermitStatus = "revoked"
)

// Permit grants commuting approval for one vehicle, bounded by the
// shortest-lived supporting document. At most one valid permit exists
// per vehicle at a time.
type Permit struct {
	ID                string
	EmployeeID        string
	VehicleID         string
	IssueDate         time.Time
	ExpirationDate    time.Time
	Status            PermitStatus
	VerificationToken string
	PermitFileKey     string // empty until artifact rendering succeeds
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HistoryAction is the recorded approval decision.
type HistoryAction string

const (
	HistoryActionApproved HistoryAction = "approved"
	HistoryActionRejected HistoryAction = "rejected"
)

// HistoryEntry is one immutable record in the approval history log.
type HistoryEntry struct {
	ID           string
	DocumentType DocumentType
	DocumentID   string
	EmployeeID   string
	Action       HistoryAction
	ActorID      string
	Reason       *string
	PerformedAt  time.Time
}

// NotificationType classifies dispatched notifications; together with
// recipient and document it forms the deduplication key.
type NotificationType string

const (
	NotificationTypeApproved   NotificationType = "document_approved"
	NotificationTypeRejected   NotificationType = "document_rejected"
	NotificationTypeWarning    NotificationType = "expiry_warning"
	NotificationTypeExpired    NotificationType = "document_expired"
	NotificationTypeEscalation NotificationType = "admin_escalation"
)

// NotificationStatus records the delivery outcome.
type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// NotificationRecord is one append-only entry in the notification log,
// written for both successful and failed deliveries. It is the sole
// source of truth for deduplication.
type NotificationRecord struct {
	ID          string
	RecipientID string
	Type        NotificationType
	DocumentID  *string // nil for per-admin escalation digests
	Title       string
	Message     string
	Status      NotificationStatus
	SentAt      time.Time
}

// Settings are the tunable monitor thresholds.
type Settings struct {
	LicenseWarningDays   int
	VehicleWarningDays   int
	InsuranceWarningDays int
	AdminEscalationDays  int
	UpdatedAt            time.Time
}

// DefaultSettings returns the documented defaults (30/30/30 day warnings,
// 7 day escalation) used when no settings row exists.
func DefaultSettings() Settings {
	return Settings{
		LicenseWarningDays:   30,
		VehicleWarningDays:   30,
		InsuranceWarningDays: 30,
		AdminEscalationDays:  7,
	}
}

// WarningDaysFor returns the per-category warning threshold.
func (s Settings) WarningDaysFor(t DocumentType) int {
	switch t {
	case DocumentTypeLicense:
		return s.LicenseWarningDays
	case DocumentTypeVehicle:
		return s.VehicleWarningDays
	case DocumentTypeInsurance:
		return s.InsuranceWarningDays
	default:
		return 0
	}
}
