package service

import (
	"context"
	"time"

	"github.com/ridegate/be-commute-permits/internal/repository"
)

// The collaborator interfaces the services depend on. Repositories and
// clients provide the real implementations; tests provide fakes.

// DocumentStore is the document store adapter surface.
type DocumentStore interface {
	GetSummary(ctx context.Context, typ repository.DocumentType, id string) (*repository.DocumentSummary, error)
	SetApproved(ctx context.Context, typ repository.DocumentType, id string) error
	SetRejected(ctx context.Context, typ repository.DocumentType, id, reason string) error
	GetVehicle(ctx context.Context, id string) (*repository.Vehicle, error)
	ListApprovedLicenses(ctx context.Context, employeeID string) ([]*repository.License, error)
	ListApprovedVehicles(ctx context.Context, employeeID string) ([]*repository.Vehicle, error)
	ListApprovedInsurance(ctx context.Context, employeeID string) ([]*repository.Insurance, error)
	ListEndingBetween(ctx context.Context, typ repository.DocumentType, from, to time.Time) ([]*repository.DocumentSummary, error)
	ListEndedBefore(ctx context.Context, typ repository.DocumentType, before time.Time) ([]*repository.DocumentSummary, error)
}

// PermitStore is the permit registry surface.
type PermitStore interface {
	Create(ctx context.Context, p *repository.Permit) error
	GetByID(ctx context.Context, id string) (*repository.Permit, error)
	GetValidByVehicleID(ctx context.Context, vehicleID string) (*repository.Permit, error)
	List(ctx context.Context) ([]*repository.Permit, error)
	Revoke(ctx context.Context, id string) error
	UpdateFileKey(ctx context.Context, id, fileKey string) error
	MarkExpired(ctx context.Context, before time.Time) (int64, error)
}

// HistoryStore appends and reads approval history entries.
type HistoryStore interface {
	Append(ctx context.Context, entry *repository.HistoryEntry) error
	ListByDocument(ctx context.Context, typ repository.DocumentType, documentID string) ([]*repository.HistoryEntry, error)
}

// NotificationStore is the append-only notification log.
type NotificationStore interface {
	Append(ctx context.Context, rec *repository.NotificationRecord) error
	ExistsSince(ctx context.Context, recipientID string, documentID *string, typ repository.NotificationType, since time.Time) (bool, error)
}

// EmployeeStore reads employee records.
type EmployeeStore interface {
	GetByID(ctx context.Context, id string) (*repository.Employee, error)
	ListAdmins(ctx context.Context) ([]*repository.Employee, error)
}

// SettingsStore provides monitor thresholds.
type SettingsStore interface {
	Get(ctx context.Context) (repository.Settings, error)
}

// Message is the structured notification handed to the messaging
// collaborator and recorded in the notification log.
type Message struct {
	Type       repository.NotificationType
	DocumentID *string
	Title      string
	Body       string
}

// Messenger delivers a structured message to one recipient.
type Messenger interface {
	Deliver(ctx context.Context, recipientID string, msg Message) error
}

// RenderRequest is the input to the permit artifact renderer.
type RenderRequest struct {
	EmployeeName    string
	VehicleNumber   string
	VehicleModel    string
	IssueDate       time.Time
	ExpirationDate  time.Time
	VerificationURL string
}

// ArtifactRenderer produces the permit artifact and returns its opaque
// file reference.
type ArtifactRenderer interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
}

// Clock provides the current time; tests substitute a fixed instant.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}
