package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/logger"
	"github.com/ridegate/be-commute-permits/internal/repository"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", ServiceName: "test"})
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string {
	return &s
}

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time {
	return c.now
}

// fakeDocumentStore is an in-memory DocumentStore.
type fakeDocumentStore struct {
	mu        sync.Mutex
	summaries map[string]*repository.DocumentSummary // keyed type/id
	licenses  map[string][]*repository.License       // keyed by employee
	vehicles  map[string][]*repository.Vehicle
	policies  map[string][]*repository.Insurance

	approveErr error
	listErr    error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		summaries: make(map[string]*repository.DocumentSummary),
		licenses:  make(map[string][]*repository.License),
		vehicles:  make(map[string][]*repository.Vehicle),
		policies:  make(map[string][]*repository.Insurance),
	}
}

func docKey(typ repository.DocumentType, id string) string {
	return string(typ) + "/" + id
}

func (f *fakeDocumentStore) addSummary(s *repository.DocumentSummary) {
	f.summaries[docKey(s.Type, s.ID)] = s
}

func (f *fakeDocumentStore) GetSummary(_ context.Context, typ repository.DocumentType, id string) (*repository.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[docKey(typ, id)]
	if !ok || s.Deleted {
		return nil, apperrors.NotFound(string(typ), id)
	}
	clone := *s
	return &clone, nil
}

func (f *fakeDocumentStore) SetApproved(_ context.Context, typ repository.DocumentType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.approveErr != nil {
		return f.approveErr
	}
	s, ok := f.summaries[docKey(typ, id)]
	if !ok || s.Deleted {
		return apperrors.NotFound(string(typ), id)
	}
	s.Status = repository.ApprovalStatusApproved
	return nil
}

func (f *fakeDocumentStore) SetRejected(_ context.Context, typ repository.DocumentType, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[docKey(typ, id)]
	if !ok || s.Deleted {
		return apperrors.NotFound(string(typ), id)
	}
	s.Status = repository.ApprovalStatusRejected
	return nil
}

func (f *fakeDocumentStore) GetVehicle(_ context.Context, id string) (*repository.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, vehicles := range f.vehicles {
		for _, v := range vehicles {
			if v.ID == id {
				clone := *v
				return &clone, nil
			}
		}
	}
	return nil, apperrors.NotFound("vehicle", id)
}

func (f *fakeDocumentStore) ListApprovedLicenses(_ context.Context, employeeID string) ([]*repository.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.licenses[employeeID], nil
}

func (f *fakeDocumentStore) ListApprovedVehicles(_ context.Context, employeeID string) ([]*repository.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.vehicles[employeeID], nil
}

func (f *fakeDocumentStore) ListApprovedInsurance(_ context.Context, employeeID string) ([]*repository.Insurance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.policies[employeeID], nil
}

func (f *fakeDocumentStore) ListEndingBetween(_ context.Context, typ repository.DocumentType, from, to time.Time) ([]*repository.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*repository.DocumentSummary
	for _, s := range f.summaries {
		if s.Type != typ || s.Status != repository.ApprovalStatusApproved || s.Deleted {
			continue
		}
		if s.EndDate.Before(from) || s.EndDate.After(to) {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeDocumentStore) ListEndedBefore(_ context.Context, typ repository.DocumentType, before time.Time) ([]*repository.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*repository.DocumentSummary
	for _, s := range f.summaries {
		if s.Type != typ || s.Status != repository.ApprovalStatusApproved || s.Deleted {
			continue
		}
		if !s.EndDate.Before(before) {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	return out, nil
}

// fakePermitStore is an in-memory PermitStore.
type fakePermitStore struct {
	mu       sync.Mutex
	permits  map[string]*repository.Permit
	sequence int

	createErr error
	revokeErr error
}

func newFakePermitStore() *fakePermitStore {
	return &fakePermitStore{permits: make(map[string]*repository.Permit)}
}

func (f *fakePermitStore) Create(_ context.Context, p *repository.Permit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.sequence++
	p.ID = fmt.Sprintf("permit-%d", f.sequence)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	clone := *p
	f.permits[p.ID] = &clone
	return nil
}

func (f *fakePermitStore) GetByID(_ context.Context, id string) (*repository.Permit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.permits[id]
	if !ok {
		return nil, apperrors.NotFound("permit", id)
	}
	clone := *p
	return &clone, nil
}

func (f *fakePermitStore) GetValidByVehicleID(_ context.Context, vehicleID string) (*repository.Permit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.permits {
		if p.VehicleID == vehicleID && p.Status == repository.PermitStatusValid {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakePermitStore) List(_ context.Context) ([]*repository.Permit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Permit
	for _, p := range f.permits {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakePermitStore) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	p, ok := f.permits[id]
	if !ok || p.Status != repository.PermitStatusValid {
		return apperrors.NotFound("valid permit", id)
	}
	p.Status = repository.PermitStatusRevoked
	return nil
}

func (f *fakePermitStore) UpdateFileKey(_ context.Context, id, fileKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.permits[id]
	if !ok {
		return apperrors.NotFound("permit", id)
	}
	p.PermitFileKey = fileKey
	return nil
}

func (f *fakePermitStore) MarkExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, p := range f.permits {
		if p.Status == repository.PermitStatusValid && p.ExpirationDate.Before(before) {
			p.Status = repository.PermitStatusExpired
			count++
		}
	}
	return count, nil
}

func (f *fakePermitStore) validCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, p := range f.permits {
		if p.Status == repository.PermitStatusValid {
			count++
		}
	}
	return count
}

// fakeHistoryStore records appended entries.
type fakeHistoryStore struct {
	mu        sync.Mutex
	entries   []*repository.HistoryEntry
	appendErr error
}

func (f *fakeHistoryStore) Append(_ context.Context, entry *repository.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	clone := *entry
	f.entries = append(f.entries, &clone)
	return nil
}

func (f *fakeHistoryStore) ListByDocument(_ context.Context, typ repository.DocumentType, documentID string) ([]*repository.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.HistoryEntry
	for _, e := range f.entries {
		if e.DocumentType == typ && e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeNotificationStore records appended notification records.
type fakeNotificationStore struct {
	mu        sync.Mutex
	records   []*repository.NotificationRecord
	existsErr error
}

func (f *fakeNotificationStore) Append(_ context.Context, rec *repository.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.SentAt = time.Now().UTC()
	clone := *rec
	f.records = append(f.records, &clone)
	return nil
}

func (f *fakeNotificationStore) ExistsSince(_ context.Context, recipientID string, documentID *string, typ repository.NotificationType, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, rec := range f.records {
		if rec.RecipientID != recipientID || rec.Type != typ {
			continue
		}
		if (rec.DocumentID == nil) != (documentID == nil) {
			continue
		}
		if rec.DocumentID != nil && *rec.DocumentID != *documentID {
			continue
		}
		if rec.SentAt.Before(since) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// fakeEmployeeStore serves employee lookups.
type fakeEmployeeStore struct {
	employees map[string]*repository.Employee
	admins    []*repository.Employee
}

func newFakeEmployeeStore() *fakeEmployeeStore {
	return &fakeEmployeeStore{employees: make(map[string]*repository.Employee)}
}

func (f *fakeEmployeeStore) GetByID(_ context.Context, id string) (*repository.Employee, error) {
	e, ok := f.employees[id]
	if !ok {
		return nil, apperrors.NotFound("employee", id)
	}
	clone := *e
	return &clone, nil
}

func (f *fakeEmployeeStore) ListAdmins(_ context.Context) ([]*repository.Employee, error) {
	return f.admins, nil
}

// fakeSettingsStore serves fixed monitor thresholds.
type fakeSettingsStore struct {
	settings repository.Settings
	err      error
}

func (f *fakeSettingsStore) Get(_ context.Context) (repository.Settings, error) {
	if f.err != nil {
		return repository.Settings{}, f.err
	}
	return f.settings, nil
}

// delivered captures one message handed to the fake messenger.
type delivered struct {
	recipientID string
	msg         Message
}

type fakeMessenger struct {
	mu         sync.Mutex
	sent       []delivered
	deliverErr error
}

func (f *fakeMessenger) Deliver(_ context.Context, recipientID string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.sent = append(f.sent, delivered{recipientID: recipientID, msg: msg})
	return nil
}

type fakeRenderer struct {
	fileKey string
	err     error
	calls   int
}

func (f *fakeRenderer) Render(_ context.Context, _ RenderRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.fileKey == "" {
		return "permits/test.pdf", nil
	}
	return f.fileKey, nil
}

// approvedLicense, approvedVehicle and approvedPolicy build minimal
// approved documents for eligibility scenarios.
func approvedLicense(id, employeeID string, expires time.Time) *repository.License {
	return &repository.License{
		ID:            id,
		EmployeeID:    employeeID,
		LicenseNumber: "L-" + id,
		ExpiresOn:     expires,
		Status:        repository.ApprovalStatusApproved,
	}
}

func approvedVehicle(id, employeeID string, inspectionExpires time.Time) *repository.Vehicle {
	return &repository.Vehicle{
		ID:                  id,
		EmployeeID:          employeeID,
		PlateNumber:         "P-" + id,
		Model:               "Model " + id,
		InspectionExpiresOn: inspectionExpires,
		Status:              repository.ApprovalStatusApproved,
	}
}

func approvedPolicy(id, employeeID string, coverageEnd time.Time) *repository.Insurance {
	return &repository.Insurance{
		ID:            id,
		EmployeeID:    employeeID,
		PolicyNumber:  "I-" + id,
		CoverageStart: coverageEnd.AddDate(-1, 0, 0),
		CoverageEnd:   coverageEnd,
		Status:        repository.ApprovalStatusApproved,
	}
}
