package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/repository"
)

type bulkFixture struct {
	svc       *BulkService
	docs      *fakeDocumentStore
	permits   *fakePermitStore
	records   *fakeNotificationStore
	messenger *fakeMessenger
}

func newBulkFixture() *bulkFixture {
	docs := newFakeDocumentStore()
	permits := newFakePermitStore()
	employees := newFakeEmployeeStore()
	records := &fakeNotificationStore{}
	messenger := &fakeMessenger{}
	log := testLogger()

	approvals := NewApprovalService(docs, &fakeHistoryStore{}, log)
	eligibility := NewEligibilityService(docs, permits, employees, &fakeRenderer{},
		&stubClock{now: date(2026, time.March, 1)}, "https://permits.example.com", log)
	dispatcher := NewDispatcher(records, messenger, nil, &stubClock{now: date(2026, time.March, 1)}, log)

	return &bulkFixture{
		svc:       NewBulkService(approvals, eligibility, dispatcher, 50, 10, log),
		docs:      docs,
		permits:   permits,
		records:   records,
		messenger: messenger,
	}
}

func (f *bulkFixture) addPendingLicense(id, employeeID string) {
	f.docs.addSummary(&repository.DocumentSummary{
		Type:       repository.DocumentTypeLicense,
		ID:         id,
		EmployeeID: employeeID,
		Status:     repository.ApprovalStatusPending,
	})
}

func TestSubmitBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty request", func(t *testing.T) {
		f := newBulkFixture()

		_, err := f.svc.SubmitBulk(ctx, BulkRequest{Action: "approve"}, "admin-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("rejects oversized request", func(t *testing.T) {
		f := newBulkFixture()

		items := make([]BulkItem, 51)
		for i := range items {
			items[i] = BulkItem{ID: fmt.Sprintf("lic-%d", i), Type: repository.DocumentTypeLicense}
		}

		_, err := f.svc.SubmitBulk(ctx, BulkRequest{Items: items, Action: "approve"}, "admin-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("rejects non-approve action", func(t *testing.T) {
		f := newBulkFixture()

		req := BulkRequest{
			Items:  []BulkItem{{ID: "lic-1", Type: repository.DocumentTypeLicense}},
			Action: "reject",
		}
		_, err := f.svc.SubmitBulk(ctx, req, "admin-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("approves every item and notifies owners", func(t *testing.T) {
		f := newBulkFixture()
		f.addPendingLicense("lic-1", "emp-1")
		f.addPendingLicense("lic-2", "emp-2")

		req := BulkRequest{
			Items: []BulkItem{
				{ID: "lic-1", Type: repository.DocumentTypeLicense},
				{ID: "lic-2", Type: repository.DocumentTypeLicense},
			},
			Action: "approve",
		}

		result, err := f.svc.SubmitBulk(ctx, req, "admin-1")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, BulkSummary{Total: 2, Success: 2, Failed: 0}, result.Summary)

		assert.Len(t, f.messenger.sent, 2)
		assert.Len(t, f.records.records, 2)
	})

	t.Run("partial failure is a first-class result", func(t *testing.T) {
		f := newBulkFixture()
		f.addPendingLicense("lic-1", "emp-1")
		f.addPendingLicense("lic-3", "emp-3")

		req := BulkRequest{
			Items: []BulkItem{
				{ID: "lic-1", Type: repository.DocumentTypeLicense},
				{ID: "lic-missing", Type: repository.DocumentTypeLicense},
				{ID: "lic-3", Type: repository.DocumentTypeLicense},
			},
			Action: "approve",
		}

		result, err := f.svc.SubmitBulk(ctx, req, "admin-1")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, BulkSummary{Total: 3, Success: 2, Failed: 1}, result.Summary)

		require.Len(t, result.Results, 3)
		assert.True(t, result.Results[0].Success)
		assert.False(t, result.Results[1].Success)
		assert.Contains(t, result.Results[1].Error, "not found")
		assert.True(t, result.Results[2].Success)
	})

	t.Run("results keep request order across batches", func(t *testing.T) {
		f := newBulkFixture()

		items := make([]BulkItem, 25)
		for i := range items {
			id := fmt.Sprintf("lic-%02d", i)
			f.addPendingLicense(id, fmt.Sprintf("emp-%02d", i))
			items[i] = BulkItem{ID: id, Type: repository.DocumentTypeLicense}
		}

		result, err := f.svc.SubmitBulk(ctx, BulkRequest{Items: items, Action: "approve"}, "admin-1")
		require.NoError(t, err)
		require.Len(t, result.Results, 25)
		for i, res := range result.Results {
			assert.Equal(t, fmt.Sprintf("lic-%02d", i), res.ID)
			assert.True(t, res.Success)
		}
	})

	t.Run("approval triggers eligibility recheck", func(t *testing.T) {
		f := newBulkFixture()
		f.addPendingLicense("lic-1", "emp-1")
		f.docs.vehicles["emp-1"] = []*repository.Vehicle{
			approvedVehicle("veh-1", "emp-1", date(2027, time.April, 1)),
		}
		f.docs.policies["emp-1"] = []*repository.Insurance{
			approvedPolicy("ins-1", "emp-1", date(2027, time.May, 1)),
		}
		// The summary update alone does not make the license list visible;
		// mirror the approval into the typed store the recheck reads.
		f.docs.licenses["emp-1"] = []*repository.License{
			approvedLicense("lic-1", "emp-1", date(2027, time.June, 1)),
		}

		req := BulkRequest{
			Items:  []BulkItem{{ID: "lic-1", Type: repository.DocumentTypeLicense}},
			Action: "approve",
		}

		result, err := f.svc.SubmitBulk(ctx, req, "admin-1")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 1, f.permits.validCount())
	})
}
