package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/repository"
)

func newApprovalFixture() (*ApprovalService, *fakeDocumentStore, *fakeHistoryStore) {
	docs := newFakeDocumentStore()
	history := &fakeHistoryStore{}
	svc := NewApprovalService(docs, history, testLogger())
	return svc, docs, history
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("approves pending document and records history", func(t *testing.T) {
		svc, docs, history := newApprovalFixture()
		docs.addSummary(&repository.DocumentSummary{
			Type:       repository.DocumentTypeLicense,
			ID:         "lic-1",
			EmployeeID: "emp-1",
			Status:     repository.ApprovalStatusPending,
		})

		doc, err := svc.Approve(ctx, repository.DocumentTypeLicense, "lic-1", "admin-1")
		require.NoError(t, err)
		assert.Equal(t, repository.ApprovalStatusApproved, doc.Status)

		require.Len(t, history.entries, 1)
		assert.Equal(t, repository.HistoryActionApproved, history.entries[0].Action)
		assert.Equal(t, "admin-1", history.entries[0].ActorID)
		assert.Equal(t, "emp-1", history.entries[0].EmployeeID)
	})

	t.Run("approving an approved document is a no-op", func(t *testing.T) {
		svc, docs, history := newApprovalFixture()
		docs.addSummary(&repository.DocumentSummary{
			Type:       repository.DocumentTypeVehicle,
			ID:         "veh-1",
			EmployeeID: "emp-1",
			Status:     repository.ApprovalStatusApproved,
		})

		doc, err := svc.Approve(ctx, repository.DocumentTypeVehicle, "veh-1", "admin-1")
		require.NoError(t, err)
		assert.Equal(t, repository.ApprovalStatusApproved, doc.Status)
		assert.Empty(t, history.entries, "no history entry for a redundant approval")
	})

	t.Run("re-approves a rejected document", func(t *testing.T) {
		svc, docs, _ := newApprovalFixture()
		docs.addSummary(&repository.DocumentSummary{
			Type:       repository.DocumentTypeInsurance,
			ID:         "ins-1",
			EmployeeID: "emp-1",
			Status:     repository.ApprovalStatusRejected,
		})

		doc, err := svc.Approve(ctx, repository.DocumentTypeInsurance, "ins-1", "admin-1")
		require.NoError(t, err)
		assert.Equal(t, repository.ApprovalStatusApproved, doc.Status)
	})

	t.Run("unknown document type fails validation", func(t *testing.T) {
		svc, _, _ := newApprovalFixture()

		_, err := svc.Approve(ctx, "passport", "doc-1", "admin-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("missing document is not found", func(t *testing.T) {
		svc, _, _ := newApprovalFixture()

		_, err := svc.Approve(ctx, repository.DocumentTypeLicense, "ghost", "admin-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})

	t.Run("history append failure does not fail the approval", func(t *testing.T) {
		svc, docs, history := newApprovalFixture()
		history.appendErr = apperrors.New(apperrors.ErrCodeInternal, "history down")
		docs.addSummary(&repository.DocumentSummary{
			Type:       repository.DocumentTypeLicense,
			ID:         "lic-2",
			EmployeeID: "emp-1",
			Status:     repository.ApprovalStatusPending,
		})

		doc, err := svc.Approve(ctx, repository.DocumentTypeLicense, "lic-2", "admin-1")
		require.NoError(t, err)
		assert.Equal(t, repository.ApprovalStatusApproved, doc.Status)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects pending document with reason", func(t *testing.T) {
		svc, docs, history := newApprovalFixture()
		docs.addSummary(&repository.DocumentSummary{
			Type:       repository.DocumentTypeLicense,
			ID:         "lic-1",
			EmployeeID: "emp-1",
			Status:     repository.ApprovalStatusPending,
		})

		doc, err := svc.Reject(ctx, repository.DocumentTypeLicense, "lic-1", "admin-1", "photo unreadable")
		require.NoError(t, err)
		assert.Equal(t, repository.ApprovalStatusRejected, doc.Status)

		require.Len(t, history.entries, 1)
		require.NotNil(t, history.entries[0].Reason)
		assert.Equal(t, "photo unreadable", *history.entries[0].Reason)
	})

	t.Run("empty reason fails validation", func(t *testing.T) {
		svc, docs, _ := newApprovalFixture()
		docs.addSummary(&repository.DocumentSummary{
			Type:   repository.DocumentTypeLicense,
			ID:     "lic-1",
			Status: repository.ApprovalStatusPending,
		})

		_, err := svc.Reject(ctx, repository.DocumentTypeLicense, "lic-1", "admin-1", "   ")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("rejecting a rejected document is a no-op", func(t *testing.T) {
		svc, docs, history := newApprovalFixture()
		docs.addSummary(&repository.DocumentSummary{
			Type:   repository.DocumentTypeVehicle,
			ID:     "veh-1",
			Status: repository.ApprovalStatusRejected,
		})

		doc, err := svc.Reject(ctx, repository.DocumentTypeVehicle, "veh-1", "admin-1", "duplicate")
		require.NoError(t, err)
		assert.Equal(t, repository.ApprovalStatusRejected, doc.Status)
		assert.Empty(t, history.entries)
	})

	t.Run("rejecting an approved document is a conflict", func(t *testing.T) {
		svc, docs, _ := newApprovalFixture()
		docs.addSummary(&repository.DocumentSummary{
			Type:   repository.DocumentTypeInsurance,
			ID:     "ins-1",
			Status: repository.ApprovalStatusApproved,
		})

		_, err := svc.Reject(ctx, repository.DocumentTypeInsurance, "ins-1", "admin-1", "late")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	svc, docs, _ := newApprovalFixture()
	docs.addSummary(&repository.DocumentSummary{
		Type:       repository.DocumentTypeLicense,
		ID:         "lic-1",
		EmployeeID: "emp-1",
		Status:     repository.ApprovalStatusPending,
	})

	_, err := svc.Reject(ctx, repository.DocumentTypeLicense, "lic-1", "admin-1", "blurry scan")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, repository.DocumentTypeLicense, "lic-1", "admin-2")
	require.NoError(t, err)

	entries, err := svc.History(ctx, repository.DocumentTypeLicense, "lic-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, repository.HistoryActionRejected, entries[0].Action)
	assert.Equal(t, repository.HistoryActionApproved, entries[1].Action)

	_, err = svc.History(ctx, "passport", "lic-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}
