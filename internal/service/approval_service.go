package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/logger"
	"github.com/ridegate/be-commute-permits/internal/repository"
)

// ApprovalService transitions documents between review states and keeps
// the append-only approval history.
type ApprovalService struct {
	docs    DocumentStore
	history HistoryStore
	log     *logger.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(docs DocumentStore, history HistoryStore, log *logger.Logger) *ApprovalService {
	return &ApprovalService{docs: docs, history: history, log: log}
}

// Approve transitions a pending or rejected document to approved.
// Approving an already-approved document is a no-op success, so
// redundant triggers cannot double-write history. The caller is
// responsible for the eligibility recheck.
func (s *ApprovalService) Approve(ctx context.Context, typ repository.DocumentType, id, actorID string) (*repository.DocumentSummary, error) {
	if !repository.ValidDocumentType(typ) {
		return nil, apperrors.InvalidInput("type", fmt.Sprintf("unknown document type '%s'", typ))
	}

	doc, err := s.docs.GetSummary(ctx, typ, id)
	if err != nil {
		return nil, err
	}

	if doc.Status == repository.ApprovalStatusApproved {
		s.log.Debug().
			Str("document_type", string(typ)).
			Str("document_id", id).
			Msg("Document already approved, skipping")
		return doc, nil
	}

	if err := s.docs.SetApproved(ctx, typ, id); err != nil {
		return nil, err
	}
	doc.Status = repository.ApprovalStatusApproved

	s.appendHistory(ctx, &repository.HistoryEntry{
		DocumentType: typ,
		DocumentID:   id,
		EmployeeID:   doc.EmployeeID,
		Action:       repository.HistoryActionApproved,
		ActorID:      actorID,
	})

	s.log.Info().
		Str("document_type", string(typ)).
		Str("document_id", id).
		Str("employee_id", doc.EmployeeID).
		Str("actor_id", actorID).
		Msg("Document approved")

	return doc, nil
}

// Reject transitions a pending document to rejected. The reason is
// mandatory: bulk operations deliberately cannot reject, so every
// rejection carries individual accountability. Rejecting an
// already-rejected document is a no-op success; rejecting an approved
// document is a conflict, since no approved→rejected transition exists.
func (s *ApprovalService) Reject(ctx context.Context, typ repository.DocumentType, id, actorID, reason string) (*repository.DocumentSummary, error) {
	if !repository.ValidDocumentType(typ) {
		return nil, apperrors.InvalidInput("type", fmt.Sprintf("unknown document type '%s'", typ))
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.InvalidInput("reason", "rejection reason is required")
	}

	doc, err := s.docs.GetSummary(ctx, typ, id)
	if err != nil {
		return nil, err
	}

	switch doc.Status {
	case repository.ApprovalStatusRejected:
		return doc, nil
	case repository.ApprovalStatusApproved:
		return nil, apperrors.New(apperrors.ErrCodeConflict,
			fmt.Sprintf("cannot reject document with status '%s'", doc.Status))
	}

	if err := s.docs.SetRejected(ctx, typ, id, reason); err != nil {
		return nil, err
	}
	doc.Status = repository.ApprovalStatusRejected

	reasonCopy := reason
	s.appendHistory(ctx, &repository.HistoryEntry{
		DocumentType: typ,
		DocumentID:   id,
		EmployeeID:   doc.EmployeeID,
		Action:       repository.HistoryActionRejected,
		ActorID:      actorID,
		Reason:       &reasonCopy,
	})

	s.log.Info().
		Str("document_type", string(typ)).
		Str("document_id", id).
		Str("employee_id", doc.EmployeeID).
		Str("actor_id", actorID).
		Msg("Document rejected")

	return doc, nil
}

// History returns the approval history for one document, oldest first.
func (s *ApprovalService) History(ctx context.Context, typ repository.DocumentType, id string) ([]*repository.HistoryEntry, error) {
	if !repository.ValidDocumentType(typ) {
		return nil, apperrors.InvalidInput("type", fmt.Sprintf("unknown document type '%s'", typ))
	}
	return s.history.ListByDocument(ctx, typ, id)
}

// appendHistory writes a history entry and logs a warning on failure.
// History is an audit aid; its failure never blocks the decision itself.
func (s *ApprovalService) appendHistory(ctx context.Context, entry *repository.HistoryEntry) {
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("document_type", string(entry.DocumentType)).
			Str("document_id", entry.DocumentID).
			Str("action", string(entry.Action)).
			Msg("Failed to write approval history entry")
	}
}
