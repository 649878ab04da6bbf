package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/logger"
	"github.com/ridegate/be-commute-permits/internal/repository"
)

// BulkItem identifies one document in a bulk approval request.
type BulkItem struct {
	ID   string                  `json:"id"`
	Type repository.DocumentType `json:"type"`
}

// BulkRequest is the bulk approval wire request.
type BulkRequest struct {
	Items  []BulkItem `json:"items"`
	Action string     `json:"action"`
}

// BulkItemResult is the per-item outcome.
type BulkItemResult struct {
	ID      string                  `json:"id"`
	Type    repository.DocumentType `json:"type"`
	Success bool                    `json:"success"`
	Error   string                  `json:"error,omitempty"`
}

// BulkSummary aggregates the per-item outcomes.
type BulkSummary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// BulkResult is the bulk approval wire response. Partial success is a
// first-class result: Success is true only when no item failed.
type BulkResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Results []BulkItemResult `json:"results"`
	Summary BulkSummary      `json:"summary"`
}

// BulkService drives approval, eligibility recheck and owner notification
// over many items with bounded concurrency and partial-failure tolerance.
type BulkService struct {
	approvals   *ApprovalService
	eligibility *EligibilityService
	dispatcher  *Dispatcher
	maxItems    int
	batchSize   int
	log         *logger.Logger
}

// NewBulkService creates a new BulkService. maxItems and batchSize fall
// back to 50 and 10 when not positive.
func NewBulkService(
	approvals *ApprovalService,
	eligibility *EligibilityService,
	dispatcher *Dispatcher,
	maxItems, batchSize int,
	log *logger.Logger,
) *BulkService {
	if maxItems <= 0 {
		maxItems = 50
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &BulkService{
		approvals:   approvals,
		eligibility: eligibility,
		dispatcher:  dispatcher,
		maxItems:    maxItems,
		batchSize:   batchSize,
		log:         log,
	}
}

// SubmitBulk validates the request as a whole, then processes items in
// sequential batches with concurrent items inside each batch. Validation
// failures abort before any side effect; after that, each item succeeds
// or fails on its own and there is no rollback.
func (s *BulkService) SubmitBulk(ctx context.Context, req BulkRequest, actorID string) (*BulkResult, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.InvalidInput("items", "at least one item is required")
	}
	if len(req.Items) > s.maxItems {
		return nil, apperrors.InvalidInput("items",
			fmt.Sprintf("too many items: %d exceeds the maximum of %d", len(req.Items), s.maxItems))
	}
	if req.Action != "approve" {
		// Bulk rejection is deliberately unsupported: a rejection needs
		// an individually accountable reason.
		return nil, apperrors.InvalidInput("action",
			fmt.Sprintf("unsupported bulk action '%s', only 'approve' is allowed", req.Action))
	}

	results := make([]BulkItemResult, len(req.Items))

	// Batches run strictly sequentially to bound peak concurrent load on
	// the store and messaging collaborators; items within a batch run
	// concurrently.
	for start := 0; start < len(req.Items); start += s.batchSize {
		end := start + s.batchSize
		if end > len(req.Items) {
			end = len(req.Items)
		}

		g, batchCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			idx := i
			item := req.Items[i]
			g.Go(func() error {
				results[idx] = s.processItem(batchCtx, item, actorID)
				return nil
			})
		}
		// Item failures are captured per item; Wait only observes
		// context cancellation.
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	summary := BulkSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			summary.Success++
		} else {
			summary.Failed++
		}
	}

	result := &BulkResult{
		Success: summary.Failed == 0,
		Message: fmt.Sprintf("processed %d items: %d succeeded, %d failed",
			summary.Total, summary.Success, summary.Failed),
		Results: results,
		Summary: summary,
	}

	s.log.Info().
		Str("actor_id", actorID).
		Int("total", summary.Total).
		Int("success", summary.Success).
		Int("failed", summary.Failed).
		Msg("Bulk approval completed")

	return result, nil
}

// processItem approves one document, then triggers the eligibility
// recheck and owner notification. Recheck and notification failures are
// logged but do not fail the item: the approval itself succeeded.
func (s *BulkService) processItem(ctx context.Context, item BulkItem, actorID string) BulkItemResult {
	result := BulkItemResult{ID: item.ID, Type: item.Type}

	doc, err := s.approvals.Approve(ctx, item.Type, item.ID, actorID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true

	report := s.eligibility.CheckAndIssue(ctx, doc.EmployeeID)
	s.logReport(report)

	docID := item.ID
	s.dispatcher.Send(ctx, doc.EmployeeID, Message{
		Type:       repository.NotificationTypeApproved,
		DocumentID: &docID,
		Title:      "Document approved",
		Body: fmt.Sprintf("Your %s (%s) has been approved.",
			item.Type, doc.Number),
	})

	return result
}

// logReport surfaces issuance outcomes from the fire-and-forget
// eligibility step.
func (s *BulkService) logReport(report IssueReport) {
	if report.Err != nil {
		s.log.Error().Err(report.Err).
			Str("employee_id", report.EmployeeID).
			Msg("Eligibility check failed")
		return
	}
	for _, res := range report.Results {
		if res.Err != nil {
			s.log.Error().Err(res.Err).
				Str("employee_id", report.EmployeeID).
				Str("vehicle_id", res.VehicleID).
				Msg("Permit issuance failed")
		}
	}
}
