package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/logger"
	"github.com/ridegate/be-commute-permits/internal/repository"
	"github.com/ridegate/be-commute-permits/internal/service"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	approvals   *service.ApprovalService
	eligibility *service.EligibilityService
	bulk        *service.BulkService
	monitor     *service.MonitorService
	permits     service.PermitStore
	log         *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	approvals *service.ApprovalService,
	eligibility *service.EligibilityService,
	bulk *service.BulkService,
	monitor *service.MonitorService,
	permits service.PermitStore,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		approvals:   approvals,
		eligibility: eligibility,
		bulk:        bulk,
		monitor:     monitor,
		permits:     permits,
		log:         log,
	}
}

// actorFrom extracts the acting user's identity from the request.
// Upstream auth middleware sets X-Actor-ID; it defaults to "system" for
// internal callers.
func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor-ID"); actor != "" {
		return actor
	}
	return "system"
}

// ApproveDocument handles single document approval requests.
func (h *HTTPHandler) ApproveDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Type repository.DocumentType `json:"type"`
		ID   string                  `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.approvals.Approve(r.Context(), req.Type, req.ID, actorFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	// The eligibility recheck cannot fail the approval response; its
	// outcome is logged only.
	report := h.eligibility.CheckAndIssue(r.Context(), doc.EmployeeID)
	h.logIssueReport(report)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "approved",
		"type":        doc.Type,
		"id":          doc.ID,
		"employee_id": doc.EmployeeID,
	})
}

// RejectDocument handles single document rejection requests.
func (h *HTTPHandler) RejectDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Type   repository.DocumentType `json:"type"`
		ID     string                  `json:"id"`
		Reason string                  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.approvals.Reject(r.Context(), req.Type, req.ID, actorFrom(r), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "rejected",
		"type":        doc.Type,
		"id":          doc.ID,
		"employee_id": doc.EmployeeID,
	})
}

// BulkApprove handles bulk approval requests.
func (h *HTTPHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.bulk.SubmitBulk(r.Context(), req, actorFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Partial failure is carried inside the 200 response body.
	h.writeJSON(w, http.StatusOK, result)
}

// DocumentHistory returns the approval history of one document.
func (h *HTTPHandler) DocumentHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	typ := repository.DocumentType(r.URL.Query().Get("type"))
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Document type and ID are required", http.StatusBadRequest)
		return
	}

	entries, err := h.approvals.History(r.Context(), typ, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// ListPermits returns all permits.
func (h *HTTPHandler) ListPermits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	permits, err := h.permits.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"permits": permits,
		"total":   len(permits),
	})
}

// RegeneratePermitArtifact re-renders the artifact of an existing permit.
func (h *HTTPHandler) RegeneratePermitArtifact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "Permit ID is required", http.StatusBadRequest)
		return
	}

	permit, err := h.eligibility.RegenerateArtifact(r.Context(), req.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, permit)
}

// RunMonitor triggers one expiration monitor pass on demand.
func (h *HTTPHandler) RunMonitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := h.monitor.RunOnce(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"permits_expired": report.PermitsExpired,
		"warnings_sent":   report.WarningsSent,
		"expired_sent":    report.ExpiredSent,
		"escalations":     report.EscalationsSent,
		"deduplicated":    report.Deduplicated,
		"errors":          report.Errors,
	})
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response body")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *HTTPHandler) logIssueReport(report service.IssueReport) {
	if report.Err != nil {
		h.log.Error().Err(report.Err).
			Str("employee_id", report.EmployeeID).
			Msg("Eligibility check failed")
		return
	}
	for _, res := range report.Results {
		if res.Err != nil {
			h.log.Error().Err(res.Err).
				Str("employee_id", report.EmployeeID).
				Str("vehicle_id", res.VehicleID).
				Msg("Permit issuance failed")
		}
	}
}
