package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/service"
)

// RendererClient calls the permit artifact renderer service, which draws
// the permit document (with embedded verification QR) and stores it,
// returning an opaque file key.
type RendererClient struct {
	baseURL string
	http    *http.Client
}

// NewRendererClient creates a renderer client with the given timeout.
func NewRendererClient(baseURL string, timeout time.Duration) *RendererClient {
	return &RendererClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type renderRequestBody struct {
	EmployeeName    string `json:"employee_name"`
	VehicleNumber   string `json:"vehicle_number"`
	VehicleModel    string `json:"vehicle_model"`
	IssueDate       string `json:"issue_date"`
	ExpirationDate  string `json:"expiration_date"`
	VerificationURL string `json:"verification_url"`
}

type renderResponseBody struct {
	FileKey string `json:"file_key"`
}

// Render requests artifact generation and returns the file key.
func (c *RendererClient) Render(ctx context.Context, req service.RenderRequest) (string, error) {
	body, err := json.Marshal(renderRequestBody{
		EmployeeName:    req.EmployeeName,
		VehicleNumber:   req.VehicleNumber,
		VehicleModel:    req.VehicleModel,
		IssueDate:       req.IssueDate.Format("2006-01-02"),
		ExpirationDate:  req.ExpirationDate.Format("2006-01-02"),
		VerificationURL: req.VerificationURL,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to marshal render request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/permits/render", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build render request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeExternal, "renderer call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.New(apperrors.ErrCodeExternal,
			fmt.Sprintf("renderer returned status %d", resp.StatusCode))
	}

	var out renderResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeExternal, "failed to decode renderer response")
	}
	if out.FileKey == "" {
		return "", apperrors.New(apperrors.ErrCodeExternal, "renderer returned empty file key")
	}

	return out.FileKey, nil
}
