// dto.go
package dto

import "time"

// CreateOrderRequest is accepted by POST /orders (JSON or form).
type CreateOrderRequest struct {
	Code string `json:"code" form:"code" binding:"required"`
}

type SetStatusRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
}

// AliasRequest registers a label/invoice/carrier code against a customer order code.
type AliasRequest struct {
	OrderCode string `json:"order_code" binding:"required"`
	AliasCode string `json:"alias_code" binding:"required"`
	Carrier   string `json:"carrier"`
}

// BulkUpdateRequest dates use the 2006-01-02 layout.
type BulkUpdateRequest struct {
	StartDate    string   `json:"start_date" binding:"required"`
	EndDate      string   `json:"end_date" binding:"required"`
	NewStatus    string   `json:"new_status" binding:"required"`
	ExcludeCodes []string `json:"exclude_codes"`
}

type OrderResponse struct {
	OK     bool   `json:"ok"`
	Code   string `json:"code"`
	Status string `json:"status"`
	Image  string `json:"image,omitempty"`
}

type AliasResponse struct {
	OK        bool   `json:"ok"`
	OrderCode string `json:"order_code"`
	AliasCode string `json:"alias_code"`
	Carrier   string `json:"carrier,omitempty"`
}

type BulkUpdateResponse struct {
	OK            bool     `json:"ok"`
	UpdatedCount  int      `json:"updated_count"`
	NewStatus     string   `json:"new_status"`
	AffectedCodes []string `json:"affected_codes"`
}

// TrackResponse is the public lookup shape; Status is NOT_FOUND when nothing resolves.
type TrackResponse struct {
	Code      string     `json:"code"`
	Status    string     `json:"status"`
	Image     string     `json:"image,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// IngestResponse is returned for a single uploaded photo.
type IngestResponse struct {
	File         string `json:"file,omitempty"`
	OK           bool   `json:"ok"`
	NeedsReview  bool   `json:"needs_review,omitempty"`
	Code         string `json:"code,omitempty"`
	Status       string `json:"status,omitempty"`
	Image        string `json:"image,omitempty"`
	DetectedCode string `json:"detected_code,omitempty"`
	Source       string `json:"source,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Error        string `json:"error,omitempty"`
}

type IngestSummary struct {
	Total       int `json:"total"`
	Succeeded   int `json:"succeeded"`
	NeedsReview int `json:"needs_review"`
}

type IngestManyResponse struct {
	Summary IngestSummary    `json:"summary"`
	Results []IngestResponse `json:"results"`
}
