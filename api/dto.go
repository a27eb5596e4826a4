/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Field names
  follow the persisted column names the dashboard already consumes
  (mfg, exp, quality_grade, line).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Date parsing happens in handlers; everything else (date ordering,
  quantity, name) is validated by the engine. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/engine.go: The operations behind them
*/
package api

import (
	"time"

	"github.com/tanushdev/PharmaTrack/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// BatchDTO represents a batch in API responses.
type BatchDTO struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Mfg            string `json:"mfg"`
	Exp            string `json:"exp"`
	Quantity       int64  `json:"quantity"`
	Location       string `json:"location"`
	Status         string `json:"status"`
	QualityGrade   string `json:"quality_grade"`
	ProductionLine string `json:"line"`
}

func batchDTO(b ledger.Batch) BatchDTO {
	return BatchDTO{
		ID:             int64(b.ID),
		Name:           b.Name,
		Mfg:            b.ManufacturingDate.Format(time.DateOnly),
		Exp:            b.ExpiryDate.Format(time.DateOnly),
		Quantity:       b.Quantity,
		Location:       b.Location,
		Status:         string(b.Status),
		QualityGrade:   string(b.QualityGrade),
		ProductionLine: b.ProductionLine,
	}
}

// AddBatchRequest is the request to create a batch.
type AddBatchRequest struct {
	Name           string `json:"name"`
	Mfg            string `json:"mfg"`
	Exp            string `json:"exp"`
	Quantity       int64  `json:"quantity"`
	Location       string `json:"location"`
	ProductionLine string `json:"line"`
}

// AddBatchResponse reports the created batch.
type AddBatchResponse struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	QualityGrade string `json:"quality_grade"`
}

// DispatchResponse confirms a dispatch.
type DispatchResponse struct {
	Message string `json:"message"`
}

// RecallRequest is the request to recall a drug by name.
type RecallRequest struct {
	DrugName string `json:"drugName"`
}

// RecallResponse reports a processed recall.
type RecallResponse struct {
	Message       string `json:"message"`
	AffectedCount int64  `json:"affectedCount"`
}

// ValidateResponse is the system validation report.
type ValidateResponse struct {
	Success           bool   `json:"success"`
	Status            string `json:"status"`
	ActiveBatches     int64  `json:"active_batches"`
	TotalUnits        int64  `json:"total_units"`
	IntegrityChecksum string `json:"integrity_checksum"`
}

// AuditEntryDTO represents one audit trail entry.
type AuditEntryDTO struct {
	LogID     int64  `json:"log_id"`
	Action    string `json:"action"`
	BatchID   *int64 `json:"batch_id,omitempty"`
	Timestamp string `json:"timestamp"`
	Details   string `json:"details"`
}

func auditEntryDTO(e ledger.AuditEntry) AuditEntryDTO {
	dto := AuditEntryDTO{
		LogID:     int64(e.LogID),
		Action:    string(e.Action),
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Details:   e.Details,
	}
	if e.BatchID != nil {
		id := int64(*e.BatchID)
		dto.BatchID = &id
	}
	return dto
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
