/*
handlers.go - HTTP API handlers for the batch lifecycle engine

PURPOSE:
  Exposes the lifecycle engine via REST API. Handles HTTP request and
  response, JSON serialization, and delegates every rule to the engine.

ENDPOINTS:
  Batches:
    GET    /api/batches               List all batches (newest first)
    POST   /api/batches               Create batch
    POST   /api/batches/{id}/dispatch Dispatch one ACTIVE batch

  Recall:
    POST   /api/recall                Bulk recall by drug name

  System:
    GET    /api/validate              Active-inventory validation report
    GET    /api/audit                 Recent audit trail, newest first
    POST   /api/seed                  Load demo batches (empty db only)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Batch not found / not eligible for the transition
  - 500: Storage faults

SECURITY NOTE:
  No authentication or authorization; access control is outside this
  service's scope.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - seed.go: Demo batch data
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tanushdev/PharmaTrack/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	Store  ledger.TxStore // used by the seed loader only
	Log    *zap.Logger
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *ledger.Engine, store ledger.TxStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Engine: engine, Store: store, Log: log}
}

// =============================================================================
// BATCH HANDLERS
// =============================================================================

// ListBatches returns all batches, newest id first.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Engine.ListBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list batches", err)
		return
	}

	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dtos[i] = batchDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddBatch creates a new batch.
func (h *Handler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req AddBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mfg, err := time.Parse(time.DateOnly, req.Mfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mfg date format (use YYYY-MM-DD)", err)
		return
	}
	exp, err := time.Parse(time.DateOnly, req.Exp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid exp date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Engine.AddBatch(r.Context(), ledger.AddBatchInput{
		Name:              req.Name,
		ManufacturingDate: mfg,
		ExpiryDate:        exp,
		Quantity:          req.Quantity,
		Location:          req.Location,
		ProductionLine:    req.ProductionLine,
	})
	if err != nil {
		writeEngineError(w, "Failed to add batch", err)
		return
	}

	mutationCounter.WithLabelValues(string(ledger.AuditInsert)).Inc()
	writeJSON(w, http.StatusCreated, AddBatchResponse{
		ID:           int64(result.ID),
		Status:       string(result.Status),
		QualityGrade: string(result.QualityGrade),
	})
}

// DispatchBatch releases one ACTIVE batch for distribution.
func (h *Handler) DispatchBatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch id", err)
		return
	}

	result, err := h.Engine.Dispatch(r.Context(), ledger.BatchID(id))
	if err != nil {
		writeEngineError(w, "Failed to dispatch batch", err)
		return
	}

	mutationCounter.WithLabelValues(string(ledger.AuditDispatch)).Inc()
	writeJSON(w, http.StatusOK, DispatchResponse{Message: result.Message})
}

// =============================================================================
// RECALL HANDLER
// =============================================================================

// ProcessRecall quarantines every ACTIVE batch of the named drug.
// Zero matches is still a success.
func (h *Handler) ProcessRecall(w http.ResponseWriter, r *http.Request) {
	var req RecallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.Recall(r.Context(), req.DrugName)
	if err != nil {
		writeEngineError(w, "Failed to process recall", err)
		return
	}

	mutationCounter.WithLabelValues(string(ledger.AuditRecallBulk)).Inc()
	writeJSON(w, http.StatusOK, RecallResponse{
		Message:       result.Message,
		AffectedCount: result.Affected,
	})
}

// =============================================================================
// SYSTEM HANDLERS
// =============================================================================

// ValidateSystem returns the active-inventory validation report.
func (h *Handler) ValidateSystem(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.Validate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to validate system", err)
		return
	}

	writeJSON(w, http.StatusOK, ValidateResponse{
		Success:           true,
		Status:            report.Status,
		ActiveBatches:     report.ActiveBatches,
		TotalUnits:        report.TotalUnits,
		IntegrityChecksum: report.IntegrityChecksum,
	})
}

// AuditTrail returns recent audit entries, newest first.
func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Engine.AuditTrail(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read audit trail", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = auditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// writeEngineError maps engine error kinds to HTTP status classes.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
