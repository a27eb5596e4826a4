/*
engine.go - Lifecycle engine: business rules over the batch ledger

PURPOSE:
  The Engine owns every business rule in the system: creation validation,
  grade derivation, the dispatch and recall transitions, and the read-side
  validation report. It consumes the store exclusively through TxStore so
  that each state-changing operation is one transaction that also appends
  exactly one audit entry.

OPERATION FLOW:
  validate input -> open transaction -> mutate row(s) -> append audit
  entry -> commit. No operation is observable as committed unless its
  audit entry is too.

TRANSITION GUARDS:
  Dispatch and recall pass the required current status (ACTIVE) down to
  the store, which folds it into the update statement itself. Two racing
  transitions on the same row therefore serialize at the store: exactly
  one wins, the loser sees zero affected rows.

FAILURE SEMANTICS:
  Validation failures are detected before any write and cause no state
  change at all. Storage faults roll back the mutation and the audit
  entry together.

SEE ALSO:
  - store.go: Persistence interface
  - grade.go: Quality grade derivation
  - checksum.go: Integrity checksum for the validation report
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine enforces lifecycle rules and pairs every mutation with an audit
// record, atomically. Construct once at process start and share; all
// methods are safe for concurrent use if the underlying store is.
type Engine struct {
	store TxStore
	log   *zap.Logger
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the time source. Grade derivation depends on "now",
// so tests pin it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given store.
func NewEngine(store TxStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// ADD BATCH
// =============================================================================

// AddBatchInput carries the caller-supplied fields for a new batch.
type AddBatchInput struct {
	Name              string
	ManufacturingDate time.Time
	ExpiryDate        time.Time
	Quantity          int64
	Location          string
	ProductionLine    string
}

// AddBatchResult reports the created batch.
type AddBatchResult struct {
	ID           BatchID
	Status       Status
	QualityGrade Grade
}

// AddBatch validates the input, derives the quality grade, and inserts
// the batch as ACTIVE together with its INSERT audit entry.
func (e *Engine) AddBatch(ctx context.Context, in AddBatchInput) (AddBatchResult, error) {
	if strings.TrimSpace(in.Name) == "" {
		return AddBatchResult{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.Quantity <= 0 {
		return AddBatchResult{}, &ValidationError{Field: "quantity", Reason: "must be a positive integer"}
	}
	if !in.ExpiryDate.After(in.ManufacturingDate) {
		return AddBatchResult{}, &ValidationError{Field: "date range", Reason: "expiry must be after manufacturing date"}
	}

	grade := GradeFor(in.ExpiryDate, e.now())

	var id BatchID
	err := e.store.WithTx(ctx, func(s Store) error {
		var err error
		id, err = s.InsertBatch(ctx, Batch{
			Name:              in.Name,
			ManufacturingDate: in.ManufacturingDate,
			ExpiryDate:        in.ExpiryDate,
			Quantity:          in.Quantity,
			Location:          in.Location,
			Status:            StatusActive,
			QualityGrade:      grade,
			ProductionLine:    in.ProductionLine,
		})
		if err != nil {
			return err
		}

		_, err = s.AppendAudit(ctx, AuditInsert, &id,
			fmt.Sprintf("New batch %q added", in.Name))
		return err
	})
	if err != nil {
		return AddBatchResult{}, err
	}

	e.log.Info("batch added",
		zap.Int64("batch_id", int64(id)),
		zap.String("name", in.Name),
		zap.String("grade", string(grade)),
	)
	return AddBatchResult{ID: id, Status: StatusActive, QualityGrade: grade}, nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// DispatchResult reports a completed dispatch.
type DispatchResult struct {
	ID      BatchID
	Message string
}

// Dispatch moves one ACTIVE batch to DISPATCHED. The status guard and the
// write are one statement, so a batch can only ever be dispatched once:
// a second call finds zero eligible rows and fails with ErrBatchNotEligible.
func (e *Engine) Dispatch(ctx context.Context, id BatchID) (DispatchResult, error) {
	err := e.store.WithTx(ctx, func(s Store) error {
		affected, err := s.UpdateBatchStatus(ctx, id, StatusActive, StatusDispatched, nil)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: batch #%d", ErrBatchNotEligible, id)
		}

		_, err = s.AppendAudit(ctx, AuditDispatch, &id,
			fmt.Sprintf("Batch #%d released for distribution", id))
		return err
	})
	if err != nil {
		return DispatchResult{}, err
	}

	e.log.Info("batch dispatched", zap.Int64("batch_id", int64(id)))
	return DispatchResult{
		ID:      id,
		Message: fmt.Sprintf("Batch #%d dispatched successfully.", id),
	}, nil
}

// =============================================================================
// RECALL
// =============================================================================

// RecallResult reports a completed bulk recall.
type RecallResult struct {
	DrugName string
	Affected int64
	Message  string
}

// Recall moves every ACTIVE batch of the named drug to RECALLED and
// forces its location to quarantine, in one atomic statement. A name
// with zero active batches is a successful recall of zero rows; the
// audit entry is appended either way so the compliance trail records
// that the recall was run.
func (e *Engine) Recall(ctx context.Context, drugName string) (RecallResult, error) {
	var affected int64
	err := e.store.WithTx(ctx, func(s Store) error {
		var err error
		affected, err = s.BulkUpdateStatus(ctx, drugName, StatusActive, StatusRecalled, QuarantineLocation)
		if err != nil {
			return err
		}

		_, err = s.AppendAudit(ctx, AuditRecallBulk, nil,
			fmt.Sprintf("Bulk recall executed for drug: %s. Affected: %d", drugName, affected))
		return err
	})
	if err != nil {
		return RecallResult{}, err
	}

	e.log.Info("recall processed",
		zap.String("drug", drugName),
		zap.Int64("affected", affected),
	)
	return RecallResult{
		DrugName: drugName,
		Affected: affected,
		Message:  fmt.Sprintf("Recall processed: %d batches flagged.", affected),
	}, nil
}

// =============================================================================
// READ SIDE
// =============================================================================

// ValidationReport is the system validation read model.
type ValidationReport struct {
	Status            string
	ActiveBatches     int64
	TotalUnits        int64
	IntegrityChecksum string
}

// ReportStatusOptimal is the fixed status string of a successful report.
const ReportStatusOptimal = "ALL_SYSTEMS_OPTIMAL"

// Validate aggregates the ACTIVE batches and computes their integrity
// checksum. Both reads happen inside one transaction so the report is a
// consistent snapshot: the checksum always describes the same rows the
// counters do.
func (e *Engine) Validate(ctx context.Context) (ValidationReport, error) {
	var (
		summary ActiveSummary
		batches []Batch
	)
	err := e.store.WithTx(ctx, func(s Store) error {
		var err error
		if summary, err = s.AggregateActive(ctx); err != nil {
			return err
		}
		batches, err = s.ListBatches(ctx)
		return err
	})
	if err != nil {
		return ValidationReport{}, err
	}

	return ValidationReport{
		Status:            ReportStatusOptimal,
		ActiveBatches:     summary.Count,
		TotalUnits:        summary.TotalUnits,
		IntegrityChecksum: ActiveChecksum(batches),
	}, nil
}

// ListBatches returns all batches, newest id first.
func (e *Engine) ListBatches(ctx context.Context) ([]Batch, error) {
	return e.store.ListBatches(ctx)
}

// AuditTrail returns up to limit audit entries, newest first.
// A non-positive limit falls back to a sane default.
func (e *Engine) AuditTrail(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return e.store.ListAudit(ctx, limit)
}
