/*
Package ledger contains the batch lifecycle and audit engine.

PURPOSE:
  This package owns the batch records of one organization's production
  ledger: it enforces legal state transitions, derives quality attributes
  at creation, and guarantees that every mutation is committed atomically
  with exactly one immutable audit entry.

KEY CONCEPTS IN THIS FILE (types.go):
  - Batch: One produced lot tracked as a single record
  - Status: Closed set of lifecycle states with a small state machine
  - Grade: Coarse shelf-life risk class derived once at creation
  - AuditEntry: Append-only fact describing one mutation

DESIGN PRINCIPLES:
  1. Immutability: Audit entries are never edited or removed
  2. Type Safety: Status and audit actions are closed types; unknown
     text is rejected at the boundary
  3. Atomicity: A mutation and its audit entry commit together or not
     at all

SEE ALSO:
  - engine.go: Business rules and transition guards
  - store.go: Persistence interface
  - store/sqlite: Production implementation
*/
package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// BatchID is the store-assigned, monotonically increasing batch identity.
type BatchID int64

// LogID orders audit entries by commit. Strictly increasing, never reused.
type LogID int64

// =============================================================================
// STATUS - Lifecycle state machine
// =============================================================================

// Status is the lifecycle state of a batch.
//
// Transitions:
//
//	(create)          -> ACTIVE
//	ACTIVE --dispatch--> DISPATCHED
//	ACTIVE --recall----> RECALLED
//
// EXPIRED is reachable in the schema but no transition into it exists yet;
// there is deliberately no scheduled expiry sweep in this engine.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusDispatched Status = "DISPATCHED"
	StatusRecalled   Status = "RECALLED"
	StatusExpired    Status = "EXPIRED"
)

// ParseStatus converts stored or caller-supplied text into a Status,
// rejecting anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusDispatched, StatusRecalled, StatusExpired:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Terminal reports whether no transition leads out of the status.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// =============================================================================
// QUALITY GRADE
// =============================================================================

// Grade classifies remaining shelf life at the moment of production.
// It is computed once at creation and never recomputed on reads.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
)

// =============================================================================
// BATCH
// =============================================================================

// QuarantineLocation is where recalled batches are forced to.
const QuarantineLocation = "Quarantine"

// Batch is one produced lot of a pharmaceutical product.
//
// Dates and quantity are immutable after creation. Location changes only
// through recall. Status changes only through the engine's transitions.
type Batch struct {
	ID                BatchID
	Name              string
	ManufacturingDate time.Time
	ExpiryDate        time.Time
	Quantity          int64
	Location          string
	Status            Status
	QualityGrade      Grade
	ProductionLine    string
	CreatedAt         time.Time
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AuditAction identifies which mutation an audit entry records.
type AuditAction string

const (
	AuditInsert     AuditAction = "INSERT"
	AuditDispatch   AuditAction = "DISPATCH"
	AuditRecallBulk AuditAction = "RECALL_BULK"
)

// AuditEntry is an immutable fact describing one committed mutation.
// BatchID is nil for bulk actions, which are identified by drug name in
// Details rather than by a single row.
type AuditEntry struct {
	LogID     LogID
	Action    AuditAction
	BatchID   *BatchID
	Timestamp time.Time
	Details   string
}

// ActiveSummary is the read-side aggregate over ACTIVE batches.
type ActiveSummary struct {
	Count      int64
	TotalUnits int64
}
