/*
store.go - Persistence interface for batches and audit entries

PURPOSE:
  Defines the interface between the lifecycle engine and the database.
  The Store provides conditional single-row and bulk updates so that
  "check status, then write" is a single atomic statement, never a read
  followed by a write.

KEY INTERFACES:
  Store:   Row-level primitives (insert, conditional update, aggregate)
  TxStore: Scoped transactions (atomic mutation + audit append)

APPEND-ONLY CONTRACT:
  The audit log has no update or delete operation. Batches are never
  physically deleted; terminal states are how rows leave circulation.

ATOMIC TRANSITIONS:
  UpdateBatchStatus and BulkUpdateStatus take the required current
  status as an argument. Implementations MUST fold that guard into the
  same statement as the write. Zero affected rows means "not eligible",
  not an error.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - ledger/store: In-memory for testing
*/
package ledger

import "context"

// Store handles persistence of batches and audit entries.
type Store interface {
	// InsertBatch persists a new row and returns the assigned id.
	// The ID field of the argument is ignored.
	InsertBatch(ctx context.Context, b Batch) (BatchID, error)

	// UpdateBatchStatus conditionally moves one row from `from` to `to`,
	// optionally rewriting its location. The status guard is part of the
	// update statement. Returns the number of rows changed (0 or 1).
	UpdateBatchStatus(ctx context.Context, id BatchID, from, to Status, newLocation *string) (int64, error)

	// BulkUpdateStatus moves every row matching name+from to `to` and
	// rewrites its location, in one atomic statement. Returns the number
	// of rows changed; zero is not an error.
	BulkUpdateStatus(ctx context.Context, name string, from, to Status, newLocation string) (int64, error)

	// AppendAudit adds one audit row. Timestamp and log id are assigned
	// by the store at commit, never by the caller.
	AppendAudit(ctx context.Context, action AuditAction, batchID *BatchID, details string) (LogID, error)

	// ListBatches returns all batches ordered by id descending.
	ListBatches(ctx context.Context) ([]Batch, error)

	// ListAudit returns up to limit audit entries, newest first.
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	// AggregateActive returns count and summed quantity over ACTIVE rows.
	AggregateActive(ctx context.Context) (ActiveSummary, error)
}

// TxStore wraps Store with transaction support.
//
// WithTx executes fn within a transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed. Release is
// guaranteed on every exit path. Reads inside fn observe a consistent
// snapshot that includes fn's own uncommitted writes.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
