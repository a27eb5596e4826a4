/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  batches:    Batch records, one row per produced lot. Rows are never
              deleted; status transitions take them out of circulation.
  audit_logs: Append-only audit trail. No UPDATE or DELETE statements
              exist against this table, ever.

ATOMIC TRANSITIONS:
  UpdateBatchStatus and BulkUpdateStatus carry their status guard inside
  the UPDATE statement itself (WHERE ... AND status = ?). A dispatch
  racing a recall on the same row serializes in the database: one wins,
  the other matches zero rows.

CONCURRENCY:
  Uses sync.RWMutex to serialize writers. SQLite is opened with WAL
  (Write-Ahead Logging) so readers do not block each other.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/pharmatrack.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tanushdev/PharmaTrack/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Batch records. Never deleted; terminal statuses retire rows.
	CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		mfg TEXT NOT NULL,
		exp TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		quality_grade TEXT NOT NULL,
		line TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Bulk recall matches on name+status (hot path)
	CREATE INDEX IF NOT EXISTS idx_batches_name_status
		ON batches(name, status);

	-- Active-inventory aggregate
	CREATE INDEX IF NOT EXISTS idx_batches_status
		ON batches(status);

	-- Audit trail (append-only)
	CREATE TABLE IF NOT EXISTS audit_logs (
		log_id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		batch_id INTEGER,
		timestamp TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_batch
		ON audit_logs(batch_id) WHERE batch_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so the same helpers
// serve direct calls and transaction-scoped calls.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// BATCH STORE (ledger.Store interface)
// =============================================================================

// InsertBatch persists a new batch row and returns the assigned id.
func (s *Store) InsertBatch(ctx context.Context, b ledger.Batch) (ledger.BatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertBatch(ctx, s.db, b)
}

func insertBatch(ctx context.Context, db dbtx, b ledger.Batch) (ledger.BatchID, error) {
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO batches (name, mfg, exp, quantity, location, status, quality_grade, line, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name,
		b.ManufacturingDate.Format(time.DateOnly),
		b.ExpiryDate.Format(time.DateOnly),
		b.Quantity,
		b.Location,
		string(b.Status),
		string(b.QualityGrade),
		b.ProductionLine,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new batch id: %w", err)
	}
	return ledger.BatchID(id), nil
}

// UpdateBatchStatus conditionally transitions a single row. The status
// guard is part of the statement; zero affected rows means the id is
// unknown or the row is no longer in the required state.
func (s *Store) UpdateBatchStatus(ctx context.Context, id ledger.BatchID, from, to ledger.Status, newLocation *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBatchStatus(ctx, s.db, id, from, to, newLocation)
}

func updateBatchStatus(ctx context.Context, db dbtx, id ledger.BatchID, from, to ledger.Status, newLocation *string) (int64, error) {
	// COALESCE keeps the current location when no new one is supplied.
	res, err := db.ExecContext(ctx, `
		UPDATE batches
		SET status = ?, location = COALESCE(?, location)
		WHERE id = ? AND status = ?`,
		string(to), newLocation, int64(id), string(from),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update batch status: %w", err)
	}
	return res.RowsAffected()
}

// BulkUpdateStatus transitions every row matching name+from in one
// atomic statement and returns the number of rows changed.
func (s *Store) BulkUpdateStatus(ctx context.Context, name string, from, to ledger.Status, newLocation string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bulkUpdateStatus(ctx, s.db, name, from, to, newLocation)
}

func bulkUpdateStatus(ctx context.Context, db dbtx, name string, from, to ledger.Status, newLocation string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE batches
		SET status = ?, location = ?
		WHERE name = ? AND status = ?`,
		string(to), newLocation, name, string(from),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update batches: %w", err)
	}
	return res.RowsAffected()
}

// ListBatches returns all batches ordered by id descending.
func (s *Store) ListBatches(ctx context.Context) ([]ledger.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBatches(ctx, s.db)
}

func listBatches(ctx context.Context, db dbtx) ([]ledger.Batch, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, mfg, exp, quantity, location, status, quality_grade, line, created_at
		FROM batches
		ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []ledger.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func scanBatch(rows *sql.Rows) (ledger.Batch, error) {
	var (
		b         ledger.Batch
		mfg, exp  string
		status    string
		grade     string
		createdAt string
	)

	err := rows.Scan(&b.ID, &b.Name, &mfg, &exp, &b.Quantity, &b.Location,
		&status, &grade, &b.ProductionLine, &createdAt)
	if err != nil {
		return b, fmt.Errorf("failed to scan batch: %w", err)
	}

	// Stored status text must stay inside the closed set.
	b.Status, err = ledger.ParseStatus(status)
	if err != nil {
		return b, err
	}
	b.QualityGrade = ledger.Grade(grade)
	b.ManufacturingDate, _ = time.Parse(time.DateOnly, mfg)
	b.ExpiryDate, _ = time.Parse(time.DateOnly, exp)
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return b, nil
}

// AggregateActive returns count and summed quantity over ACTIVE rows.
func (s *Store) AggregateActive(ctx context.Context) (ledger.ActiveSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return aggregateActive(ctx, s.db)
}

func aggregateActive(ctx context.Context, db dbtx) (ledger.ActiveSummary, error) {
	var sum ledger.ActiveSummary
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(quantity), 0)
		FROM batches
		WHERE status = ?`,
		string(ledger.StatusActive),
	).Scan(&sum.Count, &sum.TotalUnits)
	if err != nil {
		return sum, fmt.Errorf("failed to aggregate active batches: %w", err)
	}
	return sum, nil
}

// =============================================================================
// AUDIT STORE
// =============================================================================

// AppendAudit adds one audit row. Timestamp and id are store-assigned.
func (s *Store) AppendAudit(ctx context.Context, action ledger.AuditAction, batchID *ledger.BatchID, details string) (ledger.LogID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, action, batchID, details)
}

func appendAudit(ctx context.Context, db dbtx, action ledger.AuditAction, batchID *ledger.BatchID, details string) (ledger.LogID, error) {
	var bid any
	if batchID != nil {
		bid = int64(*batchID)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO audit_logs (action, batch_id, timestamp, details)
		VALUES (?, ?, ?, ?)`,
		string(action), bid, time.Now().UTC().Format(time.RFC3339), details,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new log id: %w", err)
	}
	return ledger.LogID(id), nil
}

// ListAudit returns up to limit audit entries, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAudit(ctx, s.db, limit)
}

func listAudit(ctx context.Context, db dbtx, limit int) ([]ledger.AuditEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT log_id, action, batch_id, timestamp, details
		FROM audit_logs
		ORDER BY log_id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []ledger.AuditEntry
	for rows.Next() {
		var (
			e       ledger.AuditEntry
			batchID sql.NullInt64
			ts      string
		)
		if err := rows.Scan(&e.LogID, &e.Action, &batchID, &ts, &e.Details); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if batchID.Valid {
			id := ledger.BatchID(batchID.Int64)
			e.BatchID = &id
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONS (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The deferred
// rollback is a no-op after a successful commit, so every exit path
// releases the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore scopes the store primitives to one open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertBatch(ctx context.Context, b ledger.Batch) (ledger.BatchID, error) {
	return insertBatch(ctx, ts.tx, b)
}

func (ts *txStore) UpdateBatchStatus(ctx context.Context, id ledger.BatchID, from, to ledger.Status, newLocation *string) (int64, error) {
	return updateBatchStatus(ctx, ts.tx, id, from, to, newLocation)
}

func (ts *txStore) BulkUpdateStatus(ctx context.Context, name string, from, to ledger.Status, newLocation string) (int64, error) {
	return bulkUpdateStatus(ctx, ts.tx, name, from, to, newLocation)
}

func (ts *txStore) AppendAudit(ctx context.Context, action ledger.AuditAction, batchID *ledger.BatchID, details string) (ledger.LogID, error) {
	return appendAudit(ctx, ts.tx, action, batchID, details)
}

func (ts *txStore) ListBatches(ctx context.Context) ([]ledger.Batch, error) {
	return listBatches(ctx, ts.tx)
}

func (ts *txStore) ListAudit(ctx context.Context, limit int) ([]ledger.AuditEntry, error) {
	return listAudit(ctx, ts.tx, limit)
}

func (ts *txStore) AggregateActive(ctx context.Context) (ledger.ActiveSummary, error) {
	return aggregateActive(ctx, ts.tx)
}

// =============================================================================
// UTILITIES
// =============================================================================

// CountBatches returns the total number of batch rows (seed guard, tests).
func (s *Store) CountBatches(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches").Scan(&n)
	return n, err
}
