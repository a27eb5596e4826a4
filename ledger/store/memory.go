// Package store provides an in-memory TxStore implementation (testing/dev).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tanushdev/PharmaTrack/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.TxStore without a database. Transactions run
// against a cloned state that replaces the live one only on commit, so
// rollback semantics match the SQLite store.
type Memory struct {
	mu sync.RWMutex
	st *state
}

func NewMemory() *Memory {
	return &Memory{st: &state{nextBatchID: 1, nextLogID: 1}}
}

type state struct {
	batches     []ledger.Batch
	audit       []ledger.AuditEntry
	nextBatchID ledger.BatchID
	nextLogID   ledger.LogID
}

func (st *state) clone() *state {
	cp := &state{
		batches:     make([]ledger.Batch, len(st.batches)),
		audit:       make([]ledger.AuditEntry, len(st.audit)),
		nextBatchID: st.nextBatchID,
		nextLogID:   st.nextLogID,
	}
	copy(cp.batches, st.batches)
	copy(cp.audit, st.audit)
	return cp
}

// =============================================================================
// PRIMITIVES (shared by live store and transaction view)
// =============================================================================

func (st *state) insertBatch(b ledger.Batch) ledger.BatchID {
	b.ID = st.nextBatchID
	st.nextBatchID++
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	st.batches = append(st.batches, b)
	return b.ID
}

func (st *state) updateBatchStatus(id ledger.BatchID, from, to ledger.Status, newLocation *string) int64 {
	for i := range st.batches {
		if st.batches[i].ID == id && st.batches[i].Status == from {
			st.batches[i].Status = to
			if newLocation != nil {
				st.batches[i].Location = *newLocation
			}
			return 1
		}
	}
	return 0
}

func (st *state) bulkUpdateStatus(name string, from, to ledger.Status, newLocation string) int64 {
	var affected int64
	for i := range st.batches {
		if st.batches[i].Name == name && st.batches[i].Status == from {
			st.batches[i].Status = to
			st.batches[i].Location = newLocation
			affected++
		}
	}
	return affected
}

func (st *state) appendAudit(action ledger.AuditAction, batchID *ledger.BatchID, details string) ledger.LogID {
	entry := ledger.AuditEntry{
		LogID:     st.nextLogID,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
	if batchID != nil {
		id := *batchID
		entry.BatchID = &id
	}
	st.nextLogID++
	st.audit = append(st.audit, entry)
	return entry.LogID
}

func (st *state) listBatches() []ledger.Batch {
	out := make([]ledger.Batch, len(st.batches))
	copy(out, st.batches)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (st *state) listAudit(limit int) []ledger.AuditEntry {
	out := make([]ledger.AuditEntry, len(st.audit))
	copy(out, st.audit)
	sort.Slice(out, func(i, j int) bool { return out[i].LogID > out[j].LogID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (st *state) aggregateActive() ledger.ActiveSummary {
	var sum ledger.ActiveSummary
	for _, b := range st.batches {
		if b.Status == ledger.StatusActive {
			sum.Count++
			sum.TotalUnits += b.Quantity
		}
	}
	return sum
}

// =============================================================================
// LIVE STORE (ledger.Store interface)
// =============================================================================

func (m *Memory) InsertBatch(_ context.Context, b ledger.Batch) (ledger.BatchID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertBatch(b), nil
}

func (m *Memory) UpdateBatchStatus(_ context.Context, id ledger.BatchID, from, to ledger.Status, newLocation *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateBatchStatus(id, from, to, newLocation), nil
}

func (m *Memory) BulkUpdateStatus(_ context.Context, name string, from, to ledger.Status, newLocation string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.bulkUpdateStatus(name, from, to, newLocation), nil
}

func (m *Memory) AppendAudit(_ context.Context, action ledger.AuditAction, batchID *ledger.BatchID, details string) (ledger.LogID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.appendAudit(action, batchID, details), nil
}

func (m *Memory) ListBatches(_ context.Context) ([]ledger.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listBatches(), nil
}

func (m *Memory) ListAudit(_ context.Context, limit int) ([]ledger.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listAudit(limit), nil
}

func (m *Memory) AggregateActive(_ context.Context) (ledger.ActiveSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.aggregateActive(), nil
}

// =============================================================================
// TRANSACTIONS (ledger.TxStore interface)
// =============================================================================

// WithTx runs fn against a cloned state under the write lock. The clone
// replaces the live state only if fn returns nil; any error discards all
// of fn's writes.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.st.clone()
	if err := fn(&txView{st: next}); err != nil {
		return err
	}
	m.st = next
	return nil
}

// txView exposes a cloned state as a ledger.Store. The parent holds the
// write lock for the whole transaction, so no locking here.
type txView struct {
	st *state
}

func (v *txView) InsertBatch(_ context.Context, b ledger.Batch) (ledger.BatchID, error) {
	return v.st.insertBatch(b), nil
}

func (v *txView) UpdateBatchStatus(_ context.Context, id ledger.BatchID, from, to ledger.Status, newLocation *string) (int64, error) {
	return v.st.updateBatchStatus(id, from, to, newLocation), nil
}

func (v *txView) BulkUpdateStatus(_ context.Context, name string, from, to ledger.Status, newLocation string) (int64, error) {
	return v.st.bulkUpdateStatus(name, from, to, newLocation), nil
}

func (v *txView) AppendAudit(_ context.Context, action ledger.AuditAction, batchID *ledger.BatchID, details string) (ledger.LogID, error) {
	return v.st.appendAudit(action, batchID, details), nil
}

func (v *txView) ListBatches(_ context.Context) ([]ledger.Batch, error) {
	return v.st.listBatches(), nil
}

func (v *txView) ListAudit(_ context.Context, limit int) ([]ledger.AuditEntry, error) {
	return v.st.listAudit(limit), nil
}

func (v *txView) AggregateActive(_ context.Context) (ledger.ActiveSummary, error) {
	return v.st.aggregateActive(), nil
}
