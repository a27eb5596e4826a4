package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanushdev/PharmaTrack/ledger"
	"github.com/tanushdev/PharmaTrack/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*ledger.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := ledger.NewEngine(mem, ledger.WithClock(func() time.Time { return testNow }))
	return engine, mem
}

func validInput(name string) ledger.AddBatchInput {
	return ledger.AddBatchInput{
		Name:              name,
		ManufacturingDate: testNow.AddDate(0, -3, 0),
		ExpiryDate:        testNow.AddDate(2, 0, 0),
		Quantity:          1000,
		Location:          "Warehouse A",
		ProductionLine:    "Solid Dosage A",
	}
}

func mustAdd(t *testing.T, e *ledger.Engine, name string) ledger.BatchID {
	t.Helper()
	result, err := e.AddBatch(context.Background(), validInput(name))
	require.NoError(t, err)
	return result.ID
}

// =============================================================================
// CREATION
// =============================================================================

func TestAddBatch_Valid_AssignsFreshIDAndIsListed(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	r1, err := engine.AddBatch(ctx, validInput("Paracetamol 500mg"))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusActive, r1.Status)

	r2, err := engine.AddBatch(ctx, validInput("Aspirin 81mg"))
	require.NoError(t, err)
	assert.Greater(t, r2.ID, r1.ID, "ids must be fresh and increasing")

	batches, err := engine.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, r2.ID, batches[0].ID, "newest first")
	assert.Equal(t, r1.ID, batches[1].ID)
}

func TestAddBatch_ExpiryNotAfterManufacturing_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for _, delta := range []int{0, -1} {
		in := validInput("Metformin 850mg")
		in.ExpiryDate = in.ManufacturingDate.AddDate(0, 0, delta)

		_, err := engine.AddBatch(ctx, in)
		assert.ErrorIs(t, err, ledger.ErrValidation)

		var verr *ledger.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "date range", verr.Field)
	}

	// No batch and no audit row may exist after a rejected creation.
	batches, err := engine.ListBatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)

	trail, err := engine.AuditTrail(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, trail)
}

func TestAddBatch_NonPositiveQuantity_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, qty := range []int64{0, -5} {
		in := validInput("Omeprazole 40mg")
		in.Quantity = qty

		_, err := engine.AddBatch(context.Background(), in)
		assert.ErrorIs(t, err, ledger.ErrValidation)
	}
}

func TestAddBatch_EmptyName_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, name := range []string{"", "   "} {
		in := validInput(name)
		_, err := engine.AddBatch(context.Background(), in)
		assert.ErrorIs(t, err, ledger.ErrValidation)
	}
}

// =============================================================================
// QUALITY GRADE
// =============================================================================

func TestGradeFor_Boundaries(t *testing.T) {
	cases := []struct {
		daysToExpiry int
		want         ledger.Grade
	}{
		{366, ledger.GradeAPlus},
		{365, ledger.GradeA},
		{181, ledger.GradeA},
		{180, ledger.GradeB},
		{91, ledger.GradeB},
		{90, ledger.GradeC},
		{1, ledger.GradeC},
	}

	for _, tc := range cases {
		expiry := testNow.AddDate(0, 0, tc.daysToExpiry)
		assert.Equal(t, tc.want, ledger.GradeFor(expiry, testNow),
			"daysToExpiry=%d", tc.daysToExpiry)
	}
}

func TestAddBatch_GradeDerivedFromClock(t *testing.T) {
	engine, _ := newTestEngine(t)

	in := validInput("Insulin Glargine")
	in.ExpiryDate = testNow.AddDate(0, 0, 120)

	result, err := engine.AddBatch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, ledger.GradeB, result.QualityGrade)
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestDispatch_SingleUse(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustAdd(t, engine, "Lisinopril 10mg")

	result, err := engine.Dispatch(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, result.Message, "dispatched")

	// Second dispatch finds no eligible row.
	_, err = engine.Dispatch(ctx, id)
	assert.ErrorIs(t, err, ledger.ErrBatchNotEligible)

	batches, err := engine.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, ledger.StatusDispatched, batches[0].Status)
}

func TestDispatch_UnknownID_NotEligible(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Dispatch(context.Background(), 9999)
	assert.ErrorIs(t, err, ledger.ErrBatchNotEligible)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// RECALL
// =============================================================================

func TestRecall_OnlyActiveRowsMatchingName(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	id1 := mustAdd(t, engine, "X")
	id2 := mustAdd(t, engine, "X")
	id3 := mustAdd(t, engine, "Y")

	// id2 leaves ACTIVE before the recall.
	_, err := engine.Dispatch(ctx, id2)
	require.NoError(t, err)

	result, err := engine.Recall(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Affected)

	batches, err := engine.ListBatches(ctx)
	require.NoError(t, err)

	byID := make(map[ledger.BatchID]ledger.Batch)
	for _, b := range batches {
		byID[b.ID] = b
	}
	assert.Equal(t, ledger.StatusRecalled, byID[id1].Status)
	assert.Equal(t, ledger.QuarantineLocation, byID[id1].Location)
	assert.Equal(t, ledger.StatusDispatched, byID[id2].Status)
	assert.NotEqual(t, ledger.QuarantineLocation, byID[id2].Location)
	assert.Equal(t, ledger.StatusActive, byID[id3].Status)
}

func TestRecall_ZeroMatches_IsSuccess(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Recall(ctx, "Nonexistol 0mg")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Affected)

	// The compliance trail still records that the recall ran.
	trail, err := engine.AuditTrail(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, ledger.AuditRecallBulk, trail[0].Action)
	assert.Nil(t, trail[0].BatchID)
	assert.Contains(t, trail[0].Details, "Nonexistol 0mg")
}

// =============================================================================
// AUDIT PAIRING
// =============================================================================

func TestMutations_ProduceExactlyOneAuditRowEach(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustAdd(t, engine, "Sertraline 50mg")
	mustAdd(t, engine, "Sertraline 50mg")

	_, err := engine.Dispatch(ctx, id)
	require.NoError(t, err)

	_, err = engine.Recall(ctx, "Sertraline 50mg")
	require.NoError(t, err)

	trail, err := engine.AuditTrail(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trail, 4, "two inserts + one dispatch + one recall")

	// Newest first, log ids strictly decreasing.
	for i := 1; i < len(trail); i++ {
		assert.Greater(t, trail[i-1].LogID, trail[i].LogID)
	}
	assert.Equal(t, ledger.AuditRecallBulk, trail[0].Action)
	assert.Equal(t, ledger.AuditDispatch, trail[1].Action)
	require.NotNil(t, trail[1].BatchID)
	assert.Equal(t, id, *trail[1].BatchID)
}

// failingAuditStore forces AppendAudit to fail inside the transaction so
// tests can observe that the batch mutation rolls back with it.
type failingAuditStore struct {
	ledger.TxStore
}

func (f *failingAuditStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	return f.TxStore.WithTx(ctx, func(s ledger.Store) error {
		return fn(&failingAuditInner{Store: s})
	})
}

type failingAuditInner struct {
	ledger.Store
}

func (f *failingAuditInner) AppendAudit(context.Context, ledger.AuditAction, *ledger.BatchID, string) (ledger.LogID, error) {
	return 0, errors.New("disk full")
}

func TestAddBatch_AuditFailure_RollsBackBatch(t *testing.T) {
	mem := store.NewMemory()
	engine := ledger.NewEngine(&failingAuditStore{TxStore: mem},
		ledger.WithClock(func() time.Time { return testNow }))
	ctx := context.Background()

	_, err := engine.AddBatch(ctx, validInput("Gabapentin 300mg"))
	require.Error(t, err)

	batches, err := mem.ListBatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches, "batch insert must roll back with its audit entry")
}

// =============================================================================
// READ SIDE
// =============================================================================

func TestListBatches_IdempotentWithoutMutation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustAdd(t, engine, "Amlodipine 5mg")
	mustAdd(t, engine, "Prednisone 5mg")

	first, err := engine.ListBatches(ctx)
	require.NoError(t, err)
	second, err := engine.ListBatches(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidate_AggregatesActiveAndChecksumTracksState(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustAdd(t, engine, "Furosemide 20mg")
	mustAdd(t, engine, "Montelukast 10mg")

	report, err := engine.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.ReportStatusOptimal, report.Status)
	assert.Equal(t, int64(2), report.ActiveBatches)
	assert.Equal(t, int64(2000), report.TotalUnits)
	assert.NotEmpty(t, report.IntegrityChecksum)

	// Same state, same checksum.
	again, err := engine.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.IntegrityChecksum, again.IntegrityChecksum)

	// Dispatching shrinks the active set and changes the checksum.
	_, err = engine.Dispatch(ctx, id)
	require.NoError(t, err)

	after, err := engine.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.ActiveBatches)
	assert.Equal(t, int64(1000), after.TotalUnits)
	assert.NotEqual(t, report.IntegrityChecksum, after.IntegrityChecksum)
}

// =============================================================================
// STATUS TYPE
// =============================================================================

func TestParseStatus_RejectsUnknownText(t *testing.T) {
	for _, s := range []string{"ACTIVE", "DISPATCHED", "RECALLED", "EXPIRED"} {
		parsed, err := ledger.ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, ledger.Status(s), parsed)
	}

	_, err := ledger.ParseStatus("SHIPPED")
	assert.ErrorIs(t, err, ledger.ErrUnknownStatus)
}
