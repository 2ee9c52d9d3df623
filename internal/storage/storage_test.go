package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxatron/internal/common"
	"github.com/Veraticus/taxatron/internal/model"
	"github.com/Veraticus/taxatron/internal/service"
	"github.com/Veraticus/taxatron/internal/testutil"
)

func sampleExpense(id string, invoiceDate time.Time) model.Expense {
	return model.Expense{
		ID:            id,
		AccountID:     "acct-1",
		VendorName:    "A1 Telekom",
		VendorDomain:  "A1.NET",
		InvoiceNumber: "INV-" + id,
		InvoiceDate:   invoiceDate,
		AmountCents:   4500,
		Currency:      "EUR",
	}
}

func sampleDetermination(expenseID string, determinedAt time.Time) model.Determination {
	return model.Determination{
		ExpenseID:    expenseID,
		SituationID:  "sit-1",
		DeterminedAt: determinedAt,
		Classification: model.Classification{
			Category:         model.CategoryTelecom,
			IncomeTaxPercent: 60,
			VATRecoverable:   true,
			VATPercent:       60,
			Reason:           "income tax: telecom share; VAT: telecom share",
			Status:           model.StatusFinal,
		},
		Assignment: model.Assignment{
			Allocations: []model.Allocation{{SourceID: "freelance", Percent: 100}},
			Tier:        model.TierHeuristic,
			Status:      model.AssignmentAssigned,
			Confidence:  0.9,
			Reason:      "only active source",
		},
	}
}

func TestSaveAndGetExpense(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	exp := sampleExpense("exp-1", testutil.Date(t, "2024-03-15"))
	require.NoError(t, store.SaveExpense(ctx, &exp))

	got, err := store.GetExpenseByID(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "exp-1", got.ID)
	assert.Equal(t, "a1.net", got.VendorDomain, "domains are lowercased at write time")
	assert.Equal(t, int64(4500), got.AmountCents)
	assert.True(t, got.InvoiceDate.Equal(testutil.Date(t, "2024-03-15")))
	assert.False(t, got.CreatedAt.IsZero())

	// Saving the same ID again is a silent no-op.
	exp.AmountCents = 9999
	require.NoError(t, store.SaveExpense(ctx, &exp))
	got, err = store.GetExpenseByID(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4500), got.AmountCents)
}

func TestGetExpenseNotFound(t *testing.T) {
	store := testutil.SetupTestDB(t)

	_, err := store.GetExpenseByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestSaveExpenseValidation(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(*model.Expense)
	}{
		{name: "missing ID", setup: func(e *model.Expense) { e.ID = "" }},
		{name: "missing account", setup: func(e *model.Expense) { e.AccountID = "" }},
		{name: "zero invoice date", setup: func(e *model.Expense) { e.InvoiceDate = time.Time{} }},
		{name: "negative amount", setup: func(e *model.Expense) { e.AmountCents = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := sampleExpense("exp-v", testutil.Date(t, "2024-03-15"))
			tt.setup(&exp)
			assert.Error(t, store.SaveExpense(ctx, &exp))
		})
	}
}

func TestGetExpensesFilter(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	for i, day := range []string{"2024-01-10", "2024-02-10", "2024-03-10"} {
		exp := sampleExpense(string(rune('a'+i)), testutil.Date(t, day))
		exp.InvoiceNumber = "INV-" + day
		require.NoError(t, store.SaveExpense(ctx, &exp))
	}

	start := testutil.Date(t, "2024-02-01")
	end := testutil.Date(t, "2024-03-01")
	got, err := store.GetExpenses(ctx, service.ExpenseFilter{
		AccountID: "acct-1",
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)
	require.Len(t, got, 1, "end date is exclusive")
	assert.True(t, got[0].InvoiceDate.Equal(testutil.Date(t, "2024-02-10")))

	got, err = store.GetExpenses(ctx, service.ExpenseFilter{AccountID: "acct-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].InvoiceDate.After(got[1].InvoiceDate), "newest first")
}

func TestDeterminationRoundTrip(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	exp := sampleExpense("exp-1", testutil.Date(t, "2024-03-15"))
	require.NoError(t, store.SaveExpense(ctx, &exp))

	det := sampleDetermination("exp-1", time.Now().UTC())
	det.Classification.Violations = []model.Violation{{
		Field:          "vat_recoverable",
		SubmittedValue: "true",
		CorrectedValue: "false",
		Rule:           "vehicle_passenger_exclusion",
		Severity:       model.SeverityError,
		LegalReference: "§ 12 Abs 2 Z 2 lit b UStG",
	}}
	det.CrossCheck = model.CrossCheck{
		Verdict:        "disagree",
		Confidence:     "medium",
		VendorCategory: model.CategoryPartial,
		Reason:         "boundary disagreement",
	}
	det.AnomalyFlags = []model.AnomalyFlag{{
		Rule:   "category_drift",
		Level:  "warning",
		Reason: "vendor was last classified differently",
	}}
	require.NoError(t, store.SaveDetermination(ctx, &det))

	got, err := store.GetDetermination(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTelecom, got.Classification.Category)
	assert.Equal(t, 60, got.Classification.IncomeTaxPercent)
	assert.True(t, got.Classification.VATRecoverable)
	assert.Equal(t, "sit-1", got.SituationID)
	require.Len(t, got.Classification.Violations, 1)
	assert.Equal(t, "vehicle_passenger_exclusion", got.Classification.Violations[0].Rule)
	assert.Equal(t, model.TierHeuristic, got.Assignment.Tier)
	assert.Equal(t, 100, got.Assignment.TotalPercent())
	assert.Equal(t, det.CrossCheck, got.CrossCheck)
	assert.Equal(t, det.AnomalyFlags, got.AnomalyFlags)
}

func TestGetDeterminationsNeedingReview(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, tc := range []struct {
		id             string
		reviewRequired bool
		status         model.AssignmentStatus
	}{
		{id: "clean", status: model.AssignmentAssigned},
		{id: "classification-review", reviewRequired: true, status: model.AssignmentAssigned},
		{id: "allocation-review", status: model.AssignmentReviewNeeded},
	} {
		exp := sampleExpense(tc.id, testutil.Date(t, "2024-03-15"))
		exp.InvoiceNumber = "INV-" + tc.id
		require.NoError(t, store.SaveExpense(ctx, &exp))

		det := sampleDetermination(tc.id, base.Add(time.Duration(i)*time.Second))
		det.Classification.ReviewRequired = tc.reviewRequired
		det.Assignment.Status = tc.status
		require.NoError(t, store.SaveDetermination(ctx, &det))
	}

	needing, err := store.GetDeterminationsNeedingReview(ctx)
	require.NoError(t, err)
	require.Len(t, needing, 2)

	ids := []string{needing[0].ExpenseID, needing[1].ExpenseID}
	assert.ElementsMatch(t, []string{"classification-review", "allocation-review"}, ids)
}

func TestVendorHistory(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	t.Run("empty history", func(t *testing.T) {
		history, err := store.GetVendorHistory(ctx, "acct-1", "a1.net", 5)
		require.NoError(t, err)
		assert.True(t, history.FirstInvoice())
		assert.Zero(t, history.TotalAmountCents)
	})

	for i, day := range []string{"2024-01-10", "2024-02-10"} {
		id := string(rune('a' + i))
		exp := sampleExpense(id, testutil.Date(t, day))
		exp.InvoiceNumber = "INV-" + day
		require.NoError(t, store.SaveExpense(ctx, &exp))

		det := sampleDetermination(id, time.Now().UTC())
		require.NoError(t, store.SaveDetermination(ctx, &det))
	}

	history, err := store.GetVendorHistory(ctx, "acct-1", "a1.net", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, history.InvoiceCount)
	assert.Equal(t, int64(9000), history.TotalAmountCents)
	assert.Equal(t, model.CategoryTelecom, history.LastCategory)
	assert.Equal(t, "freelance", history.UnanimousSource())
	assert.True(t, history.LastSeen.Equal(testutil.Date(t, "2024-02-10")))
}

func TestDuplicateRoundTrip(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	dup := model.DuplicateRecord{
		DetectedAt:  time.Now().UTC(),
		ExpenseID:   "exp-2",
		OriginalID:  "exp-1",
		Confidence:  model.ConfidenceMedium,
		Strategy:    model.StrategyFuzzy,
		AutoApplied: true,
	}
	require.NoError(t, store.SaveDuplicate(ctx, &dup))

	got, err := store.GetDuplicatesForExpense(ctx, "exp-2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.StrategyFuzzy, got[0].Strategy)
	assert.Equal(t, model.ConfidenceMedium, got[0].Confidence)
	assert.True(t, got[0].AutoApplied)
	assert.Equal(t, "exp-1", got[0].OriginalID)
}

func TestRunLifecycle(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	run := model.ProcessingRun{ID: "run-1", StartedAt: time.Now().UTC()}
	require.NoError(t, store.StartRun(ctx, &run))

	run.Status = model.RunStatusCompleted
	run.Processed = 10
	run.Flagged = 2
	run.Duplicates = 1
	require.NoError(t, store.FinishRun(ctx, &run))

	runs, err := store.GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 10, runs[0].Processed)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestFinishUnknownRun(t *testing.T) {
	store := testutil.SetupTestDB(t)

	run := model.ProcessingRun{ID: "ghost", Status: model.RunStatusCompleted}
	assert.Error(t, store.FinishRun(context.Background(), &run))
}

func TestFlagInterruptedRuns(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.StartRun(ctx, &model.ProcessingRun{ID: "stale", StartedAt: time.Now().UTC()}))

	finished := model.ProcessingRun{ID: "done", StartedAt: time.Now().UTC()}
	require.NoError(t, store.StartRun(ctx, &finished))
	finished.Status = model.RunStatusCompleted
	require.NoError(t, store.FinishRun(ctx, &finished))

	n, err := store.FlagInterruptedRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	runs, err := store.GetRuns(ctx, 10)
	require.NoError(t, err)
	statuses := map[string]model.RunStatus{}
	for _, r := range runs {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, model.RunStatusInterrupted, statuses["stale"])
	assert.Equal(t, model.RunStatusCompleted, statuses["done"])

	// A second pass finds nothing left to flag.
	n, err = store.FlagInterruptedRuns(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionAtomicity(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	t.Run("commit persists all writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		exp := sampleExpense("tx-commit", testutil.Date(t, "2024-03-15"))
		require.NoError(t, tx.SaveExpense(ctx, &exp))
		det := sampleDetermination("tx-commit", time.Now().UTC())
		require.NoError(t, tx.SaveDetermination(ctx, &det))
		require.NoError(t, tx.Commit())

		_, err = store.GetExpenseByID(ctx, "tx-commit")
		assert.NoError(t, err)
		_, err = store.GetDetermination(ctx, "tx-commit")
		assert.NoError(t, err)
	})

	t.Run("rollback discards all writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		exp := sampleExpense("tx-rollback", testutil.Date(t, "2024-03-15"))
		require.NoError(t, tx.SaveExpense(ctx, &exp))
		require.NoError(t, tx.Rollback())

		_, err = store.GetExpenseByID(ctx, "tx-rollback")
		assert.True(t, errors.Is(err, common.ErrNotFound))
	})
}

func TestSchemaVersion(t *testing.T) {
	store := testutil.SetupTestDB(t)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, version)

	// Migrate is idempotent.
	require.NoError(t, store.Migrate(context.Background()))
	version, err = store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, version)
}
