package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxatron/internal/common"
	"github.com/Veraticus/taxatron/internal/model"
)

func TestCorruptDeterminationDetail(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	exp := model.Expense{
		ID:           "exp-1",
		AccountID:    "acct-1",
		VendorName:   "A1 Telekom",
		VendorDomain: "a1.net",
		InvoiceDate:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		AmountCents:  4500,
		Currency:     "EUR",
	}
	require.NoError(t, store.SaveExpense(ctx, &exp))

	det := model.Determination{
		ExpenseID:    "exp-1",
		SituationID:  "sit-1",
		DeterminedAt: time.Now().UTC(),
		Classification: model.Classification{
			Category:         model.CategoryTelecom,
			IncomeTaxPercent: 60,
			Status:           model.StatusFinal,
		},
		Assignment: model.Assignment{
			Allocations: []model.Allocation{{SourceID: "freelance", Percent: 100}},
			Tier:        model.TierHeuristic,
			Status:      model.AssignmentAssigned,
		},
	}
	require.NoError(t, store.SaveDetermination(ctx, &det))

	_, err = store.db.ExecContext(ctx,
		`UPDATE determinations SET anomaly_flags = '{broken' WHERE expense_id = ?`, "exp-1")
	require.NoError(t, err)

	_, err = store.GetDetermination(ctx, "exp-1")
	assert.ErrorIs(t, err, common.ErrDatabaseCorrupted)
}
