package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxatron/internal/model"
	"github.com/Veraticus/taxatron/internal/storage"
	"github.com/Veraticus/taxatron/internal/testutil"
)

func persisted(t *testing.T, store *storage.SQLiteStorage, exp model.Expense) {
	t.Helper()
	require.NoError(t, store.SaveExpense(context.Background(), &exp))
}

func baseExpense(id string) model.Expense {
	return model.Expense{
		ID:            id,
		AccountID:     "acct-1",
		InvoiceDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		VendorName:    "A1 Telekom",
		VendorDomain:  "a1.net",
		InvoiceNumber: "INV-100",
		AmountCents:   4500,
		Currency:      "EUR",
	}
}

func TestDetectIdentity(t *testing.T) {
	store := testutil.SetupTestDB(t)
	d := NewDetector(store)

	exp := baseExpense("exp-1")
	persisted(t, store, exp)

	dup, err := d.Detect(context.Background(), exp, Options{})
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, model.StrategyIdentity, dup.Strategy)
	assert.Equal(t, model.ConfidenceExact, dup.Confidence)
	assert.True(t, dup.AutoApplied, "identity matches always auto-apply")
	assert.Equal(t, "exp-1", dup.OriginalID)
}

func TestDetectInvoiceNumber(t *testing.T) {
	store := testutil.SetupTestDB(t)
	d := NewDetector(store)

	persisted(t, store, baseExpense("exp-1"))

	// Same invoice number and vendor, different record ID and even a
	// different amount: still an exact duplicate.
	dup2 := baseExpense("exp-2")
	dup2.AmountCents = 4600

	dup, err := d.Detect(context.Background(), dup2, Options{})
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, model.StrategyInvoiceNumber, dup.Strategy)
	assert.Equal(t, model.ConfidenceExact, dup.Confidence)
	assert.Equal(t, "exp-1", dup.OriginalID)
	assert.True(t, dup.AutoApplied)
}

func TestDetectInvoiceNumberNeedsSameVendor(t *testing.T) {
	store := testutil.SetupTestDB(t)
	d := NewDetector(store)

	persisted(t, store, baseExpense("exp-1"))

	other := baseExpense("exp-2")
	other.VendorDomain = "magenta.at"
	other.InvoiceNumber = "INV-100" // numbers collide across vendors
	other.AmountCents = 9999        // avoid a fuzzy hit

	dup, err := d.Detect(context.Background(), other, Options{})
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestDetectContentHash(t *testing.T) {
	store := testutil.SetupTestDB(t)
	d := NewDetector(store)

	hash := model.HashArtifact([]byte("invoice pdf bytes"))
	orig := baseExpense("exp-1")
	orig.ContentHash = hash
	persisted(t, store, orig)

	dup2 := baseExpense("exp-2")
	dup2.InvoiceNumber = "INV-200"
	dup2.ContentHash = hash
	dup2.AmountCents = 9999 // different amount, hash still decides

	dup, err := d.Detect(context.Background(), dup2, Options{})
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, model.StrategyContentHash, dup.Strategy)
	assert.Equal(t, model.ConfidenceExact, dup.Confidence)
}

func TestDetectFuzzy(t *testing.T) {
	tests := []struct {
		name      string
		daysApart int
		opts      Options
		wantHit   bool
		wantConf  model.DuplicateConfidence
		wantAuto  bool
	}{
		{name: "within window", daysApart: 3, wantHit: true, wantConf: model.ConfidenceMedium},
		{name: "at window edge", daysApart: 7, wantHit: true, wantConf: model.ConfidenceMedium},
		{name: "outside window", daysApart: 8},
		{name: "strict raises confidence", daysApart: 3, opts: Options{Strict: true}, wantHit: true, wantConf: model.ConfidenceHigh},
		{name: "auto dedup opts in", daysApart: 3, opts: Options{AutoDedup: true}, wantHit: true, wantConf: model.ConfidenceMedium, wantAuto: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.SetupTestDB(t)
			d := NewDetector(store)

			orig := baseExpense("exp-1")
			orig.InvoiceNumber = ""
			persisted(t, store, orig)

			candidate := baseExpense("exp-2")
			candidate.InvoiceNumber = ""
			candidate.InvoiceDate = orig.InvoiceDate.AddDate(0, 0, tt.daysApart)

			dup, err := d.Detect(context.Background(), candidate, tt.opts)
			require.NoError(t, err)

			if !tt.wantHit {
				assert.Nil(t, dup)
				return
			}
			require.NotNil(t, dup)
			assert.Equal(t, model.StrategyFuzzy, dup.Strategy)
			assert.Equal(t, tt.wantConf, dup.Confidence)
			assert.Equal(t, tt.wantAuto, dup.AutoApplied)
			assert.Equal(t, "exp-1", dup.OriginalID)
		})
	}
}

func TestDetectFuzzyNeedsSameAmount(t *testing.T) {
	store := testutil.SetupTestDB(t)
	d := NewDetector(store)

	orig := baseExpense("exp-1")
	orig.InvoiceNumber = ""
	persisted(t, store, orig)

	candidate := baseExpense("exp-2")
	candidate.InvoiceNumber = ""
	candidate.AmountCents = 4501

	dup, err := d.Detect(context.Background(), candidate, Options{})
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestDetectNewRecord(t *testing.T) {
	store := testutil.SetupTestDB(t)
	d := NewDetector(store)

	dup, err := d.Detect(context.Background(), baseExpense("exp-1"), Options{})
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestDetectAccountsAreIsolated(t *testing.T) {
	store := testutil.SetupTestDB(t)
	d := NewDetector(store)

	persisted(t, store, baseExpense("exp-1"))

	other := baseExpense("exp-2")
	other.AccountID = "acct-2"

	dup, err := d.Detect(context.Background(), other, Options{})
	require.NoError(t, err)
	assert.Nil(t, dup, "duplicates never match across accounts")
}
