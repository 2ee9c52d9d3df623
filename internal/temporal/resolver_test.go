package temporal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxatron/internal/model"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t.UTC()
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

func twoSituations() []model.Situation {
	return []model.Situation{
		{
			ID:           "s1",
			Jurisdiction: "AT",
			VATStatus:    model.VATStatusNoVATRegime,
			From:         date("2024-01-01"),
			To:           datePtr("2024-07-01"),
		},
		{
			ID:           "s2",
			Jurisdiction: "AT",
			VATStatus:    model.VATStatusStandard,
			From:         date("2024-07-01"),
		},
	}
}

func TestResolveBoundaryBelongsToExactlyOneSituation(t *testing.T) {
	r := NewResolver(twoSituations(), nil)

	tests := []struct {
		date   string
		wantID string
	}{
		{date: "2024-01-01", wantID: "s1"},
		{date: "2024-06-30", wantID: "s1"},
		{date: "2024-07-01", wantID: "s2"}, // boundary day belongs to the later situation
		{date: "2025-03-15", wantID: "s2"}, // ongoing situation has no end
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			res, err := r.Resolve(date(tt.date))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.Situation.ID)
		})
	}
}

func TestResolveGap(t *testing.T) {
	situations := []model.Situation{
		{ID: "s1", From: date("2024-01-01"), To: datePtr("2024-03-01")},
		{ID: "s2", From: date("2024-06-01")},
	}
	r := NewResolver(situations, nil)

	_, err := r.Resolve(date("2024-04-15"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoActiveSituation))
	assert.Contains(t, err.Error(), "2024-04-15")

	_, err = r.Resolve(date("2023-12-31"))
	assert.True(t, errors.Is(err, ErrNoActiveSituation), "date before all situations is a gap")
}

func TestResolveActiveSources(t *testing.T) {
	sources := []model.IncomeSource{
		{ID: "freelance", Kind: model.SourceKindFreelance, ValidFrom: date("2024-01-01")},
		{ID: "trade", Kind: model.SourceKindTrade, ValidFrom: date("2024-01-01"), ValidTo: datePtr("2024-07-01")},
		{ID: "rental", Kind: model.SourceKindRental, ValidFrom: date("2024-10-01")},
	}
	r := NewResolver(twoSituations(), sources)

	res, err := r.Resolve(date("2024-03-15"))
	require.NoError(t, err)
	require.Len(t, res.ActiveSources, 2)
	assert.Equal(t, "freelance", res.ActiveSources[0].ID)
	assert.Equal(t, "trade", res.ActiveSources[1].ID)

	// The trade source ends (exclusive) on July 1; only freelance
	// remains until rental starts.
	assert.Equal(t, []string{"freelance"}, r.ActiveSourceIDs(date("2024-07-01")))
	assert.Equal(t, []string{"freelance", "rental"}, r.ActiveSourceIDs(date("2024-11-01")))
}

func TestValidateNoOverlap(t *testing.T) {
	t.Run("back-to-back situations are fine", func(t *testing.T) {
		assert.Empty(t, ValidateNoOverlap(twoSituations()))
	})

	t.Run("overlap is reported", func(t *testing.T) {
		situations := []model.Situation{
			{ID: "s1", From: date("2024-01-01"), To: datePtr("2024-07-01")},
			{ID: "s2", From: date("2024-06-01")},
		}
		errs := ValidateNoOverlap(situations)
		require.Len(t, errs, 1)
		assert.Equal(t, "overlap", errs[0].Code)
		assert.Contains(t, errs[0].Message, "s1")
		assert.Contains(t, errs[0].Message, "s2")
	})

	t.Run("ongoing situation overlaps any later start", func(t *testing.T) {
		situations := []model.Situation{
			{ID: "s1", From: date("2024-01-01")},
			{ID: "s2", From: date("2024-06-01")},
		}
		assert.Len(t, ValidateNoOverlap(situations), 1)
	})
}

func TestGaps(t *testing.T) {
	tests := []struct {
		name       string
		situations []model.Situation
		want       []Gap
	}{
		{
			name:       "contiguous coverage has no gaps",
			situations: twoSituations(),
			want:       nil,
		},
		{
			name: "gap between situations",
			situations: []model.Situation{
				{ID: "s1", From: date("2024-01-01"), To: datePtr("2024-03-01")},
				{ID: "s2", From: date("2024-06-01")},
			},
			want: []Gap{{From: date("2024-03-01"), To: date("2024-06-01")}},
		},
		{
			name: "uncovered head and tail",
			situations: []model.Situation{
				{ID: "s1", From: date("2024-03-01"), To: datePtr("2024-10-01")},
			},
			want: []Gap{
				{From: date("2024-01-01"), To: date("2024-03-01")},
				{From: date("2024-10-01"), To: date("2025-01-01")},
			},
		},
		{
			name:       "no situations at all",
			situations: nil,
			want:       []Gap{{From: date("2024-01-01"), To: date("2025-01-01")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Gaps(tt.situations, date("2024-01-01"), date("2025-01-01"))
			assert.Equal(t, tt.want, got)
		})
	}
}
