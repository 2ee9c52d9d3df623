package crossval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxatron/internal/model"
)

func TestKnowledgeBaseLookup(t *testing.T) {
	kb := DefaultKnowledgeBase()

	t.Run("domain lookup wins", func(t *testing.T) {
		info, ok := kb.Lookup("a1.net", "whatever")
		require.True(t, ok)
		assert.Equal(t, model.CategoryTelecom, info.Category)
	})

	t.Run("domain is case-insensitive", func(t *testing.T) {
		_, ok := kb.Lookup("A1.NET", "")
		assert.True(t, ok)
	})

	t.Run("pattern fallback on vendor name", func(t *testing.T) {
		info, ok := kb.Lookup("unknown.example", "Gasthaus zur Post")
		require.True(t, ok)
		assert.Equal(t, model.CategoryMeals, info.Category)
	})

	t.Run("unknown vendor", func(t *testing.T) {
		_, ok := kb.Lookup("nobody.example", "Totally Unknown GmbH")
		assert.False(t, ok)
	})
}

func TestKnowledgeBaseStructurallyNoVAT(t *testing.T) {
	kb := DefaultKnowledgeBase()

	assert.True(t, kb.StructurallyNoVAT("wienerstaedtische.at", ""), "curated insurance domain")
	assert.True(t, kb.StructurallyNoVAT("unknown.example", "UNIQA Versicherung AG"), "insurance pattern")
	assert.True(t, kb.StructurallyNoVAT("unknown.example", "Hausverwaltung Miete März"), "rent pattern")
	assert.False(t, kb.StructurallyNoVAT("a1.net", "A1 Telekom"))
}

func TestNewKnowledgeBaseSkipsInvalidPatterns(t *testing.T) {
	kb := NewKnowledgeBase([]model.VendorInfo{
		{Name: "Broken", Category: model.CategoryFull, Patterns: []string{`(unclosed`}},
		{Name: "Works", Category: model.CategoryMeals, Patterns: []string{`\bpizzeria\b`}},
	}, nil)

	_, ok := kb.Lookup("", "Pizzeria Mario")
	assert.True(t, ok, "valid pattern still compiled")
	_, ok = kb.Lookup("", "Broken Vendor")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	v := NewValidator(DefaultKnowledgeBase())
	exp := func(domain, name string) model.Expense {
		return model.Expense{VendorDomain: domain, VendorName: name}
	}

	tests := []struct {
		name           string
		classification model.Classification
		expense        model.Expense
		wantVerdict    Verdict
		wantConfidence Confidence
		wantReview     bool
	}{
		{
			name:           "unknown vendor",
			classification: model.Classification{Category: model.CategoryFull},
			expense:        exp("nobody.example", "Unknown GmbH"),
			wantVerdict:    VerdictUnknownVendor,
			wantConfidence: ConfidenceLow,
		},
		{
			name:           "agreement",
			classification: model.Classification{Category: model.CategoryTelecom},
			expense:        exp("a1.net", "A1 Telekom"),
			wantVerdict:    VerdictAgree,
			wantConfidence: ConfidenceHigh,
		},
		{
			name:           "personal vs business conflict forces review",
			classification: model.Classification{Category: model.CategoryFull},
			expense:        exp("netflix.com", "Netflix"),
			wantVerdict:    VerdictDisagree,
			wantConfidence: ConfidenceLow,
			wantReview:     true,
		},
		{
			name:           "boundary disagreement is a warning only",
			classification: model.Classification{Category: model.CategoryFull},
			expense:        exp("telekom.de", "Deutsche Telekom"),
			wantVerdict:    VerdictDisagree,
			wantConfidence: ConfidenceMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.classification, tt.expense)
			assert.Equal(t, tt.wantVerdict, got.Verdict)
			assert.Equal(t, tt.wantConfidence, got.Confidence)
			assert.Equal(t, tt.wantReview, got.ReviewRequired)
			assert.NotEmpty(t, got.Reason)
		})
	}
}
