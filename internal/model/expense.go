package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Expense is a single incoming business expense record. Amounts are
// integer minor currency units (cents); upstream float amounts are
// converted at the ingestion boundary and never touch the pipeline.
type Expense struct {
	InvoiceDate   time.Time
	CreatedAt     time.Time
	ID            string
	AccountID     string
	VendorName    string
	VendorDomain  string
	InvoiceNumber string
	Currency      string
	ContentHash   string
	AmountCents   int64
}

// HashArtifact computes the content hash for a downloaded attachment,
// used by the content-hash duplicate strategy.
func HashArtifact(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// Suggestion is the provisional classification produced by the
// upstream AI/vendor-lookup collaborator. Every field may be absent;
// a nil pointer means "no information", never zero. The pipeline
// treats the whole struct as untrusted input.
type Suggestion struct {
	Category         string  `json:"category"`
	IncomeTaxPercent *int    `json:"income_tax_percent"`
	VATRecoverable   *bool   `json:"vat_recoverable"`
	AmountCents      *int64  `json:"amount_cents,omitempty"`
	VendorName       string  `json:"vendor_name,omitempty"`
	SourceID         string  `json:"source_id,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// CrossCheck is the vendor cross-validation verdict recorded on a
// determination, so a reviewer can see what the knowledge base said
// even when the classification itself was left untouched.
type CrossCheck struct {
	Verdict        string   `json:"verdict"`
	Confidence     string   `json:"confidence"`
	VendorCategory Category `json:"vendor_category,omitempty"`
	Reason         string   `json:"reason"`
	ReviewRequired bool     `json:"review_required,omitempty"`
}

// AnomalyFlag is one raised anomaly rule recorded on a determination.
type AnomalyFlag struct {
	Rule   string `json:"rule"`
	Level  string `json:"level"`
	Reason string `json:"reason"`
}

// Determination is the fully annotated result persisted for one
// expense once the pipeline completes. CrossCheck and AnomalyFlags
// are diagnostic detail: they explain a review flag but never alter
// the classification.
type Determination struct {
	DeterminedAt   time.Time
	ExpenseID      string
	SituationID    string
	Classification Classification
	Assignment     Assignment
	CrossCheck     CrossCheck
	AnomalyFlags   []AnomalyFlag
}
