package model

// ClassificationStatus tracks how far a classification has progressed
// through the pipeline. A classification is never mutated after it
// reaches StatusFinal.
type ClassificationStatus string

// Classification status constants, in pipeline order.
const (
	StatusProvisional      ClassificationStatus = "PROVISIONAL"
	StatusLegallyCorrected ClassificationStatus = "LEGALLY_CORRECTED"
	StatusCrossValidated   ClassificationStatus = "CROSS_VALIDATED"
	StatusAnomalyChecked   ClassificationStatus = "ANOMALY_CHECKED"
	StatusFinal            ClassificationStatus = "FINAL"
)

// Severity grades a violation.
type Severity string

// Violation severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation records one correction applied during legal enforcement.
// The list on a Classification is append-only: entries are never
// rewritten or removed, so reviewers and tests can assert on the full
// audit trail.
type Violation struct {
	Field          string   `json:"field"`
	SubmittedValue string   `json:"submitted_value"`
	CorrectedValue string   `json:"corrected_value"`
	Rule           string   `json:"rule"`
	Severity       Severity `json:"severity"`
	LegalReference string   `json:"legal_reference,omitempty"`
}

// Classification is the tax determination for one expense. Income tax
// deductibility and VAT recovery are deliberately separate axes: the
// same category can be partially deductible for income tax while its
// input VAT is fully recoverable (meals are the canonical case).
type Classification struct {
	Category         Category             `json:"category"`
	IncomeTaxPercent int                  `json:"income_tax_percent"`
	VATRecoverable   bool                 `json:"vat_recoverable"`
	VATPercent       int                  `json:"vat_percent"`
	Reason           string               `json:"reason"`
	Status           ClassificationStatus `json:"status"`
	Violations       []Violation          `json:"violations,omitempty"`
	ReviewRequired   bool                 `json:"review_required"`
}

// AddViolation appends a violation to the audit trail.
func (c *Classification) AddViolation(v Violation) {
	c.Violations = append(c.Violations, v)
}

// HasErrors reports whether any recorded violation is error severity.
func (c *Classification) HasErrors() bool {
	for _, v := range c.Violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidationError is a structured configuration validation failure.
// Expected domain violations are returned as values, never panics.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message + " (" + e.Code + ")"
}
