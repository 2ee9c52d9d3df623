// Package enforce is the deterministic legal constraint layer. It
// takes whatever the upstream classifier suggested, corrects every
// value that violates the jurisdiction's law, and records each
// correction as a structured violation. Its output is the only
// classification ever persisted or displayed as final.
package enforce

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/taxatron/internal/jurisdiction"
	"github.com/Veraticus/taxatron/internal/model"
)

// Provisional is the untrusted upstream classification. Nil pointers
// mean "no information" and are filled from the jurisdiction defaults
// without recording a violation; a wrong non-nil value is corrected
// with one.
type Provisional struct {
	IncomeTaxPercent *int
	VATRecoverable   *bool
	Category         model.Category
}

// FromSuggestion converts an upstream suggestion into a provisional
// classification, mapping unknown categories to unclear.
func FromSuggestion(s model.Suggestion) Provisional {
	return Provisional{
		Category:         model.ParseCategory(s.Category),
		IncomeTaxPercent: s.IncomeTaxPercent,
		VATRecoverable:   s.VATRecoverable,
	}
}

// Apply runs the ordered legal rules for the provisional category and
// returns a law-consistent classification. It is a pure function and
// idempotent: re-applying it to its own output yields no new
// violations.
func Apply(p Provisional, exp model.Expense, s model.Situation, rules jurisdiction.Rules) model.Classification {
	ec := jurisdiction.EvalContext{
		InvoiceDate:  exp.InvoiceDate,
		VendorDomain: exp.VendorDomain,
		AmountCents:  exp.AmountCents,
	}

	out := model.Classification{
		Category: p.Category,
		Status:   model.StatusLegallyCorrected,
	}
	if p.Category == model.CategoryUnclear {
		out.ReviewRequired = true
	}

	tax := rules.IncomeTaxPercent(p.Category, s, ec)
	applyIncomeTax(&out, p, tax)

	vat := rules.VATRecovery(p.Category, s, ec)
	applyVAT(&out, p, vat)

	out.Reason = fmt.Sprintf("income tax: %s; VAT: %s", tax.Reason, vat.Reason)
	return out
}

func applyIncomeTax(out *model.Classification, p Provisional, tax jurisdiction.TaxResult) {
	switch {
	case tax.Fixed:
		out.IncomeTaxPercent = tax.Percent
		if p.IncomeTaxPercent != nil && *p.IncomeTaxPercent != tax.Percent {
			out.AddViolation(model.Violation{
				Field:          "income_tax_percent",
				SubmittedValue: strconv.Itoa(*p.IncomeTaxPercent),
				CorrectedValue: strconv.Itoa(tax.Percent),
				Rule:           tax.Rule,
				Severity:       tax.Severity,
				LegalReference: tax.LegalReference,
			})
		}
	case p.IncomeTaxPercent == nil:
		out.IncomeTaxPercent = tax.Percent
	case *p.IncomeTaxPercent < 0 || *p.IncomeTaxPercent > 100:
		out.IncomeTaxPercent = tax.Percent
		out.AddViolation(model.Violation{
			Field:          "income_tax_percent",
			SubmittedValue: strconv.Itoa(*p.IncomeTaxPercent),
			CorrectedValue: strconv.Itoa(tax.Percent),
			Rule:           "percent_out_of_range",
			Severity:       model.SeverityWarning,
		})
	default:
		out.IncomeTaxPercent = *p.IncomeTaxPercent
	}
}

func applyVAT(out *model.Classification, p Provisional, vat jurisdiction.VATResult) {
	switch {
	case vat.Fixed:
		out.VATRecoverable = vat.Recoverable
		if vat.Recoverable {
			out.VATPercent = vat.Percent
		}
		if p.VATRecoverable != nil && *p.VATRecoverable != vat.Recoverable {
			out.AddViolation(model.Violation{
				Field:          "vat_recoverable",
				SubmittedValue: strconv.FormatBool(*p.VATRecoverable),
				CorrectedValue: strconv.FormatBool(vat.Recoverable),
				Rule:           vat.Rule,
				Severity:       vat.Severity,
				LegalReference: vat.LegalReference,
			})
		}
	case p.VATRecoverable == nil:
		out.VATRecoverable = vat.Recoverable
		if vat.Recoverable {
			out.VATPercent = vat.Percent
		}
	default:
		out.VATRecoverable = *p.VATRecoverable
		if out.VATRecoverable {
			out.VATPercent = vat.Percent
		}
	}
}
