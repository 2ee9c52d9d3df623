package model

import "time"

// VendorInfo is one entry in the curated vendor knowledge base: a
// vendor's canonical deductibility category, keyed by domain or by
// text patterns matched against the vendor name.
type VendorInfo struct {
	Domain   string   `json:"domain,omitempty"`
	Name     string   `json:"name"`
	Patterns []string `json:"patterns,omitempty"`
	Category Category `json:"category"`
	// StructurallyNoVAT marks vendors whose supplies carry no input
	// VAT at all (insurance, rent, medical, bank fees).
	StructurallyNoVAT bool `json:"structurally_no_vat,omitempty"`
}

// VendorHistory is the lightweight per-vendor aggregate the anomaly
// detector and allocation heuristic consult. It is derived from
// already-persisted expenses for the same sender domain.
type VendorHistory struct {
	LastSeen         time.Time
	Domain           string
	LastCategory     Category
	RecentSourceIDs  []string
	InvoiceCount     int
	TotalAmountCents int64
}

// FirstInvoice reports whether no prior invoice from this vendor
// exists.
func (h *VendorHistory) FirstInvoice() bool {
	return h.InvoiceCount == 0
}

// UnanimousSource returns the single source ID all recent invoices
// were assigned to, or "" when history is empty or mixed.
func (h *VendorHistory) UnanimousSource() string {
	if len(h.RecentSourceIDs) == 0 {
		return ""
	}
	first := h.RecentSourceIDs[0]
	for _, id := range h.RecentSourceIDs[1:] {
		if id != first {
			return ""
		}
	}
	return first
}
