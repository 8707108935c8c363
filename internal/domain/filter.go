package domain

import "time"

// PaymentFilter narrows ledger queries for reporting and reconciliation.
// Zero-value fields are ignored.
type PaymentFilter struct {
	Statuses   []PaymentStatus
	VendorID   string
	From       time.Time
	To         time.Time
	Reconciled *bool
}

func (f PaymentFilter) Matches(p *Payment) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.VendorID != "" && p.VendorID != f.VendorID {
		return false
	}
	if !f.From.IsZero() && p.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && p.CreatedAt.After(f.To) {
		return false
	}
	if f.Reconciled != nil && p.Reconciled != *f.Reconciled {
		return false
	}
	return true
}
