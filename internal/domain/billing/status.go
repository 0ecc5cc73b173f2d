package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft            InvoiceStatus = "DRAFT"
	InvoiceStatusSent             InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid    InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid             InvoiceStatus = "PAID"
	InvoiceStatusOverdue          InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled        InvoiceStatus = "CANCELLED"
	InvoiceStatusPendingInsurance InvoiceStatus = "PENDING_INSURANCE"
	InvoiceStatusInsuranceDenied  InvoiceStatus = "INSURANCE_DENIED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled,
		InvoiceStatusPendingInsurance, InvoiceStatusInsuranceDenied:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state.
// PAID is terminal for the normal flow; it can regress only through
// an explicit payment removal going back through DeriveStatus.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// IsInsuranceState returns true for the parallel insurance-billing states
func (s InvoiceStatus) IsInsuranceState() bool {
	return s == InvoiceStatusPendingInsurance || s == InvoiceStatusInsuranceDenied
}

// CanAcceptPayment returns true if payments can be applied in this status
func (s InvoiceStatus) CanAcceptPayment() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue,
		InvoiceStatusPendingInsurance, InvoiceStatusInsuranceDenied:
		return true
	}
	return false
}

// DeriveStatus computes the invoice status from the payment facts. It is the
// single recompute function invoked by every mutation path; status is never
// hand-set elsewhere except for CANCELLED and the insurance overrides.
//
// Rules: paid >= total -> PAID; paid > 0 -> PARTIALLY_PAID; otherwise SENT,
// or OVERDUE once past the due date. DRAFT and CANCELLED pass through
// unchanged, as do the unpaid insurance states (manual overrides).
// The function is idempotent for a fixed payment set and clock.
func DeriveStatus(total, paid decimal.Decimal, dueDate time.Time, now time.Time, current InvoiceStatus) InvoiceStatus {
	if current == InvoiceStatusDraft || current == InvoiceStatusCancelled {
		return current
	}
	if paid.GreaterThanOrEqual(total) && total.GreaterThan(decimal.Zero) {
		return InvoiceStatusPaid
	}
	if paid.GreaterThan(decimal.Zero) {
		return InvoiceStatusPartiallyPaid
	}
	if current.IsInsuranceState() {
		return current
	}
	if now.After(dueDate) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusSent
}
