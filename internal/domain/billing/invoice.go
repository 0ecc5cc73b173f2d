package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// invoiceNumberPattern matches the INV-<year>-<5-digit-seq> format
var invoiceNumberPattern = regexp.MustCompile(`^INV-(\d{4})-(\d{5})$`)

// InvoiceNumberPrefix returns the numbering prefix for a year
func InvoiceNumberPrefix(year int) string {
	return fmt.Sprintf("INV-%04d-", year)
}

// FormatInvoiceNumber renders a year-scoped invoice number
func FormatInvoiceNumber(year, sequence int) string {
	return fmt.Sprintf("INV-%04d-%05d", year, sequence)
}

// ParseInvoiceNumber extracts year and sequence from an invoice number.
// Returns an error if the number does not match the expected format.
func ParseInvoiceNumber(number string) (year, sequence int, err error) {
	m := invoiceNumberPattern.FindStringSubmatch(number)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid invoice number format: %q", number)
	}
	year, _ = strconv.Atoi(m[1])
	sequence, _ = strconv.Atoi(m[2])
	return year, sequence, nil
}

// InvoiceLineItem is an entity owned exclusively by its Invoice.
// Rate is copied from the service code at creation so later catalog edits
// never change issued invoices. Amount is always Quantity * Rate.
type InvoiceLineItem struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	ServiceCodeID   uuid.UUID       `json:"service_code_id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	Rate            decimal.Decimal `json:"rate"`
	Amount          decimal.Decimal `json:"amount"`
	DateOfService   time.Time       `json:"date_of_service"`
	BillToInsurance bool            `json:"bill_to_insurance"`
}

// NewInvoiceLineItem creates a line item with a computed amount
func NewInvoiceLineItem(serviceCodeID uuid.UUID, description string, quantity, rate decimal.Decimal, dateOfService time.Time, billToInsurance bool) (*InvoiceLineItem, error) {
	description = strings.TrimSpace(description)

	if serviceCodeID == uuid.Nil {
		return nil, shared.NewValidationError("Service code ID cannot be empty")
	}
	if description == "" {
		return nil, shared.NewValidationError("Line item description cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Line item quantity must be positive")
	}
	if rate.IsNegative() {
		return nil, shared.NewValidationError("Line item rate cannot be negative")
	}
	if dateOfService.IsZero() {
		return nil, shared.NewValidationError("Date of service is required")
	}

	return &InvoiceLineItem{
		ID:              uuid.New(),
		ServiceCodeID:   serviceCodeID,
		Description:     description,
		Quantity:        quantity,
		Rate:            rate,
		Amount:          quantity.Mul(rate).Round(2),
		DateOfService:   dateOfService,
		BillToInsurance: billToInsurance,
	}, nil
}

// GetAmountMoney returns the line amount as Money
func (li *InvoiceLineItem) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(li.Amount)
}

// Invoice represents the invoice aggregate root. It owns its line items as
// one consistency boundary; totals are recomputed from the item set inside
// the same transaction as any item mutation.
type Invoice struct {
	shared.AuditedAggregateRoot
	InvoiceNumber     string            `json:"invoice_number"`
	ClientID          uuid.UUID         `json:"client_id"`
	IssueDate         time.Time         `json:"issue_date"`
	DueDate           time.Time         `json:"due_date"`
	Status            InvoiceStatus     `json:"status"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	Tax               decimal.Decimal   `json:"tax"`
	Discount          decimal.Decimal   `json:"discount"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	AmountPaid        decimal.Decimal   `json:"amount_paid"`
	FundingProviderID *uuid.UUID        `json:"funding_provider_id"`
	FundingProgramID  *uuid.UUID        `json:"funding_program_id"`
	Notes             string            `json:"notes"`
	LineItems         []InvoiceLineItem `json:"line_items"`
	SentAt            *time.Time        `json:"sent_at"`
	PaidAt            *time.Time        `json:"paid_at"`
	CancelledAt       *time.Time        `json:"cancelled_at"`
	CancelReason      string            `json:"cancel_reason"`
}

// NewInvoice creates an invoice with its line items in one operation.
// The invoice number is assigned by the numbering sequencer before the
// insert; client existence is validated by the service layer.
func NewInvoice(
	clientID uuid.UUID,
	issueDate time.Time,
	dueDate time.Time,
	lineItems []InvoiceLineItem,
	tax decimal.Decimal,
	discount decimal.Decimal,
	fundingProviderID *uuid.UUID,
	fundingProgramID *uuid.UUID,
	notes string,
	createdBy uuid.UUID,
) (*Invoice, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewValidationError("Client ID cannot be empty")
	}
	if len(lineItems) == 0 {
		return nil, shared.NewValidationError("Invoice requires at least one line item")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	if dueDate.IsZero() {
		return nil, shared.NewValidationError("Due date is required")
	}
	if dueDate.Before(issueDate) {
		return nil, shared.NewValidationError("Due date cannot be before issue date")
	}
	if tax.IsNegative() {
		return nil, shared.NewValidationError("Tax cannot be negative")
	}
	if discount.IsNegative() {
		return nil, shared.NewValidationError("Discount cannot be negative")
	}
	if fundingProviderID != nil && *fundingProviderID == uuid.Nil {
		return nil, shared.NewValidationError("Funding provider ID cannot be the nil UUID")
	}
	if fundingProgramID != nil && *fundingProgramID == uuid.Nil {
		return nil, shared.NewValidationError("Funding program ID cannot be the nil UUID")
	}

	inv := &Invoice{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		ClientID:             clientID,
		IssueDate:            issueDate,
		DueDate:              dueDate,
		Status:               InvoiceStatusDraft,
		Tax:                  tax,
		Discount:             discount,
		AmountPaid:           decimal.Zero,
		FundingProviderID:    fundingProviderID,
		FundingProgramID:     fundingProgramID,
		Notes:                strings.TrimSpace(notes),
		LineItems:            make([]InvoiceLineItem, 0, len(lineItems)),
	}

	for i := range lineItems {
		item := lineItems[i]
		item.InvoiceID = inv.ID
		inv.LineItems = append(inv.LineItems, item)
	}
	inv.recomputeTotals()

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// AssignNumber sets the sequencer-generated invoice number.
// The number must match the INV-<year>-<5-digit> format.
func (inv *Invoice) AssignNumber(number string) error {
	if _, _, err := ParseInvoiceNumber(number); err != nil {
		return shared.NewValidationError(err.Error())
	}
	inv.InvoiceNumber = number
	return nil
}

// recomputeTotals rederives Subtotal and TotalAmount from the current item
// set. Called inside every line-item mutation so a stale total is never
// observable.
func (inv *Invoice) recomputeTotals() {
	subtotal := decimal.Zero
	for i := range inv.LineItems {
		subtotal = subtotal.Add(inv.LineItems[i].Amount)
	}
	inv.Subtotal = subtotal
	inv.TotalAmount = subtotal.Sub(inv.Discount).Add(inv.Tax)
}

// ensureDraft guards the line-item mutation paths
func (inv *Invoice) ensureDraft() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainErrorf(shared.CodeConflict, "Line items can only be modified while the invoice is DRAFT, current status is %s", inv.Status)
	}
	return nil
}

// AddLineItem appends a line item; permitted only in DRAFT
func (inv *Invoice) AddLineItem(item *InvoiceLineItem) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}

	item.InvoiceID = inv.ID
	inv.LineItems = append(inv.LineItems, *item)
	inv.recomputeTotals()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// UpdateLineItem replaces the quantity, rate, and description of an owned
// line item; permitted only in DRAFT
func (inv *Invoice) UpdateLineItem(itemID uuid.UUID, description string, quantity, rate decimal.Decimal, dateOfService time.Time, billToInsurance bool) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return shared.NewValidationError("Line item description cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Line item quantity must be positive")
	}
	if rate.IsNegative() {
		return shared.NewValidationError("Line item rate cannot be negative")
	}

	for i := range inv.LineItems {
		if inv.LineItems[i].ID == itemID {
			inv.LineItems[i].Description = description
			inv.LineItems[i].Quantity = quantity
			inv.LineItems[i].Rate = rate
			inv.LineItems[i].Amount = quantity.Mul(rate).Round(2)
			if !dateOfService.IsZero() {
				inv.LineItems[i].DateOfService = dateOfService
			}
			inv.LineItems[i].BillToInsurance = billToInsurance
			inv.recomputeTotals()
			inv.UpdatedAt = time.Now()
			inv.IncrementVersion()
			return nil
		}
	}

	return shared.NewNotFoundError("Line item")
}

// RemoveLineItem removes an owned line item; permitted only in DRAFT and
// the invoice must keep at least one item
func (inv *Invoice) RemoveLineItem(itemID uuid.UUID) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if len(inv.LineItems) == 1 && inv.LineItems[0].ID == itemID {
		return shared.NewConflictError("Cannot remove the last line item; an invoice requires at least one")
	}

	for i := range inv.LineItems {
		if inv.LineItems[i].ID == itemID {
			inv.LineItems = append(inv.LineItems[:i], inv.LineItems[i+1:]...)
			inv.recomputeTotals()
			inv.UpdatedAt = time.Now()
			inv.IncrementVersion()
			return nil
		}
	}

	return shared.NewNotFoundError("Line item")
}

// SetDiscount updates the discount; permitted only in DRAFT
func (inv *Invoice) SetDiscount(discount decimal.Decimal) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if discount.IsNegative() {
		return shared.NewValidationError("Discount cannot be negative")
	}

	inv.Discount = discount
	inv.recomputeTotals()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// SetTax updates the tax; permitted only in DRAFT
func (inv *Invoice) SetTax(tax decimal.Decimal) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if tax.IsNegative() {
		return shared.NewValidationError("Tax cannot be negative")
	}

	inv.Tax = tax
	inv.recomputeTotals()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// SetNotes updates the free-form notes
func (inv *Invoice) SetNotes(notes string) {
	inv.Notes = strings.TrimSpace(notes)
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

// Send transitions DRAFT -> SENT and freezes the line items
func (inv *Invoice) Send() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot send invoice in %s status", inv.Status)
	}
	if inv.InvoiceNumber == "" {
		return shared.NewValidationError("Invoice number must be assigned before sending")
	}

	now := time.Now()
	inv.Status = InvoiceStatusSent
	inv.SentAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSentEvent(inv))

	return nil
}

// Reconcile rederives AmountPaid and Status from the authoritative payment
// sum. Invoked by the payment ledger after every apply/update/remove, always
// inside the transaction that mutated the payment set. Removing a payment
// may regress PAID through this same path; there is no special case.
func (inv *Invoice) Reconcile(paidTotal decimal.Decimal, now time.Time) error {
	if inv.Status == InvoiceStatusDraft {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot reconcile a DRAFT invoice")
	}
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot reconcile a CANCELLED invoice")
	}
	if paidTotal.IsNegative() {
		return shared.NewValidationError("Paid total cannot be negative")
	}
	if paidTotal.GreaterThan(inv.TotalAmount) {
		return shared.NewConflictError("Paid total %s exceeds invoice total %s", paidTotal.StringFixed(2), inv.TotalAmount.StringFixed(2))
	}

	previousStatus := inv.Status
	inv.AmountPaid = paidTotal
	inv.Status = DeriveStatus(inv.TotalAmount, paidTotal, inv.DueDate, now, inv.Status)

	if inv.Status == InvoiceStatusPaid && previousStatus != InvoiceStatusPaid {
		paidAt := now
		inv.PaidAt = &paidAt
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	}
	if inv.Status != InvoiceStatusPaid {
		inv.PaidAt = nil
	}

	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// MarkPendingInsurance flags the invoice as awaiting insurance adjudication.
// Reachable from SENT, PARTIALLY_PAID, and OVERDUE.
func (inv *Invoice) MarkPendingInsurance() error {
	switch inv.Status {
	case InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue, InvoiceStatusInsuranceDenied:
	default:
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot mark invoice in %s status as pending insurance", inv.Status)
	}

	inv.Status = InvoiceStatusPendingInsurance
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// MarkInsuranceDenied records a denied adjudication on the invoice
func (inv *Invoice) MarkInsuranceDenied() error {
	if inv.Status != InvoiceStatusPendingInsurance {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot mark invoice in %s status as insurance denied", inv.Status)
	}

	inv.Status = InvoiceStatusInsuranceDenied
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// Cancel cancels the invoice from any non-PAID state. Line items and
// payments are retained for audit.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status == InvoiceStatusPaid {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot cancel a PAID invoice")
	}
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Invoice is already cancelled")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("Cancel reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = strings.TrimSpace(reason)
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// EnsureDeletable returns a conflict when the invoice has payments; callers
// must cancel instead to preserve the audit history.
func (inv *Invoice) EnsureDeletable(paymentCount int64) error {
	if paymentCount > 0 {
		return shared.NewConflictError("Invoice has %d payment(s); cancel it instead of deleting", paymentCount)
	}
	return nil
}

// FindLineItem returns the owned line item with the given ID
func (inv *Invoice) FindLineItem(itemID uuid.UUID) (*InvoiceLineItem, bool) {
	for i := range inv.LineItems {
		if inv.LineItems[i].ID == itemID {
			return &inv.LineItems[i], true
		}
	}
	return nil, false
}

// InsurableLineItems returns the items flagged for insurance billing
func (inv *Invoice) InsurableLineItems() []InvoiceLineItem {
	items := make([]InvoiceLineItem, 0, len(inv.LineItems))
	for i := range inv.LineItems {
		if inv.LineItems[i].BillToInsurance {
			items = append(items, inv.LineItems[i])
		}
	}
	return items
}

// OutstandingAmount returns TotalAmount minus AmountPaid
func (inv *Invoice) OutstandingAmount() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.AmountPaid)
}

// GetTotalAmountMoney returns the total as Money
func (inv *Invoice) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(inv.TotalAmount)
}

// GetAmountPaidMoney returns the paid amount as Money
func (inv *Invoice) GetAmountPaidMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(inv.AmountPaid)
}

// IsDraft returns true if the invoice is in DRAFT
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice is cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// IsOverdue returns true if the invoice is past due and not settled
func (inv *Invoice) IsOverdue() bool {
	if inv.Status.IsTerminal() || inv.Status == InvoiceStatusDraft {
		return false
	}
	return time.Now().After(inv.DueDate)
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (inv *Invoice) DaysOverdue() int {
	if !inv.IsOverdue() {
		return 0
	}
	return int(time.Since(inv.DueDate).Hours() / 24)
}
