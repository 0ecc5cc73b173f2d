package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ClaimStatus represents the adjudication status of an insurance claim
type ClaimStatus string

const (
	ClaimStatusDraft             ClaimStatus = "DRAFT"
	ClaimStatusSubmitted         ClaimStatus = "SUBMITTED"
	ClaimStatusInReview          ClaimStatus = "IN_REVIEW"
	ClaimStatusApproved          ClaimStatus = "APPROVED"
	ClaimStatusPartiallyApproved ClaimStatus = "PARTIALLY_APPROVED"
	ClaimStatusDenied            ClaimStatus = "DENIED"
	ClaimStatusAppealed          ClaimStatus = "APPEALED"
	ClaimStatusPaid              ClaimStatus = "PAID"
	ClaimStatusClosed            ClaimStatus = "CLOSED"
)

// IsValid checks if the status is a valid ClaimStatus
func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusDraft, ClaimStatusSubmitted, ClaimStatusInReview,
		ClaimStatusApproved, ClaimStatusPartiallyApproved, ClaimStatusDenied,
		ClaimStatusAppealed, ClaimStatusPaid, ClaimStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of ClaimStatus
func (s ClaimStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusPaid || s == ClaimStatusClosed
}

// CanRecordResponse returns true if an adjudication response may be
// recorded in this status. APPROVED and PARTIALLY_APPROVED still accept
// a response because the funds arriving later is itself recorded as a
// PAID response.
func (s ClaimStatus) CanRecordResponse() bool {
	switch s {
	case ClaimStatusSubmitted, ClaimStatusInReview, ClaimStatusAppealed,
		ClaimStatusApproved, ClaimStatusPartiallyApproved:
		return true
	}
	return false
}

// isAdjudicationOutcome reports whether a status is a valid result of
// recording a funding source's response
func (s ClaimStatus) isAdjudicationOutcome() bool {
	switch s {
	case ClaimStatusApproved, ClaimStatusPartiallyApproved, ClaimStatusDenied, ClaimStatusPaid:
		return true
	}
	return false
}

// InsuranceClaim tracks a claim filed with a funding source against an
// invoice (or a subset of its line items). The claim does not own the
// invoice; its resolution may trigger creation of a Payment through the
// ClaimPaid domain event.
type InsuranceClaim struct {
	shared.AuditedAggregateRoot
	InvoiceID           uuid.UUID       `json:"invoice_id"`
	InsuranceProviderID uuid.UUID       `json:"insurance_provider_id"`
	PolicyNumber        string          `json:"policy_number"`
	BeneficiaryName     string          `json:"beneficiary_name"`
	Status              ClaimStatus     `json:"status"`
	ClaimedAmount       decimal.Decimal `json:"claimed_amount"`
	ApprovedAmount      decimal.Decimal `json:"approved_amount"`
	PaidAmount          decimal.Decimal `json:"paid_amount"`
	SubmissionDate      *time.Time      `json:"submission_date"`
	ResponseDate        *time.Time      `json:"response_date"`
	LineItemIDs         []uuid.UUID     `json:"line_item_ids" gorm:"-"`
	AutoGeneratePayment bool            `json:"auto_generate_payment"`
	AppealReason        string          `json:"appeal_reason"`
	ClosedAt            *time.Time      `json:"closed_at"`
}

// NewInsuranceClaim creates a claim over a set of insurance-eligible line
// items of an invoice. ClaimedAmount defaults to the sum of the referenced
// items when no explicit amount is given.
func NewInsuranceClaim(
	invoice *Invoice,
	providerID uuid.UUID,
	policyNumber string,
	beneficiaryName string,
	lineItemIDs []uuid.UUID,
	claimedAmount *decimal.Decimal,
	autoGeneratePayment bool,
	createdBy uuid.UUID,
) (*InsuranceClaim, error) {
	policyNumber = strings.TrimSpace(policyNumber)
	beneficiaryName = strings.TrimSpace(beneficiaryName)

	if invoice == nil {
		return nil, shared.NewValidationError("Invoice is required")
	}
	if providerID == uuid.Nil {
		return nil, shared.NewValidationError("Insurance provider ID cannot be empty")
	}
	if policyNumber == "" {
		return nil, shared.NewValidationError("Policy number cannot be empty")
	}
	if beneficiaryName == "" {
		return nil, shared.NewValidationError("Beneficiary name cannot be empty")
	}
	if len(lineItemIDs) == 0 {
		return nil, shared.NewValidationError("Claim requires at least one line item")
	}

	// Every referenced item must belong to the invoice and be flagged
	// billToInsurance.
	itemSum := decimal.Zero
	seen := make(map[uuid.UUID]bool, len(lineItemIDs))
	for _, itemID := range lineItemIDs {
		if seen[itemID] {
			return nil, shared.NewValidationError("Duplicate line item reference in claim")
		}
		seen[itemID] = true

		item, ok := invoice.FindLineItem(itemID)
		if !ok {
			return nil, shared.NewNotFoundError("Line item")
		}
		if !item.BillToInsurance {
			return nil, shared.NewConflictError("Line item %q is not flagged for insurance billing", item.Description)
		}
		itemSum = itemSum.Add(item.Amount)
	}

	claimed := itemSum
	if claimedAmount != nil {
		if claimedAmount.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewValidationError("Claimed amount must be positive")
		}
		claimed = *claimedAmount
	}

	c := &InsuranceClaim{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		InvoiceID:            invoice.ID,
		InsuranceProviderID:  providerID,
		PolicyNumber:         policyNumber,
		BeneficiaryName:      beneficiaryName,
		Status:               ClaimStatusDraft,
		ClaimedAmount:        claimed,
		ApprovedAmount:       decimal.Zero,
		PaidAmount:           decimal.Zero,
		LineItemIDs:          append([]uuid.UUID(nil), lineItemIDs...),
		AutoGeneratePayment:  autoGeneratePayment,
	}

	c.AddDomainEvent(NewClaimCreatedEvent(c))

	return c, nil
}

// UpdateLineItems replaces the claimed line-item set; permitted only in
// DRAFT (membership is frozen at submission to preserve an auditable
// claim snapshot).
func (c *InsuranceClaim) UpdateLineItems(invoice *Invoice, lineItemIDs []uuid.UUID) error {
	if c.Status != ClaimStatusDraft {
		return shared.NewConflictError("Claim line items are frozen after submission, current status is %s", c.Status)
	}
	if invoice == nil || invoice.ID != c.InvoiceID {
		return shared.NewValidationError("Line items must belong to the claimed invoice")
	}
	if len(lineItemIDs) == 0 {
		return shared.NewValidationError("Claim requires at least one line item")
	}

	itemSum := decimal.Zero
	for _, itemID := range lineItemIDs {
		item, ok := invoice.FindLineItem(itemID)
		if !ok {
			return shared.NewNotFoundError("Line item")
		}
		if !item.BillToInsurance {
			return shared.NewConflictError("Line item %q is not flagged for insurance billing", item.Description)
		}
		itemSum = itemSum.Add(item.Amount)
	}

	c.LineItemIDs = append([]uuid.UUID(nil), lineItemIDs...)
	c.ClaimedAmount = itemSum
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// Submit transitions DRAFT -> SUBMITTED and freezes line-item membership
func (c *InsuranceClaim) Submit() error {
	if c.Status != ClaimStatusDraft {
		return shared.NewConflictError("Claim has already been submitted, current status is %s", c.Status)
	}

	now := time.Now()
	c.Status = ClaimStatusSubmitted
	c.SubmissionDate = &now
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewClaimSubmittedEvent(c))

	return nil
}

// BeginReview transitions SUBMITTED/APPEALED -> IN_REVIEW
func (c *InsuranceClaim) BeginReview() error {
	if c.Status != ClaimStatusSubmitted && c.Status != ClaimStatusAppealed {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot begin review for claim in %s status", c.Status)
	}

	c.Status = ClaimStatusInReview
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// RecordResponse records the funding source's adjudication. Valid from
// SUBMITTED, IN_REVIEW, or APPEALED; an APPROVED or PARTIALLY_APPROVED
// claim additionally accepts a PAID response when the funds arrive, with
// the approved amount defaulting to the one already on record. When the
// outcome is PAID and the claim was created with AutoGeneratePayment, a
// ClaimPaid event is raised; the service layer consumes it synchronously
// inside the same transaction to create the corresponding insurance
// payment, so a claim is never PAID without its ledger entry.
func (c *InsuranceClaim) RecordResponse(status ClaimStatus, approvedAmount, paidAmount decimal.Decimal, responseDate time.Time) error {
	if !c.Status.CanRecordResponse() {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot record a response for claim in %s status", c.Status)
	}
	settling := c.Status == ClaimStatusApproved || c.Status == ClaimStatusPartiallyApproved
	if settling && status != ClaimStatusPaid {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Claim in %s status can only be settled as PAID", c.Status)
	}
	if !status.isAdjudicationOutcome() {
		return shared.NewValidationError("Response status must be APPROVED, PARTIALLY_APPROVED, DENIED, or PAID")
	}
	if approvedAmount.IsNegative() || paidAmount.IsNegative() {
		return shared.NewValidationError("Approved and paid amounts cannot be negative")
	}
	if settling && approvedAmount.IsZero() {
		approvedAmount = c.ApprovedAmount
	}
	if paidAmount.GreaterThan(approvedAmount) && status != ClaimStatusDenied {
		return shared.NewValidationError("Paid amount cannot exceed approved amount")
	}
	if status == ClaimStatusPaid && paidAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("A PAID response requires a positive paid amount")
	}
	if responseDate.IsZero() {
		responseDate = time.Now()
	}

	c.Status = status
	c.ApprovedAmount = approvedAmount
	c.PaidAmount = paidAmount
	c.ResponseDate = &responseDate
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewClaimAdjudicatedEvent(c))
	if status == ClaimStatusPaid && c.AutoGeneratePayment {
		c.AddDomainEvent(NewClaimPaidEvent(c))
	}

	return nil
}

// Appeal contests a DENIED or PARTIALLY_APPROVED adjudication; the claim
// returns to review via BeginReview
func (c *InsuranceClaim) Appeal(reason string) error {
	if c.Status != ClaimStatusDenied && c.Status != ClaimStatusPartiallyApproved {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot appeal claim in %s status", c.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("Appeal reason is required")
	}

	c.Status = ClaimStatusAppealed
	c.AppealReason = strings.TrimSpace(reason)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// Close ends the claim without further payment
func (c *InsuranceClaim) Close() error {
	switch c.Status {
	case ClaimStatusApproved, ClaimStatusPartiallyApproved, ClaimStatusDenied, ClaimStatusPaid:
	default:
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot close claim in %s status", c.Status)
	}

	now := time.Now()
	c.Status = ClaimStatusClosed
	c.ClosedAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()

	return nil
}

// EnsureDeletable returns a conflict unless the claim is still DRAFT
func (c *InsuranceClaim) EnsureDeletable() error {
	if c.Status != ClaimStatusDraft {
		return shared.NewConflictError("Only DRAFT claims can be deleted, current status is %s", c.Status)
	}
	return nil
}

// GetClaimedAmountMoney returns the claimed amount as Money
func (c *InsuranceClaim) GetClaimedAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(c.ClaimedAmount)
}

// GetPaidAmountMoney returns the paid amount as Money
func (c *InsuranceClaim) GetPaidAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(c.PaidAmount)
}

// IsDraft returns true while the claim has not been submitted
func (c *InsuranceClaim) IsDraft() bool {
	return c.Status == ClaimStatusDraft
}
