package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was received
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "CARD"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash           PaymentMethod = "CASH"
	PaymentMethodCheck          PaymentMethod = "CHECK"
	PaymentMethodInsurance      PaymentMethod = "INSURANCE"
	PaymentMethodFundingProgram PaymentMethod = "FUNDING_PROGRAM"
	PaymentMethodOther          PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCash,
		PaymentMethodCheck, PaymentMethodInsurance, PaymentMethodFundingProgram,
		PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment records money received against an invoice. The engine only
// records the payment fact; card/ACH processing happens externally.
// Amount and invoice association change only through the explicit
// update-and-recompute path, never silently.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID               uuid.UUID       `json:"invoice_id"`
	Amount                  decimal.Decimal `json:"amount"`
	Date                    time.Time       `json:"date"`
	Method                  PaymentMethod   `json:"method"`
	ReferenceNumber         string          `json:"reference_number"`
	InsuranceClaimID        *uuid.UUID      `json:"insurance_claim_id"`
	FundingProgramReference string          `json:"funding_program_reference"`
	ReceivedBy              *uuid.UUID      `json:"received_by"`
}

// NewPayment creates a payment record against an invoice
func NewPayment(
	invoiceID uuid.UUID,
	amount valueobject.Money,
	date time.Time,
	method PaymentMethod,
	referenceNumber string,
	receivedBy uuid.UUID,
) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewValidationError("Invoice ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("Payment method is not valid")
	}
	if date.IsZero() {
		date = time.Now()
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoiceID,
		Amount:            amount.Amount(),
		Date:              date,
		Method:            method,
		ReferenceNumber:   strings.TrimSpace(referenceNumber),
	}
	if receivedBy != uuid.Nil {
		p.ReceivedBy = &receivedBy
	}

	p.AddDomainEvent(NewPaymentAppliedEvent(p))

	return p, nil
}

// LinkInsuranceClaim back-references the claim whose adjudication produced
// this payment. Not ownership; the claim remains a dependent record.
func (p *Payment) LinkInsuranceClaim(claimID uuid.UUID) error {
	if claimID == uuid.Nil {
		return shared.NewValidationError("Claim ID cannot be empty")
	}
	p.InsuranceClaimID = &claimID
	return nil
}

// SetFundingProgramReference records an external funding program reference
func (p *Payment) SetFundingProgramReference(ref string) {
	p.FundingProgramReference = strings.TrimSpace(ref)
}

// UpdateAmount changes the payment amount. The service layer re-validates
// the overpayment constraint against the other payments on the invoice
// before calling this.
func (p *Payment) UpdateAmount(amount valueobject.Money) error {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Payment amount must be positive")
	}

	p.Amount = amount.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// UpdateDetails changes the non-monetary payment fields
func (p *Payment) UpdateDetails(date time.Time, method PaymentMethod, referenceNumber string) error {
	if !method.IsValid() {
		return shared.NewValidationError("Payment method is not valid")
	}

	if !date.IsZero() {
		p.Date = date
	}
	p.Method = method
	p.ReferenceNumber = strings.TrimSpace(referenceNumber)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Amount)
}

// IsInsurancePayment returns true if the payment came from a claim adjudication
func (p *Payment) IsInsurancePayment() bool {
	return p.Method == PaymentMethodInsurance
}
