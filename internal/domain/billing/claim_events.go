package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ClaimCreatedEvent is raised when a new insurance claim is created
type ClaimCreatedEvent struct {
	shared.BaseDomainEvent
	ClaimID       uuid.UUID       `json:"claim_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	ProviderID    uuid.UUID       `json:"provider_id"`
	ClaimedAmount decimal.Decimal `json:"claimed_amount"`
	LineItemCount int             `json:"line_item_count"`
}

// EventType returns the event type name
func (e *ClaimCreatedEvent) EventType() string {
	return "ClaimCreated"
}

// NewClaimCreatedEvent creates a new ClaimCreatedEvent
func NewClaimCreatedEvent(c *InsuranceClaim) *ClaimCreatedEvent {
	return &ClaimCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ClaimCreated", "InsuranceClaim", c.ID),
		ClaimID:         c.ID,
		InvoiceID:       c.InvoiceID,
		ProviderID:      c.InsuranceProviderID,
		ClaimedAmount:   c.ClaimedAmount,
		LineItemCount:   len(c.LineItemIDs),
	}
}

// ClaimSubmittedEvent is raised when a claim is submitted to the funding source
type ClaimSubmittedEvent struct {
	shared.BaseDomainEvent
	ClaimID        uuid.UUID       `json:"claim_id"`
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	ProviderID     uuid.UUID       `json:"provider_id"`
	ClaimedAmount  decimal.Decimal `json:"claimed_amount"`
	SubmissionDate time.Time       `json:"submission_date"`
}

// EventType returns the event type name
func (e *ClaimSubmittedEvent) EventType() string {
	return "ClaimSubmitted"
}

// NewClaimSubmittedEvent creates a new ClaimSubmittedEvent
func NewClaimSubmittedEvent(c *InsuranceClaim) *ClaimSubmittedEvent {
	submittedAt := time.Now()
	if c.SubmissionDate != nil {
		submittedAt = *c.SubmissionDate
	}
	return &ClaimSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ClaimSubmitted", "InsuranceClaim", c.ID),
		ClaimID:         c.ID,
		InvoiceID:       c.InvoiceID,
		ProviderID:      c.InsuranceProviderID,
		ClaimedAmount:   c.ClaimedAmount,
		SubmissionDate:  submittedAt,
	}
}

// ClaimAdjudicatedEvent is raised whenever an adjudication response is recorded
type ClaimAdjudicatedEvent struct {
	shared.BaseDomainEvent
	ClaimID        uuid.UUID       `json:"claim_id"`
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	ProviderID     uuid.UUID       `json:"provider_id"`
	Status         ClaimStatus     `json:"status"`
	ApprovedAmount decimal.Decimal `json:"approved_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
}

// EventType returns the event type name
func (e *ClaimAdjudicatedEvent) EventType() string {
	return "ClaimAdjudicated"
}

// NewClaimAdjudicatedEvent creates a new ClaimAdjudicatedEvent
func NewClaimAdjudicatedEvent(c *InsuranceClaim) *ClaimAdjudicatedEvent {
	return &ClaimAdjudicatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ClaimAdjudicated", "InsuranceClaim", c.ID),
		ClaimID:         c.ID,
		InvoiceID:       c.InvoiceID,
		ProviderID:      c.InsuranceProviderID,
		Status:          c.Status,
		ApprovedAmount:  c.ApprovedAmount,
		PaidAmount:      c.PaidAmount,
	}
}

// ClaimPaidEvent signals that a paid adjudication needs a matching ledger
// entry. It is consumed synchronously inside the transaction that recorded
// the response, producing exactly one insurance payment with the claim
// back-reference.
type ClaimPaidEvent struct {
	shared.BaseDomainEvent
	ClaimID   uuid.UUID       `json:"claim_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *ClaimPaidEvent) EventType() string {
	return "ClaimPaid"
}

// NewClaimPaidEvent creates a new ClaimPaidEvent
func NewClaimPaidEvent(c *InsuranceClaim) *ClaimPaidEvent {
	return &ClaimPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ClaimPaid", "InsuranceClaim", c.ID),
		ClaimID:         c.ID,
		InvoiceID:       c.InvoiceID,
		Amount:          c.PaidAmount,
	}
}
