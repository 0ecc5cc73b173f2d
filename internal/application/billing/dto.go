package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// LineItemRequest describes one invoice line item. Rate is optional; when
// omitted the service code's current default rate is copied in.
type LineItemRequest struct {
	ServiceCodeID   uuid.UUID        `json:"service_code_id" binding:"required"`
	Description     string           `json:"description"`
	Quantity        decimal.Decimal  `json:"quantity" binding:"required"`
	Rate            *decimal.Decimal `json:"rate"`
	DateOfService   time.Time        `json:"date_of_service" binding:"required"`
	BillToInsurance bool             `json:"bill_to_insurance"`
}

// CreateInvoiceRequest creates a DRAFT invoice with its line items
type CreateInvoiceRequest struct {
	ClientID          uuid.UUID         `json:"client_id" binding:"required"`
	IssueDate         time.Time         `json:"issue_date"`
	DueDate           time.Time         `json:"due_date" binding:"required"`
	LineItems         []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
	Tax               decimal.Decimal   `json:"tax"`
	Discount          decimal.Decimal   `json:"discount"`
	FundingProviderID *uuid.UUID        `json:"funding_provider_id"`
	FundingProgramID  *uuid.UUID        `json:"funding_program_id"`
	Notes             string            `json:"notes"`
}

// UpdateInvoiceRequest updates the mutable header fields of a DRAFT invoice.
// Nil pointers leave the current value unchanged.
type UpdateInvoiceRequest struct {
	Tax      *decimal.Decimal `json:"tax"`
	Discount *decimal.Decimal `json:"discount"`
	Notes    *string          `json:"notes"`
}

// UpdateLineItemRequest edits one owned line item of a DRAFT invoice
type UpdateLineItemRequest struct {
	Description     string          `json:"description" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	Rate            decimal.Decimal `json:"rate" binding:"required"`
	DateOfService   time.Time       `json:"date_of_service"`
	BillToInsurance bool            `json:"bill_to_insurance"`
}

// CancelInvoiceRequest cancels an invoice with a reason
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// SendInvoiceRequest transitions an invoice to SENT. When NotifyClient is
// set, a notification request is recorded after the transition commits.
type SendInvoiceRequest struct {
	NotifyClient bool `json:"notify_client"`
}

// InvoiceListFilter defines the query parameters for listing invoices
type InvoiceListFilter struct {
	ClientID          *uuid.UUID             `form:"client_id"`
	Status            *billing.InvoiceStatus `form:"status"`
	FundingProviderID *uuid.UUID             `form:"funding_provider_id"`
	FundingProgramID  *uuid.UUID             `form:"funding_program_id"`
	IssuedFrom        *time.Time             `form:"issued_from" time_format:"2006-01-02"`
	IssuedTo          *time.Time             `form:"issued_to" time_format:"2006-01-02"`
	DueFrom           *time.Time             `form:"due_from" time_format:"2006-01-02"`
	DueTo             *time.Time             `form:"due_to" time_format:"2006-01-02"`
	Overdue           *bool                  `form:"overdue"`
	Search            string                 `form:"search"`
	Page              int                    `form:"page"`
	PageSize          int                    `form:"page_size"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	ServiceCodeID   uuid.UUID       `json:"service_code_id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	Rate            decimal.Decimal `json:"rate"`
	Amount          decimal.Decimal `json:"amount"`
	DateOfService   time.Time       `json:"date_of_service"`
	BillToInsurance bool            `json:"bill_to_insurance"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                uuid.UUID          `json:"id"`
	InvoiceNumber     string             `json:"invoice_number"`
	ClientID          uuid.UUID          `json:"client_id"`
	IssueDate         time.Time          `json:"issue_date"`
	DueDate           time.Time          `json:"due_date"`
	Status            string             `json:"status"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	Tax               decimal.Decimal    `json:"tax"`
	Discount          decimal.Decimal    `json:"discount"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	AmountPaid        decimal.Decimal    `json:"amount_paid"`
	Outstanding       decimal.Decimal    `json:"outstanding"`
	FundingProviderID *uuid.UUID         `json:"funding_provider_id,omitempty"`
	FundingProgramID  *uuid.UUID         `json:"funding_program_id,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	LineItems         []LineItemResponse `json:"line_items"`
	SentAt            *time.Time         `json:"sent_at,omitempty"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason      string             `json:"cancel_reason,omitempty"`
	Version           int                `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// ToInvoiceResponse converts a domain invoice to its response representation
func ToInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	items := make([]LineItemResponse, 0, len(inv.LineItems))
	for i := range inv.LineItems {
		li := inv.LineItems[i]
		items = append(items, LineItemResponse{
			ID:              li.ID,
			ServiceCodeID:   li.ServiceCodeID,
			Description:     li.Description,
			Quantity:        li.Quantity,
			Rate:            li.Rate,
			Amount:          li.Amount,
			DateOfService:   li.DateOfService,
			BillToInsurance: li.BillToInsurance,
		})
	}

	return &InvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		ClientID:          inv.ClientID,
		IssueDate:         inv.IssueDate,
		DueDate:           inv.DueDate,
		Status:            inv.Status.String(),
		Subtotal:          inv.Subtotal,
		Tax:               inv.Tax,
		Discount:          inv.Discount,
		TotalAmount:       inv.TotalAmount,
		AmountPaid:        inv.AmountPaid,
		Outstanding:       inv.OutstandingAmount(),
		FundingProviderID: inv.FundingProviderID,
		FundingProgramID:  inv.FundingProgramID,
		Notes:             inv.Notes,
		LineItems:         items,
		SentAt:            inv.SentAt,
		PaidAt:            inv.PaidAt,
		CancelledAt:       inv.CancelledAt,
		CancelReason:      inv.CancelReason,
		Version:           inv.Version,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

// ApplyPaymentRequest applies a payment to an invoice
type ApplyPaymentRequest struct {
	Amount          decimal.Decimal       `json:"amount" binding:"required"`
	Date            time.Time             `json:"date"`
	Method          billing.PaymentMethod `json:"method" binding:"required"`
	ReferenceNumber string                `json:"reference_number"`
}

// UpdatePaymentRequest corrects a recorded payment. A nil amount leaves the
// amount unchanged.
type UpdatePaymentRequest struct {
	Amount          *decimal.Decimal       `json:"amount"`
	Date            *time.Time             `json:"date"`
	Method          *billing.PaymentMethod `json:"method"`
	ReferenceNumber *string                `json:"reference_number"`
}

// PaymentListFilter defines the query parameters for listing payments
type PaymentListFilter struct {
	InvoiceID *uuid.UUID             `form:"invoice_id"`
	Method    *billing.PaymentMethod `form:"method"`
	ClaimID   *uuid.UUID             `form:"claim_id"`
	From      *time.Time             `form:"from" time_format:"2006-01-02"`
	To        *time.Time             `form:"to" time_format:"2006-01-02"`
	Page      int                    `form:"page"`
	PageSize  int                    `form:"page_size"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                      uuid.UUID       `json:"id"`
	InvoiceID               uuid.UUID       `json:"invoice_id"`
	Amount                  decimal.Decimal `json:"amount"`
	Date                    time.Time       `json:"date"`
	Method                  string          `json:"method"`
	ReferenceNumber         string          `json:"reference_number,omitempty"`
	InsuranceClaimID        *uuid.UUID      `json:"insurance_claim_id,omitempty"`
	FundingProgramReference string          `json:"funding_program_reference,omitempty"`
	ReceivedBy              *uuid.UUID      `json:"received_by,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// PaymentResult pairs the mutated payment with the reconciled invoice so
// callers see the ledger effect of the operation in one response.
type PaymentResult struct {
	Payment *PaymentResponse `json:"payment,omitempty"`
	Invoice *InvoiceResponse `json:"invoice"`
}

// ToPaymentResponse converts a domain payment to its response representation
func ToPaymentResponse(p *billing.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                      p.ID,
		InvoiceID:               p.InvoiceID,
		Amount:                  p.Amount,
		Date:                    p.Date,
		Method:                  p.Method.String(),
		ReferenceNumber:         p.ReferenceNumber,
		InsuranceClaimID:        p.InsuranceClaimID,
		FundingProgramReference: p.FundingProgramReference,
		ReceivedBy:              p.ReceivedBy,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}

// CreateClaimRequest files a claim against insurance-eligible line items
type CreateClaimRequest struct {
	InvoiceID           uuid.UUID        `json:"invoice_id" binding:"required"`
	InsuranceProviderID uuid.UUID        `json:"insurance_provider_id" binding:"required"`
	PolicyNumber        string           `json:"policy_number" binding:"required"`
	BeneficiaryName     string           `json:"beneficiary_name" binding:"required"`
	LineItemIDs         []uuid.UUID      `json:"line_item_ids" binding:"required,min=1"`
	ClaimedAmount       *decimal.Decimal `json:"claimed_amount"`
	AutoGeneratePayment bool             `json:"auto_generate_payment"`
}

// UpdateClaimLineItemsRequest replaces the line-item set of a DRAFT claim
type UpdateClaimLineItemsRequest struct {
	LineItemIDs []uuid.UUID `json:"line_item_ids" binding:"required,min=1"`
}

// RecordClaimResponseRequest records the funding source's adjudication
type RecordClaimResponseRequest struct {
	Status         billing.ClaimStatus `json:"status" binding:"required"`
	ApprovedAmount decimal.Decimal     `json:"approved_amount"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	ResponseDate   time.Time           `json:"response_date"`
}

// AppealClaimRequest contests a denial or partial approval
type AppealClaimRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ClaimListFilter defines the query parameters for listing claims
type ClaimListFilter struct {
	InvoiceID  *uuid.UUID           `form:"invoice_id"`
	ProviderID *uuid.UUID           `form:"provider_id"`
	Status     *billing.ClaimStatus `form:"status"`
	From       *time.Time           `form:"from" time_format:"2006-01-02"`
	To         *time.Time           `form:"to" time_format:"2006-01-02"`
	Page       int                  `form:"page"`
	PageSize   int                  `form:"page_size"`
}

// ClaimResponse represents an insurance claim in API responses
type ClaimResponse struct {
	ID                  uuid.UUID       `json:"id"`
	InvoiceID           uuid.UUID       `json:"invoice_id"`
	InsuranceProviderID uuid.UUID       `json:"insurance_provider_id"`
	PolicyNumber        string          `json:"policy_number"`
	BeneficiaryName     string          `json:"beneficiary_name"`
	Status              string          `json:"status"`
	ClaimedAmount       decimal.Decimal `json:"claimed_amount"`
	ApprovedAmount      decimal.Decimal `json:"approved_amount"`
	PaidAmount          decimal.Decimal `json:"paid_amount"`
	SubmissionDate      *time.Time      `json:"submission_date,omitempty"`
	ResponseDate        *time.Time      `json:"response_date,omitempty"`
	LineItemIDs         []uuid.UUID     `json:"line_item_ids"`
	AutoGeneratePayment bool            `json:"auto_generate_payment"`
	AppealReason        string          `json:"appeal_reason,omitempty"`
	ClosedAt            *time.Time      `json:"closed_at,omitempty"`
	Version             int             `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ClaimResult pairs the mutated claim with the invoice and, when the
// adjudication auto-generated a payment, that payment.
type ClaimResult struct {
	Claim            *ClaimResponse   `json:"claim"`
	Invoice          *InvoiceResponse `json:"invoice,omitempty"`
	GeneratedPayment *PaymentResponse `json:"generated_payment,omitempty"`
}

// ToClaimResponse converts a domain claim to its response representation
func ToClaimResponse(c *billing.InsuranceClaim) *ClaimResponse {
	return &ClaimResponse{
		ID:                  c.ID,
		InvoiceID:           c.InvoiceID,
		InsuranceProviderID: c.InsuranceProviderID,
		PolicyNumber:        c.PolicyNumber,
		BeneficiaryName:     c.BeneficiaryName,
		Status:              c.Status.String(),
		ClaimedAmount:       c.ClaimedAmount,
		ApprovedAmount:      c.ApprovedAmount,
		PaidAmount:          c.PaidAmount,
		SubmissionDate:      c.SubmissionDate,
		ResponseDate:        c.ResponseDate,
		LineItemIDs:         c.LineItemIDs,
		AutoGeneratePayment: c.AutoGeneratePayment,
		AppealReason:        c.AppealReason,
		ClosedAt:            c.ClosedAt,
		Version:             c.Version,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}
