package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AuditedAggregateModel
	InvoiceNumber     string                 `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoices_number"`
	ClientID          uuid.UUID              `gorm:"type:uuid;not null;index"`
	IssueDate         time.Time              `gorm:"not null;index"`
	DueDate           time.Time              `gorm:"not null;index"`
	Status            billing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Subtotal          decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	Tax               decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	Discount          decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount       decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	AmountPaid        decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	FundingProviderID *uuid.UUID             `gorm:"type:uuid;index"`
	FundingProgramID  *uuid.UUID             `gorm:"type:uuid;index"`
	Notes             string                 `gorm:"type:text"`
	LineItems         []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
	SentAt            *time.Time
	PaidAt            *time.Time
	CancelledAt       *time.Time
	CancelReason      string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		InvoiceNumber:        m.InvoiceNumber,
		ClientID:             m.ClientID,
		IssueDate:            m.IssueDate,
		DueDate:              m.DueDate,
		Status:               m.Status,
		Subtotal:             m.Subtotal,
		Tax:                  m.Tax,
		Discount:             m.Discount,
		TotalAmount:          m.TotalAmount,
		AmountPaid:           m.AmountPaid,
		FundingProviderID:    m.FundingProviderID,
		FundingProgramID:     m.FundingProgramID,
		Notes:                m.Notes,
		SentAt:               m.SentAt,
		PaidAt:               m.PaidAt,
		CancelledAt:          m.CancelledAt,
		CancelReason:         m.CancelReason,
		LineItems:            make([]billing.InvoiceLineItem, len(m.LineItems)),
	}
	for i, item := range m.LineItems {
		inv.LineItems[i] = *item.ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAuditedAggregateRoot(inv.AuditedAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.ClientID = inv.ClientID
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Status = inv.Status
	m.Subtotal = inv.Subtotal
	m.Tax = inv.Tax
	m.Discount = inv.Discount
	m.TotalAmount = inv.TotalAmount
	m.AmountPaid = inv.AmountPaid
	m.FundingProviderID = inv.FundingProviderID
	m.FundingProgramID = inv.FundingProgramID
	m.Notes = inv.Notes
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
	m.LineItems = make([]InvoiceLineItemModel, len(inv.LineItems))
	for i, item := range inv.LineItems {
		m.LineItems[i] = *InvoiceLineItemModelFromDomain(&item)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineItemModel is the persistence model for the InvoiceLineItem entity.
type InvoiceLineItemModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ServiceCodeID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description     string          `gorm:"type:varchar(255);not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Rate            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DateOfService   time.Time       `gorm:"not null"`
	BillToInsurance bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain InvoiceLineItem entity.
func (m *InvoiceLineItemModel) ToDomain() *billing.InvoiceLineItem {
	return &billing.InvoiceLineItem{
		ID:              m.ID,
		InvoiceID:       m.InvoiceID,
		ServiceCodeID:   m.ServiceCodeID,
		Description:     m.Description,
		Quantity:        m.Quantity,
		Rate:            m.Rate,
		Amount:          m.Amount,
		DateOfService:   m.DateOfService,
		BillToInsurance: m.BillToInsurance,
	}
}

// FromDomain populates the persistence model from a domain InvoiceLineItem entity.
func (m *InvoiceLineItemModel) FromDomain(li *billing.InvoiceLineItem) {
	m.ID = li.ID
	m.InvoiceID = li.InvoiceID
	m.ServiceCodeID = li.ServiceCodeID
	m.Description = li.Description
	m.Quantity = li.Quantity
	m.Rate = li.Rate
	m.Amount = li.Amount
	m.DateOfService = li.DateOfService
	m.BillToInsurance = li.BillToInsurance
}

// InvoiceLineItemModelFromDomain creates a new persistence model from a domain InvoiceLineItem entity.
func InvoiceLineItemModelFromDomain(li *billing.InvoiceLineItem) *InvoiceLineItemModel {
	m := &InvoiceLineItemModel{}
	m.FromDomain(li)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	AggregateModel
	InvoiceID               uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount                  decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Date                    time.Time             `gorm:"not null;index"`
	Method                  billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	ReferenceNumber         string                `gorm:"type:varchar(100)"`
	InsuranceClaimID        *uuid.UUID            `gorm:"type:uuid;index"`
	FundingProgramReference string                `gorm:"type:varchar(100)"`
	ReceivedBy              *uuid.UUID            `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseAggregateRoot:       m.ToDomainAggregateRoot(),
		InvoiceID:               m.InvoiceID,
		Amount:                  m.Amount,
		Date:                    m.Date,
		Method:                  m.Method,
		ReferenceNumber:         m.ReferenceNumber,
		InsuranceClaimID:        m.InsuranceClaimID,
		FundingProgramReference: m.FundingProgramReference,
		ReceivedBy:              m.ReceivedBy,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.Date = p.Date
	m.Method = p.Method
	m.ReferenceNumber = p.ReferenceNumber
	m.InsuranceClaimID = p.InsuranceClaimID
	m.FundingProgramReference = p.FundingProgramReference
	m.ReceivedBy = p.ReceivedBy
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// InsuranceClaimModel is the persistence model for the InsuranceClaim
// aggregate root. Line-item references are stored in a join table because
// the referenced items belong to the Invoice aggregate, not the claim.
type InsuranceClaimModel struct {
	AuditedAggregateModel
	InvoiceID           uuid.UUID            `gorm:"type:uuid;not null;index"`
	InsuranceProviderID uuid.UUID            `gorm:"type:uuid;not null;index"`
	PolicyNumber        string               `gorm:"type:varchar(100);not null"`
	BeneficiaryName     string               `gorm:"type:varchar(200);not null"`
	Status              billing.ClaimStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ClaimedAmount       decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ApprovedAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAmount          decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	SubmissionDate      *time.Time           `gorm:"index"`
	ResponseDate        *time.Time
	LineItems           []ClaimLineItemModel `gorm:"foreignKey:ClaimID;references:ID"`
	AutoGeneratePayment bool                 `gorm:"not null;default:false"`
	AppealReason        string               `gorm:"type:varchar(500)"`
	ClosedAt            *time.Time
}

// TableName returns the table name for GORM
func (InsuranceClaimModel) TableName() string {
	return "insurance_claims"
}

// ToDomain converts the persistence model to a domain InsuranceClaim entity.
func (m *InsuranceClaimModel) ToDomain() *billing.InsuranceClaim {
	c := &billing.InsuranceClaim{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		InvoiceID:            m.InvoiceID,
		InsuranceProviderID:  m.InsuranceProviderID,
		PolicyNumber:         m.PolicyNumber,
		BeneficiaryName:      m.BeneficiaryName,
		Status:               m.Status,
		ClaimedAmount:        m.ClaimedAmount,
		ApprovedAmount:       m.ApprovedAmount,
		PaidAmount:           m.PaidAmount,
		SubmissionDate:       m.SubmissionDate,
		ResponseDate:         m.ResponseDate,
		AutoGeneratePayment:  m.AutoGeneratePayment,
		AppealReason:         m.AppealReason,
		ClosedAt:             m.ClosedAt,
		LineItemIDs:          make([]uuid.UUID, len(m.LineItems)),
	}
	for i, ref := range m.LineItems {
		c.LineItemIDs[i] = ref.LineItemID
	}
	return c
}

// FromDomain populates the persistence model from a domain InsuranceClaim entity.
func (m *InsuranceClaimModel) FromDomain(c *billing.InsuranceClaim) {
	m.FromDomainAuditedAggregateRoot(c.AuditedAggregateRoot)
	m.InvoiceID = c.InvoiceID
	m.InsuranceProviderID = c.InsuranceProviderID
	m.PolicyNumber = c.PolicyNumber
	m.BeneficiaryName = c.BeneficiaryName
	m.Status = c.Status
	m.ClaimedAmount = c.ClaimedAmount
	m.ApprovedAmount = c.ApprovedAmount
	m.PaidAmount = c.PaidAmount
	m.SubmissionDate = c.SubmissionDate
	m.ResponseDate = c.ResponseDate
	m.AutoGeneratePayment = c.AutoGeneratePayment
	m.AppealReason = c.AppealReason
	m.ClosedAt = c.ClosedAt
	m.LineItems = make([]ClaimLineItemModel, len(c.LineItemIDs))
	for i, itemID := range c.LineItemIDs {
		m.LineItems[i] = ClaimLineItemModel{
			ClaimID:    c.ID,
			LineItemID: itemID,
		}
	}
}

// InsuranceClaimModelFromDomain creates a new persistence model from a domain InsuranceClaim entity.
func InsuranceClaimModelFromDomain(c *billing.InsuranceClaim) *InsuranceClaimModel {
	m := &InsuranceClaimModel{}
	m.FromDomain(c)
	return m
}

// ClaimLineItemModel references an invoice line item claimed by a claim.
// The pair is the primary key; a claim references an item at most once.
type ClaimLineItemModel struct {
	ClaimID    uuid.UUID `gorm:"type:uuid;primary_key"`
	LineItemID uuid.UUID `gorm:"type:uuid;primary_key;index"`
}

// TableName returns the table name for GORM
func (ClaimLineItemModel) TableName() string {
	return "claim_line_items"
}
