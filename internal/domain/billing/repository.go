package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	ClientID          *uuid.UUID       // Filter by client
	Status            *InvoiceStatus   // Filter by status
	FundingProviderID *uuid.UUID       // Filter by insurance provider
	FundingProgramID  *uuid.UUID       // Filter by funding program
	IssuedFrom        *time.Time       // Filter by issue date range start
	IssuedTo          *time.Time       // Filter by issue date range end
	DueFrom           *time.Time       // Filter by due date range start
	DueTo             *time.Time       // Filter by due date range end
	Overdue           *bool            // Filter only overdue invoices
	MinOutstanding    *decimal.Decimal // Filter by minimum outstanding amount
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	InvoiceID *uuid.UUID     // Filter by invoice
	Method    *PaymentMethod // Filter by payment method
	ClaimID   *uuid.UUID     // Filter by back-referenced claim
	From      *time.Time     // Filter by payment date range start
	To        *time.Time     // Filter by payment date range end
}

// ClaimFilter defines filtering options for claim queries
type ClaimFilter struct {
	shared.Filter
	InvoiceID  *uuid.UUID   // Filter by invoice
	ProviderID *uuid.UUID   // Filter by insurance provider
	Status     *ClaimStatus // Filter by status
	From       *time.Time   // Filter by submission date range start
	To         *time.Time   // Filter by submission date range end
}

// InvoiceRepository defines the interface for invoice persistence.
// The invoice and its line items are one consistency boundary; Save and
// SaveWithLock persist both.
type InvoiceRepository interface {
	// FindByID finds an invoice with its line items
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate finds an invoice holding a row lock for the
	// duration of the enclosing transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its unique invoice number
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	// FindAll finds invoices with filtering
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// Save creates or updates an invoice and its line items
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Delete removes an invoice, cascading its line items. Callers check
	// the zero-payments guard first.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts invoices with optional filters
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// NextInvoiceNumber computes the next year-scoped invoice number from
	// the highest existing one. Must run inside the transaction that
	// inserts the invoice; the unique index on invoice_number is the
	// backstop against concurrent callers computing the same value.
	NextInvoiceNumber(ctx context.Context, year int) (string, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInvoice finds all payments against an invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// FindAll finds payments with filtering
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// Delete removes a payment
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts payments with optional filters
	Count(ctx context.Context, filter PaymentFilter) (int64, error)

	// CountByInvoice counts payments against an invoice
	CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)

	// SumByInvoice computes the authoritative paid total for an invoice
	SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
}

// ClaimRepository defines the interface for insurance claim persistence
type ClaimRepository interface {
	// FindByID finds a claim with its line-item references
	FindByID(ctx context.Context, id uuid.UUID) (*InsuranceClaim, error)

	// FindByInvoice finds all claims against an invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]InsuranceClaim, error)

	// FindAll finds claims with filtering
	FindAll(ctx context.Context, filter ClaimFilter) ([]InsuranceClaim, error)

	// Save creates or updates a claim and its line-item references
	Save(ctx context.Context, claim *InsuranceClaim) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, claim *InsuranceClaim) error

	// Delete removes a claim. Callers check the DRAFT-only guard first.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts claims with optional filters
	Count(ctx context.Context, filter ClaimFilter) (int64, error)
}
