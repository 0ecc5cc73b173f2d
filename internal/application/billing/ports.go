package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Every ledger mutation runs through this scope: no
// operation reads ledger state, computes a derived value, and writes it
// back outside one transaction boundary.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories
// within a transaction. All repositories returned share the same
// underlying database transaction.
//
// Aggregate boundary notes:
//   - InvoiceRepo persists the Invoice aggregate including its line items.
//   - PaymentRepo persists Payment rows; the authoritative paid sum always
//     comes from SumByInvoice inside the same transaction.
//   - ClaimRepo persists InsuranceClaim rows and their line-item references.
type TransactionalRepositories interface {
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() billing.PaymentRepository
	// ClaimRepo returns the claim repository scoped to the current transaction
	ClaimRepo() billing.ClaimRepository
}

// ClientDirectory is the read-only lookup against the client records owned
// by the practice CRUD module. The ledger validates client existence at
// invoice creation but does not own client data.
type ClientDirectory interface {
	// Exists reports whether a client record exists
	Exists(ctx context.Context, clientID uuid.UUID) (bool, error)
}

// NotificationRequester records a request to notify a client about an
// invoice. Delivery is delegated to the external notification collaborator;
// the ledger only records the request.
type NotificationRequester interface {
	// RequestInvoiceNotification requests that an invoice notice be sent
	RequestInvoiceNotification(ctx context.Context, invoiceID uuid.UUID, invoiceNumber string, clientID uuid.UUID, dueDate time.Time) error
}

// NoOpTransactionScope is a transaction scope that doesn't use real
// transactions. Useful for tests.
type NoOpTransactionScope struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	claimRepo   billing.ClaimRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	claimRepo billing.ClaimRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		claimRepo:   claimRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository {
	return s.invoiceRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() billing.PaymentRepository {
	return s.paymentRepo
}

// ClaimRepo returns the claim repository.
func (s *NoOpTransactionScope) ClaimRepo() billing.ClaimRepository {
	return s.claimRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
