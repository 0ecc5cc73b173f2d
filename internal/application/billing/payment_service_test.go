package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type paymentServiceFixture struct {
	svc         *PaymentService
	invoiceRepo *MockInvoiceRepository
	paymentRepo *MockPaymentRepository
	claimRepo   *MockClaimRepository
}

func newPaymentServiceFixture() *paymentServiceFixture {
	f := &paymentServiceFixture{
		invoiceRepo: new(MockInvoiceRepository),
		paymentRepo: new(MockPaymentRepository),
		claimRepo:   new(MockClaimRepository),
	}
	scope := NewNoOpTransactionScope(f.invoiceRepo, f.paymentRepo, f.claimRepo)
	f.svc = NewPaymentService(scope, f.paymentRepo)
	return f
}

// sentInvoiceWithTotal builds a SENT invoice with a single line item whose
// amount equals the requested total
func sentInvoiceWithTotal(t *testing.T, total int64) *billing.Invoice {
	t.Helper()
	item, err := billing.NewInvoiceLineItem(uuid.New(), "Session", decimal.NewFromInt(1), decimal.NewFromInt(total), time.Now(), false)
	require.NoError(t, err)
	inv, err := billing.NewInvoice(
		uuid.New(), time.Now(), time.Now().Add(30*24*time.Hour),
		[]billing.InvoiceLineItem{*item},
		decimal.Zero, decimal.Zero, nil, nil, "", uuid.New(),
	)
	require.NoError(t, err)
	require.NoError(t, inv.AssignNumber("INV-2025-00001"))
	require.NoError(t, inv.Send())
	return inv
}

func TestPaymentServiceApplyPayment(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("partial payment moves invoice to PARTIALLY_PAID", func(t *testing.T) {
		f := newPaymentServiceFixture()
		inv := sentInvoiceWithTotal(t, 330)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		f.paymentRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		result, err := f.svc.ApplyPayment(ctx, inv.ID, ApplyPaymentRequest{
			Amount: decimal.NewFromInt(200),
			Method: billing.PaymentMethodCard,
		}, actorID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.InvoiceStatusPartiallyPaid), result.Invoice.Status)
		assert.Equal(t, "200", result.Invoice.AmountPaid.String())
		assert.Equal(t, "130", result.Invoice.Outstanding.String())
		require.NotNil(t, result.Payment)
		assert.Equal(t, "200", result.Payment.Amount.String())
	})

	t.Run("final payment settles the invoice", func(t *testing.T) {
		f := newPaymentServiceFixture()
		inv := sentInvoiceWithTotal(t, 330)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("SumByInvoice", ctx, inv.ID).Return(decimal.NewFromInt(200), nil)
		f.paymentRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		result, err := f.svc.ApplyPayment(ctx, inv.ID, ApplyPaymentRequest{
			Amount: decimal.NewFromInt(130),
			Method: billing.PaymentMethodCheck,
		}, actorID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.InvoiceStatusPaid), result.Invoice.Status)
		assert.NotNil(t, result.Invoice.PaidAt)
		assert.True(t, result.Invoice.Outstanding.IsZero())
	})

	t.Run("rejects a one cent overpayment", func(t *testing.T) {
		f := newPaymentServiceFixture()
		inv := sentInvoiceWithTotal(t, 100)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)

		_, err := f.svc.ApplyPayment(ctx, inv.ID, ApplyPaymentRequest{
			Amount: decimal.RequireFromString("100.01"),
			Method: billing.PaymentMethodCash,
		}, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
		assert.Contains(t, domainErr.Message, "100.01")
		assert.Contains(t, domainErr.Message, "100.00")
		f.paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects payment on a DRAFT invoice", func(t *testing.T) {
		f := newPaymentServiceFixture()
		inv := draftInvoice(t)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)

		_, err := f.svc.ApplyPayment(ctx, inv.ID, ApplyPaymentRequest{
			Amount: decimal.NewFromInt(50),
			Method: billing.PaymentMethodCash,
		}, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidState, domainErr.Code)
	})

	t.Run("rejects payment on a CANCELLED invoice", func(t *testing.T) {
		f := newPaymentServiceFixture()
		inv := sentInvoiceWithTotal(t, 100)
		require.NoError(t, inv.Cancel("duplicate"))

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)

		_, err := f.svc.ApplyPayment(ctx, inv.ID, ApplyPaymentRequest{
			Amount: decimal.NewFromInt(50),
			Method: billing.PaymentMethodCash,
		}, actorID)
		require.Error(t, err)
	})
}

func TestPaymentServiceRemovePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("removing the only payment regresses PAID to SENT", func(t *testing.T) {
		f := newPaymentServiceFixture()
		inv := sentInvoiceWithTotal(t, 330)
		require.NoError(t, inv.Reconcile(decimal.NewFromInt(330), time.Now()))
		require.Equal(t, billing.InvoiceStatusPaid, inv.Status)

		p, err := billing.NewPayment(inv.ID, valueobject.NewMoneyUSDFromFloat(330), time.Now(), billing.PaymentMethodCard, "", uuid.New())
		require.NoError(t, err)

		f.paymentRepo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("Delete", ctx, p.ID).Return(nil)
		f.paymentRepo.On("FindByInvoice", ctx, inv.ID).Return([]billing.Payment{}, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		result, err := f.svc.RemovePayment(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.InvoiceStatusSent), result.Invoice.Status)
		assert.True(t, result.Invoice.AmountPaid.IsZero())
		assert.Nil(t, result.Invoice.PaidAt)
	})

	t.Run("unknown payment", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id := uuid.New()
		f.paymentRepo.On("FindByID", ctx, id).Return(nil, nil)

		_, err := f.svc.RemovePayment(ctx, id)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeNotFound, domainErr.Code)
	})
}

func TestPaymentServiceUpdatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("amount change is revalidated against the other payments", func(t *testing.T) {
		f := newPaymentServiceFixture()
		inv := sentInvoiceWithTotal(t, 330)
		require.NoError(t, inv.Reconcile(decimal.NewFromInt(300), time.Now()))

		p, err := billing.NewPayment(inv.ID, valueobject.NewMoneyUSDFromFloat(100), time.Now(), billing.PaymentMethodCard, "", uuid.New())
		require.NoError(t, err)
		other, err := billing.NewPayment(inv.ID, valueobject.NewMoneyUSDFromFloat(200), time.Now(), billing.PaymentMethodCash, "", uuid.New())
		require.NoError(t, err)

		f.paymentRepo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("SumByInvoice", ctx, inv.ID).Return(decimal.NewFromInt(300), nil)

		// 200 from the other payment plus 200 updated exceeds 330
		newAmount := decimal.NewFromInt(200)
		_, err = f.svc.UpdatePayment(ctx, p.ID, UpdatePaymentRequest{Amount: &newAmount})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)

		// Lowering the amount is accepted and the invoice regresses
		f.paymentRepo.On("Save", ctx, p).Return(nil)
		f.paymentRepo.On("FindByInvoice", ctx, inv.ID).Return([]billing.Payment{*p, *other}, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		lower := decimal.NewFromInt(50)
		result, err := f.svc.UpdatePayment(ctx, p.ID, UpdatePaymentRequest{Amount: &lower})
		require.NoError(t, err)
		assert.Equal(t, "50", result.Payment.Amount.String())
		assert.Equal(t, "250", result.Invoice.AmountPaid.String())
		assert.Equal(t, string(billing.InvoiceStatusPartiallyPaid), result.Invoice.Status)
	})

	t.Run("detail-only change keeps the reconciled state", func(t *testing.T) {
		f := newPaymentServiceFixture()
		inv := sentInvoiceWithTotal(t, 330)
		require.NoError(t, inv.Reconcile(decimal.NewFromInt(100), time.Now()))

		p, err := billing.NewPayment(inv.ID, valueobject.NewMoneyUSDFromFloat(100), time.Now(), billing.PaymentMethodCard, "", uuid.New())
		require.NoError(t, err)

		f.paymentRepo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("Save", ctx, p).Return(nil)
		f.paymentRepo.On("FindByInvoice", ctx, inv.ID).Return([]billing.Payment{*p}, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		method := billing.PaymentMethodBankTransfer
		reference := "wire-77"
		result, err := f.svc.UpdatePayment(ctx, p.ID, UpdatePaymentRequest{Method: &method, ReferenceNumber: &reference})
		require.NoError(t, err)
		assert.Equal(t, string(billing.PaymentMethodBankTransfer), result.Payment.Method)
		assert.Equal(t, "100", result.Invoice.AmountPaid.String())
	})
}
