package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/domain/catalog"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type invoiceServiceFixture struct {
	svc          *InvoiceService
	invoiceRepo  *MockInvoiceRepository
	paymentRepo  *MockPaymentRepository
	claimRepo    *MockClaimRepository
	serviceCodes *MockServiceCodeRepository
	providers    *MockProviderRepository
	programs     *MockProgramRepository
	clients      *MockClientDirectory
	notifier     *MockNotificationRequester
}

func newInvoiceServiceFixture() *invoiceServiceFixture {
	f := &invoiceServiceFixture{
		invoiceRepo:  new(MockInvoiceRepository),
		paymentRepo:  new(MockPaymentRepository),
		claimRepo:    new(MockClaimRepository),
		serviceCodes: new(MockServiceCodeRepository),
		providers:    new(MockProviderRepository),
		programs:     new(MockProgramRepository),
		clients:      new(MockClientDirectory),
		notifier:     new(MockNotificationRequester),
	}
	scope := NewNoOpTransactionScope(f.invoiceRepo, f.paymentRepo, f.claimRepo)
	f.svc = NewInvoiceService(
		scope, f.invoiceRepo, f.paymentRepo, f.claimRepo,
		f.serviceCodes, f.providers, f.programs, f.clients, f.notifier,
	)
	return f
}

func testServiceCode(t *testing.T, rate float64) *catalog.ServiceCode {
	t.Helper()
	sc, err := catalog.NewServiceCode("SLP-TX", "Speech therapy session", valueobject.NewMoneyUSDFromFloat(rate), catalog.BillableUnitSession, uuid.New())
	require.NoError(t, err)
	return sc
}

func draftInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	item, err := billing.NewInvoiceLineItem(uuid.New(), "Session", decimal.NewFromInt(2), decimal.NewFromInt(125), time.Now(), false)
	require.NoError(t, err)
	inv, err := billing.NewInvoice(
		uuid.New(), time.Now(), time.Now().Add(30*24*time.Hour),
		[]billing.InvoiceLineItem{*item},
		decimal.Zero, decimal.Zero, nil, nil, "", uuid.New(),
	)
	require.NoError(t, err)
	require.NoError(t, inv.AssignNumber("INV-2025-00001"))
	return inv
}

func TestInvoiceServiceCreateInvoice(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	actorID := uuid.New()

	req := CreateInvoiceRequest{
		ClientID: clientID,
		DueDate:  time.Now().Add(30 * 24 * time.Hour),
		LineItems: []LineItemRequest{
			{ServiceCodeID: uuid.New(), Quantity: decimal.NewFromInt(2), DateOfService: time.Now()},
			{ServiceCodeID: uuid.New(), Quantity: decimal.NewFromInt(1), Rate: decimalPtr(decimal.NewFromInt(80)), Description: "Written report", DateOfService: time.Now()},
		},
	}

	t.Run("creates invoice with copied and overridden rates", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		sc := testServiceCode(t, 125)

		f.clients.On("Exists", ctx, clientID).Return(true, nil)
		f.serviceCodes.On("FindByID", ctx, mock.Anything).Return(sc, nil)
		f.invoiceRepo.On("NextInvoiceNumber", ctx, mock.Anything).Return("INV-2025-00001", nil)
		f.invoiceRepo.On("Save", ctx, mock.Anything).Return(nil)

		resp, err := f.svc.CreateInvoice(ctx, req, actorID)
		require.NoError(t, err)
		assert.Equal(t, "INV-2025-00001", resp.InvoiceNumber)
		assert.Equal(t, string(billing.InvoiceStatusDraft), resp.Status)
		assert.Equal(t, "330", resp.TotalAmount.String())
		require.Len(t, resp.LineItems, 2)
		assert.Equal(t, "250", resp.LineItems[0].Amount.String())
		assert.Equal(t, "80", resp.LineItems[1].Amount.String())
		f.invoiceRepo.AssertExpectations(t)
	})

	t.Run("rejects unknown client", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		f.clients.On("Exists", ctx, clientID).Return(false, nil)

		_, err := f.svc.CreateInvoice(ctx, req, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeNotFound, domainErr.Code)
		f.invoiceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects inactive service code", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		sc := testServiceCode(t, 125)
		sc.Deactivate()

		f.clients.On("Exists", ctx, clientID).Return(true, nil)
		f.serviceCodes.On("FindByID", ctx, mock.Anything).Return(sc, nil)

		_, err := f.svc.CreateInvoice(ctx, req, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
	})

	t.Run("retries once when the invoice number is taken", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		sc := testServiceCode(t, 125)

		f.clients.On("Exists", ctx, clientID).Return(true, nil)
		f.serviceCodes.On("FindByID", ctx, mock.Anything).Return(sc, nil)
		f.invoiceRepo.On("NextInvoiceNumber", ctx, mock.Anything).Return("INV-2025-00007", nil).Once()
		f.invoiceRepo.On("NextInvoiceNumber", ctx, mock.Anything).Return("INV-2025-00008", nil).Once()
		f.invoiceRepo.On("Save", ctx, mock.Anything).
			Return(shared.NewDomainError(shared.CodeConcurrencyConflict, "duplicate invoice number")).Once()
		f.invoiceRepo.On("Save", ctx, mock.Anything).Return(nil).Once()

		resp, err := f.svc.CreateInvoice(ctx, req, actorID)
		require.NoError(t, err)
		assert.Equal(t, "INV-2025-00008", resp.InvoiceNumber)
		f.invoiceRepo.AssertExpectations(t)
	})

	t.Run("does not retry twice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		sc := testServiceCode(t, 125)
		conflict := shared.NewDomainError(shared.CodeConcurrencyConflict, "duplicate invoice number")

		f.clients.On("Exists", ctx, clientID).Return(true, nil)
		f.serviceCodes.On("FindByID", ctx, mock.Anything).Return(sc, nil)
		f.invoiceRepo.On("NextInvoiceNumber", ctx, mock.Anything).Return("INV-2025-00007", nil)
		f.invoiceRepo.On("Save", ctx, mock.Anything).Return(conflict).Twice()

		_, err := f.svc.CreateInvoice(ctx, req, actorID)
		require.Error(t, err)
		assert.True(t, isConcurrencyConflict(err))
		f.invoiceRepo.AssertNumberOfCalls(t, "Save", 2)
	})
}

func TestInvoiceServiceSendInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("sends and requests notification", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := draftInvoice(t)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)
		f.notifier.On("RequestInvoiceNotification", ctx, inv.ID, inv.InvoiceNumber, inv.ClientID, inv.DueDate).Return(nil)

		resp, err := f.svc.SendInvoice(ctx, inv.ID, SendInvoiceRequest{NotifyClient: true})
		require.NoError(t, err)
		assert.Equal(t, string(billing.InvoiceStatusSent), resp.Status)
		f.notifier.AssertExpectations(t)
	})

	t.Run("send survives a notification failure", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := draftInvoice(t)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)
		f.notifier.On("RequestInvoiceNotification", ctx, inv.ID, inv.InvoiceNumber, inv.ClientID, inv.DueDate).
			Return(assert.AnError)

		resp, err := f.svc.SendInvoice(ctx, inv.ID, SendInvoiceRequest{NotifyClient: true})
		require.NoError(t, err)
		assert.Equal(t, string(billing.InvoiceStatusSent), resp.Status)
	})

	t.Run("rejects resending", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := draftInvoice(t)
		require.NoError(t, inv.Send())

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)

		_, err := f.svc.SendInvoice(ctx, inv.ID, SendInvoiceRequest{})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidState, domainErr.Code)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id := uuid.New()
		f.invoiceRepo.On("FindByIDForUpdate", ctx, id).Return(nil, nil)

		_, err := f.svc.SendInvoice(ctx, id, SendInvoiceRequest{})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeNotFound, domainErr.Code)
	})
}

func TestInvoiceServiceDeleteInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes a draft with no payments or claims", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := draftInvoice(t)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("CountByInvoice", ctx, inv.ID).Return(int64(0), nil)
		f.claimRepo.On("Count", ctx, mock.Anything).Return(int64(0), nil)
		f.invoiceRepo.On("Delete", ctx, inv.ID).Return(nil)

		require.NoError(t, f.svc.DeleteInvoice(ctx, inv.ID))
		f.invoiceRepo.AssertExpectations(t)
	})

	t.Run("blocks deletion when payments exist", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := draftInvoice(t)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("CountByInvoice", ctx, inv.ID).Return(int64(2), nil)

		err := f.svc.DeleteInvoice(ctx, inv.ID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
		assert.Contains(t, domainErr.Message, "2 payment(s)")
		f.invoiceRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("blocks deletion when claims exist", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := draftInvoice(t)

		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("CountByInvoice", ctx, inv.ID).Return(int64(0), nil)
		f.claimRepo.On("Count", ctx, mock.Anything).Return(int64(1), nil)

		err := f.svc.DeleteInvoice(ctx, inv.ID)
		require.Error(t, err)
		f.invoiceRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestInvoiceServiceUpdateInvoice(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceServiceFixture()
	inv := draftInvoice(t)

	f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
	f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

	tax := decimal.NewFromInt(8)
	discount := decimal.NewFromInt(10)
	resp, err := f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceRequest{Tax: &tax, Discount: &discount})
	require.NoError(t, err)
	// 250 - 10 + 8
	assert.Equal(t, "248", resp.TotalAmount.String())
}

func TestInvoiceServiceRefreshOverdueStatuses(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceServiceFixture()

	inv := draftInvoice(t)
	require.NoError(t, inv.Send())
	inv.DueDate = time.Now().Add(-48 * time.Hour)

	f.invoiceRepo.On("FindAll", ctx, mock.Anything).Return([]billing.Invoice{*inv}, nil)
	f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
	f.paymentRepo.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
	f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

	updated, err := f.svc.RefreshOverdueStatuses(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, billing.InvoiceStatusOverdue, inv.Status)
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
