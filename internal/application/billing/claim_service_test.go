package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/domain/funding"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type claimServiceFixture struct {
	svc         *ClaimService
	invoiceRepo *MockInvoiceRepository
	paymentRepo *MockPaymentRepository
	claimRepo   *MockClaimRepository
	providers   *MockProviderRepository
}

func newClaimServiceFixture() *claimServiceFixture {
	f := &claimServiceFixture{
		invoiceRepo: new(MockInvoiceRepository),
		paymentRepo: new(MockPaymentRepository),
		claimRepo:   new(MockClaimRepository),
		providers:   new(MockProviderRepository),
	}
	scope := NewNoOpTransactionScope(f.invoiceRepo, f.paymentRepo, f.claimRepo)
	f.svc = NewClaimService(scope, f.claimRepo, f.providers)
	return f
}

func testProvider(t *testing.T) *funding.InsuranceProvider {
	t.Helper()
	p, err := funding.NewInsuranceProvider("Blue Shield", "claims@blueshield.example", "", "", uuid.New())
	require.NoError(t, err)
	return p
}

// insurableInvoice builds a SENT invoice with one insurance-flagged line
// item worth 150
func insurableInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	item, err := billing.NewInvoiceLineItem(uuid.New(), "Assessment", decimal.NewFromInt(1), decimal.NewFromInt(150), time.Now(), true)
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

// submittedClaimOn builds a SUBMITTED claim over the invoice's insurable
// item and flags the invoice PENDING_INSURANCE
func submittedClaimOn(t *testing.T, inv *billing.Invoice, autoGenerate bool) *billing.InsuranceClaim {
	t.Helper()
	c, err := billing.NewInsuranceClaim(inv, uuid.New(), "POL-9134", "Jamie Nguyen", []uuid.UUID{inv.LineItems[0].ID}, nil, autoGenerate, uuid.New())
	require.NoError(t, err)
	require.NoError(t, c.Submit())
	require.NoError(t, inv.MarkPendingInsurance())
	return c
}

func TestClaimServiceCreateClaim(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("creates a draft claim over insurable items", func(t *testing.T) {
		f := newClaimServiceFixture()
		provider := testProvider(t)
		inv := insurableInvoice(t)

		f.providers.On("FindByID", ctx, provider.ID).Return(provider, nil)
		f.invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)
		f.claimRepo.On("Save", ctx, mock.Anything).Return(nil)

		resp, err := f.svc.CreateClaim(ctx, CreateClaimRequest{
			InvoiceID:           inv.ID,
			InsuranceProviderID: provider.ID,
			PolicyNumber:        "POL-9134",
			BeneficiaryName:     "Jamie Nguyen",
			LineItemIDs:         []uuid.UUID{inv.LineItems[0].ID},
			AutoGeneratePayment: true,
		}, actorID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.ClaimStatusDraft), resp.Status)
		assert.Equal(t, "150", resp.ClaimedAmount.String())
		assert.True(t, resp.AutoGeneratePayment)
	})

	t.Run("rejects inactive provider", func(t *testing.T) {
		f := newClaimServiceFixture()
		provider := testProvider(t)
		provider.Deactivate()
		inv := insurableInvoice(t)

		f.providers.On("FindByID", ctx, provider.ID).Return(provider, nil)

		_, err := f.svc.CreateClaim(ctx, CreateClaimRequest{
			InvoiceID:           inv.ID,
			InsuranceProviderID: provider.ID,
			PolicyNumber:        "POL-9134",
			BeneficiaryName:     "Jamie Nguyen",
			LineItemIDs:         []uuid.UUID{inv.LineItems[0].ID},
		}, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
	})

	t.Run("rejects non-insurable line item", func(t *testing.T) {
		f := newClaimServiceFixture()
		provider := testProvider(t)
		inv := sentInvoiceWithTotal(t, 200)

		f.providers.On("FindByID", ctx, provider.ID).Return(provider, nil)
		f.invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)

		_, err := f.svc.CreateClaim(ctx, CreateClaimRequest{
			InvoiceID:           inv.ID,
			InsuranceProviderID: provider.ID,
			PolicyNumber:        "POL-9134",
			BeneficiaryName:     "Jamie Nguyen",
			LineItemIDs:         []uuid.UUID{inv.LineItems[0].ID},
		}, actorID)
		require.Error(t, err)
		f.claimRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestClaimServiceSubmitClaim(t *testing.T) {
	ctx := context.Background()
	f := newClaimServiceFixture()
	inv := insurableInvoice(t)
	c, err := billing.NewInsuranceClaim(inv, uuid.New(), "POL-9134", "Jamie Nguyen", []uuid.UUID{inv.LineItems[0].ID}, nil, false, uuid.New())
	require.NoError(t, err)

	f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
	f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
	f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)
	f.claimRepo.On("SaveWithLock", ctx, c).Return(nil)

	result, err := f.svc.SubmitClaim(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, string(billing.ClaimStatusSubmitted), result.Claim.Status)
	assert.NotNil(t, result.Claim.SubmissionDate)
	assert.Equal(t, string(billing.InvoiceStatusPendingInsurance), result.Invoice.Status)
}

func TestClaimServiceRecordClaimResponse(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("PAID response auto-generates exactly one insurance payment", func(t *testing.T) {
		f := newClaimServiceFixture()
		inv := insurableInvoice(t)
		c := submittedClaimOn(t, inv, true)

		var saved []*billing.Payment
		f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		f.paymentRepo.On("Save", ctx, mock.Anything).Run(func(args mock.Arguments) {
			saved = append(saved, args.Get(1).(*billing.Payment))
		}).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)
		f.claimRepo.On("SaveWithLock", ctx, c).Return(nil)

		result, err := f.svc.RecordClaimResponse(ctx, c.ID, RecordClaimResponseRequest{
			Status:         billing.ClaimStatusPaid,
			ApprovedAmount: decimal.NewFromInt(150),
			PaidAmount:     decimal.NewFromInt(150),
		}, actorID)
		require.NoError(t, err)

		require.Len(t, saved, 1)
		p := saved[0]
		assert.Equal(t, billing.PaymentMethodInsurance, p.Method)
		assert.Equal(t, "150", p.Amount.String())
		require.NotNil(t, p.InsuranceClaimID)
		assert.Equal(t, c.ID, *p.InsuranceClaimID)
		require.NotNil(t, p.ReceivedBy)
		assert.Equal(t, actorID, *p.ReceivedBy)

		assert.Equal(t, string(billing.ClaimStatusPaid), result.Claim.Status)
		require.NotNil(t, result.GeneratedPayment)
		assert.Equal(t, string(billing.InvoiceStatusPaid), result.Invoice.Status)
		assert.Equal(t, "150", result.Invoice.AmountPaid.String())
	})

	t.Run("APPROVED response then settlement generates the insurance payment", func(t *testing.T) {
		f := newClaimServiceFixture()
		inv := insurableInvoice(t)
		c := submittedClaimOn(t, inv, true)

		var saved []*billing.Payment
		f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		f.paymentRepo.On("Save", ctx, mock.Anything).Run(func(args mock.Arguments) {
			saved = append(saved, args.Get(1).(*billing.Payment))
		}).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)
		f.claimRepo.On("SaveWithLock", ctx, c).Return(nil)

		approved, err := f.svc.RecordClaimResponse(ctx, c.ID, RecordClaimResponseRequest{
			Status:         billing.ClaimStatusApproved,
			ApprovedAmount: decimal.NewFromInt(150),
		}, actorID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.ClaimStatusApproved), approved.Claim.Status)
		assert.Nil(t, approved.GeneratedPayment)
		f.paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

		settled, err := f.svc.RecordClaimResponse(ctx, c.ID, RecordClaimResponseRequest{
			Status:     billing.ClaimStatusPaid,
			PaidAmount: decimal.NewFromInt(150),
		}, actorID)
		require.NoError(t, err)

		require.Len(t, saved, 1)
		assert.Equal(t, billing.PaymentMethodInsurance, saved[0].Method)
		require.NotNil(t, saved[0].ReceivedBy)
		assert.Equal(t, actorID, *saved[0].ReceivedBy)

		assert.Equal(t, string(billing.ClaimStatusPaid), settled.Claim.Status)
		assert.Equal(t, "150", settled.Claim.ApprovedAmount.String())
		require.NotNil(t, settled.GeneratedPayment)
		assert.Equal(t, string(billing.InvoiceStatusPaid), settled.Invoice.Status)
		assert.Equal(t, "150", settled.Invoice.AmountPaid.String())
	})

	t.Run("PAID response without auto-generate records no payment", func(t *testing.T) {
		f := newClaimServiceFixture()
		inv := insurableInvoice(t)
		c := submittedClaimOn(t, inv, false)

		f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.claimRepo.On("SaveWithLock", ctx, c).Return(nil)

		result, err := f.svc.RecordClaimResponse(ctx, c.ID, RecordClaimResponseRequest{
			Status:         billing.ClaimStatusPaid,
			ApprovedAmount: decimal.NewFromInt(150),
			PaidAmount:     decimal.NewFromInt(150),
		}, actorID)
		require.NoError(t, err)
		assert.Nil(t, result.GeneratedPayment)
		assert.Equal(t, string(billing.InvoiceStatusPendingInsurance), result.Invoice.Status)
		f.paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("DENIED response flags the invoice", func(t *testing.T) {
		f := newClaimServiceFixture()
		inv := insurableInvoice(t)
		c := submittedClaimOn(t, inv, true)

		f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)
		f.claimRepo.On("SaveWithLock", ctx, c).Return(nil)

		result, err := f.svc.RecordClaimResponse(ctx, c.ID, RecordClaimResponseRequest{
			Status: billing.ClaimStatusDenied,
		}, actorID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.ClaimStatusDenied), result.Claim.Status)
		assert.Equal(t, string(billing.InvoiceStatusInsuranceDenied), result.Invoice.Status)
		f.paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("generated payment cannot exceed the invoice total", func(t *testing.T) {
		f := newClaimServiceFixture()
		inv := insurableInvoice(t)
		c := submittedClaimOn(t, inv, true)

		f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
		f.paymentRepo.On("SumByInvoice", ctx, inv.ID).Return(decimal.NewFromInt(100), nil)

		_, err := f.svc.RecordClaimResponse(ctx, c.ID, RecordClaimResponseRequest{
			Status:         billing.ClaimStatusPaid,
			ApprovedAmount: decimal.NewFromInt(150),
			PaidAmount:     decimal.NewFromInt(150),
		}, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
		f.paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects response on a DRAFT claim", func(t *testing.T) {
		f := newClaimServiceFixture()
		inv := insurableInvoice(t)
		c, err := billing.NewInsuranceClaim(inv, uuid.New(), "POL-9134", "Jamie Nguyen", []uuid.UUID{inv.LineItems[0].ID}, nil, false, uuid.New())
		require.NoError(t, err)

		f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)

		_, err = f.svc.RecordClaimResponse(ctx, c.ID, RecordClaimResponseRequest{
			Status: billing.ClaimStatusApproved,
		}, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidState, domainErr.Code)
	})
}

func TestClaimServiceAppealClaim(t *testing.T) {
	ctx := context.Background()
	f := newClaimServiceFixture()
	inv := insurableInvoice(t)
	c := submittedClaimOn(t, inv, false)
	require.NoError(t, c.RecordResponse(billing.ClaimStatusDenied, decimal.Zero, decimal.Zero, time.Now()))
	require.NoError(t, inv.MarkInsuranceDenied())

	f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
	f.invoiceRepo.On("FindByIDForUpdate", ctx, inv.ID).Return(inv, nil)
	f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)
	f.claimRepo.On("SaveWithLock", ctx, c).Return(nil)

	result, err := f.svc.AppealClaim(ctx, c.ID, AppealClaimRequest{Reason: "Supporting documentation attached"})
	require.NoError(t, err)
	assert.Equal(t, string(billing.ClaimStatusAppealed), result.Claim.Status)
	assert.Equal(t, string(billing.InvoiceStatusPendingInsurance), result.Invoice.Status)
}

func TestClaimServiceDeleteClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes a draft claim", func(t *testing.T) {
		f := newClaimServiceFixture()
		inv := insurableInvoice(t)
		c, err := billing.NewInsuranceClaim(inv, uuid.New(), "POL-9134", "Jamie Nguyen", []uuid.UUID{inv.LineItems[0].ID}, nil, false, uuid.New())
		require.NoError(t, err)

		f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.claimRepo.On("Delete", ctx, c.ID).Return(nil)

		require.NoError(t, f.svc.DeleteClaim(ctx, c.ID))
		f.claimRepo.AssertExpectations(t)
	})

	t.Run("blocks deleting a submitted claim", func(t *testing.T) {
		f := newClaimServiceFixture()
		inv := insurableInvoice(t)
		c := submittedClaimOn(t, inv, false)

		f.claimRepo.On("FindByID", ctx, c.ID).Return(c, nil)

		err := f.svc.DeleteClaim(ctx, c.ID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
		f.claimRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
