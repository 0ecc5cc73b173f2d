package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimFixture(t *testing.T) (*Invoice, *InsuranceClaim) {
	t.Helper()
	insurable := testInsurableLineItem(t, 1, 150)
	plain := testLineItem(t, 1, 100)
	inv := sentInvoice(t, insurable, plain)

	claim, err := NewInsuranceClaim(inv, uuid.New(), "POL-9001", "Jordan Lee", []uuid.UUID{inv.LineItems[0].ID}, nil, true, uuid.New())
	require.NoError(t, err)
	claim.ClearDomainEvents()
	return inv, claim
}

func submittedClaim(t *testing.T) (*Invoice, *InsuranceClaim) {
	t.Helper()
	inv, claim := claimFixture(t)
	require.NoError(t, claim.Submit())
	claim.ClearDomainEvents()
	return inv, claim
}

func TestNewInsuranceClaim(t *testing.T) {
	t.Run("defaults claimed amount to item sum", func(t *testing.T) {
		_, claim := claimFixture(t)
		assert.Equal(t, ClaimStatusDraft, claim.Status)
		assert.True(t, claim.ClaimedAmount.Equal(decimal.NewFromInt(150)))
		assert.True(t, claim.AutoGeneratePayment)
		assert.Len(t, claim.LineItemIDs, 1)
	})

	t.Run("accepts explicit claimed amount", func(t *testing.T) {
		insurable := testInsurableLineItem(t, 1, 150)
		inv := sentInvoice(t, insurable)
		amount := decimal.NewFromInt(120)
		claim, err := NewInsuranceClaim(inv, uuid.New(), "POL-1", "Jordan Lee", []uuid.UUID{inv.LineItems[0].ID}, &amount, false, uuid.New())
		require.NoError(t, err)
		assert.True(t, claim.ClaimedAmount.Equal(amount))
	})

	t.Run("raises created event", func(t *testing.T) {
		insurable := testInsurableLineItem(t, 1, 150)
		inv := sentInvoice(t, insurable)
		claim, err := NewInsuranceClaim(inv, uuid.New(), "POL-1", "Jordan Lee", []uuid.UUID{inv.LineItems[0].ID}, nil, false, uuid.New())
		require.NoError(t, err)
		events := claim.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ClaimCreated", events[0].EventType())
	})

	t.Run("rejects item not flagged for insurance", func(t *testing.T) {
		inv := sentInvoice(t, testInsurableLineItem(t, 1, 150), testLineItem(t, 1, 100))
		_, err := NewInsuranceClaim(inv, uuid.New(), "POL-1", "Jordan Lee", []uuid.UUID{inv.LineItems[1].ID}, nil, false, uuid.New())
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
	})

	t.Run("rejects unknown line item", func(t *testing.T) {
		inv := sentInvoice(t, testInsurableLineItem(t, 1, 150))
		_, err := NewInsuranceClaim(inv, uuid.New(), "POL-1", "Jordan Lee", []uuid.UUID{uuid.New()}, nil, false, uuid.New())
		assert.Error(t, err)
	})

	t.Run("rejects duplicate line item references", func(t *testing.T) {
		inv := sentInvoice(t, testInsurableLineItem(t, 1, 150))
		itemID := inv.LineItems[0].ID
		_, err := NewInsuranceClaim(inv, uuid.New(), "POL-1", "Jordan Lee", []uuid.UUID{itemID, itemID}, nil, false, uuid.New())
		assert.Error(t, err)
	})

	t.Run("rejects empty membership and identity fields", func(t *testing.T) {
		inv := sentInvoice(t, testInsurableLineItem(t, 1, 150))
		itemIDs := []uuid.UUID{inv.LineItems[0].ID}

		_, err := NewInsuranceClaim(inv, uuid.New(), "POL-1", "Jordan Lee", nil, nil, false, uuid.New())
		assert.Error(t, err)
		_, err = NewInsuranceClaim(inv, uuid.Nil, "POL-1", "Jordan Lee", itemIDs, nil, false, uuid.New())
		assert.Error(t, err)
		_, err = NewInsuranceClaim(inv, uuid.New(), "", "Jordan Lee", itemIDs, nil, false, uuid.New())
		assert.Error(t, err)
		_, err = NewInsuranceClaim(inv, uuid.New(), "POL-1", "", itemIDs, nil, false, uuid.New())
		assert.Error(t, err)
	})
}

func TestClaimSubmit(t *testing.T) {
	t.Run("submits draft claim", func(t *testing.T) {
		_, claim := claimFixture(t)
		require.NoError(t, claim.Submit())
		assert.Equal(t, ClaimStatusSubmitted, claim.Status)
		require.NotNil(t, claim.SubmissionDate)

		events := claim.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ClaimSubmitted", events[0].EventType())
	})

	t.Run("rejects double submission", func(t *testing.T) {
		_, claim := submittedClaim(t)
		err := claim.Submit()
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
	})
}

func TestClaimMembershipFrozenAfterSubmit(t *testing.T) {
	inv, claim := submittedClaim(t)
	err := claim.UpdateLineItems(inv, []uuid.UUID{inv.LineItems[0].ID})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeConflict, domainErr.Code)
}

func TestClaimUpdateLineItemsInDraft(t *testing.T) {
	insurableA := testInsurableLineItem(t, 1, 150)
	insurableB := testInsurableLineItem(t, 2, 60)
	inv := sentInvoice(t, insurableA, insurableB)

	claim, err := NewInsuranceClaim(inv, uuid.New(), "POL-1", "Jordan Lee", []uuid.UUID{inv.LineItems[0].ID}, nil, false, uuid.New())
	require.NoError(t, err)

	require.NoError(t, claim.UpdateLineItems(inv, []uuid.UUID{inv.LineItems[0].ID, inv.LineItems[1].ID}))
	assert.Len(t, claim.LineItemIDs, 2)
	assert.True(t, claim.ClaimedAmount.Equal(decimal.NewFromInt(270)))
}

func TestClaimRecordResponse(t *testing.T) {
	t.Run("approved response", func(t *testing.T) {
		_, claim := submittedClaim(t)
		err := claim.RecordResponse(ClaimStatusApproved, decimal.NewFromInt(150), decimal.Zero, time.Now())
		require.NoError(t, err)
		assert.Equal(t, ClaimStatusApproved, claim.Status)
		require.NotNil(t, claim.ResponseDate)

		events := claim.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ClaimAdjudicated", events[0].EventType())
	})

	t.Run("paid response with auto payment emits ClaimPaid", func(t *testing.T) {
		_, claim := submittedClaim(t)
		err := claim.RecordResponse(ClaimStatusPaid, decimal.NewFromInt(150), decimal.NewFromInt(150), time.Now())
		require.NoError(t, err)
		assert.Equal(t, ClaimStatusPaid, claim.Status)

		events := claim.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, "ClaimAdjudicated", events[0].EventType())

		paid, ok := events[1].(*ClaimPaidEvent)
		require.True(t, ok)
		assert.Equal(t, claim.ID, paid.ClaimID)
		assert.Equal(t, claim.InvoiceID, paid.InvoiceID)
		assert.True(t, paid.Amount.Equal(decimal.NewFromInt(150)))
	})

	t.Run("paid response without auto payment emits no ClaimPaid", func(t *testing.T) {
		insurable := testInsurableLineItem(t, 1, 150)
		inv := sentInvoice(t, insurable)
		claim, err := NewInsuranceClaim(inv, uuid.New(), "POL-1", "Jordan Lee", []uuid.UUID{inv.LineItems[0].ID}, nil, false, uuid.New())
		require.NoError(t, err)
		require.NoError(t, claim.Submit())
		claim.ClearDomainEvents()

		require.NoError(t, claim.RecordResponse(ClaimStatusPaid, decimal.NewFromInt(150), decimal.NewFromInt(150), time.Now()))
		events := claim.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ClaimAdjudicated", events[0].EventType())
	})

	t.Run("denied response", func(t *testing.T) {
		_, claim := submittedClaim(t)
		require.NoError(t, claim.RecordResponse(ClaimStatusDenied, decimal.Zero, decimal.Zero, time.Now()))
		assert.Equal(t, ClaimStatusDenied, claim.Status)
	})

	t.Run("rejected from draft", func(t *testing.T) {
		_, claim := claimFixture(t)
		err := claim.RecordResponse(ClaimStatusApproved, decimal.NewFromInt(100), decimal.Zero, time.Now())
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidState, domainErr.Code)
	})

	t.Run("rejects non-outcome status", func(t *testing.T) {
		_, claim := submittedClaim(t)
		assert.Error(t, claim.RecordResponse(ClaimStatusClosed, decimal.Zero, decimal.Zero, time.Now()))
		assert.Error(t, claim.RecordResponse(ClaimStatusInReview, decimal.Zero, decimal.Zero, time.Now()))
	})

	t.Run("rejects paid above approved", func(t *testing.T) {
		_, claim := submittedClaim(t)
		err := claim.RecordResponse(ClaimStatusPaid, decimal.NewFromInt(100), decimal.NewFromInt(150), time.Now())
		assert.Error(t, err)
	})

	t.Run("paid outcome requires positive paid amount", func(t *testing.T) {
		_, claim := submittedClaim(t)
		err := claim.RecordResponse(ClaimStatusPaid, decimal.NewFromInt(150), decimal.Zero, time.Now())
		assert.Error(t, err)
	})
}

func TestClaimSettlement(t *testing.T) {
	approvedClaim := func(t *testing.T) *InsuranceClaim {
		t.Helper()
		_, claim := submittedClaim(t)
		require.NoError(t, claim.RecordResponse(ClaimStatusApproved, decimal.NewFromInt(150), decimal.Zero, time.Now()))
		claim.ClearDomainEvents()
		return claim
	}

	t.Run("approved claim settles as paid and emits ClaimPaid", func(t *testing.T) {
		claim := approvedClaim(t)
		err := claim.RecordResponse(ClaimStatusPaid, decimal.NewFromInt(150), decimal.NewFromInt(150), time.Now())
		require.NoError(t, err)
		assert.Equal(t, ClaimStatusPaid, claim.Status)

		events := claim.GetDomainEvents()
		require.Len(t, events, 2)
		paid, ok := events[1].(*ClaimPaidEvent)
		require.True(t, ok)
		assert.True(t, paid.Amount.Equal(decimal.NewFromInt(150)))
	})

	t.Run("settlement keeps the recorded approved amount when omitted", func(t *testing.T) {
		claim := approvedClaim(t)
		require.NoError(t, claim.RecordResponse(ClaimStatusPaid, decimal.Zero, decimal.NewFromInt(150), time.Now()))
		assert.True(t, claim.ApprovedAmount.Equal(decimal.NewFromInt(150)))
		assert.True(t, claim.PaidAmount.Equal(decimal.NewFromInt(150)))
	})

	t.Run("partially approved claim settles as paid", func(t *testing.T) {
		_, claim := submittedClaim(t)
		require.NoError(t, claim.RecordResponse(ClaimStatusPartiallyApproved, decimal.NewFromInt(90), decimal.Zero, time.Now()))
		require.NoError(t, claim.RecordResponse(ClaimStatusPaid, decimal.Zero, decimal.NewFromInt(90), time.Now()))
		assert.Equal(t, ClaimStatusPaid, claim.Status)
		assert.True(t, claim.PaidAmount.Equal(decimal.NewFromInt(90)))
	})

	t.Run("approved claim accepts only a PAID settlement", func(t *testing.T) {
		claim := approvedClaim(t)
		err := claim.RecordResponse(ClaimStatusApproved, decimal.NewFromInt(150), decimal.Zero, time.Now())
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidState, domainErr.Code)

		assert.Error(t, claim.RecordResponse(ClaimStatusDenied, decimal.Zero, decimal.Zero, time.Now()))
	})

	t.Run("settlement cannot exceed the approved amount", func(t *testing.T) {
		claim := approvedClaim(t)
		assert.Error(t, claim.RecordResponse(ClaimStatusPaid, decimal.Zero, decimal.NewFromInt(200), time.Now()))
	})
}

func TestClaimAppealCycle(t *testing.T) {
	_, claim := submittedClaim(t)
	require.NoError(t, claim.BeginReview())
	assert.Equal(t, ClaimStatusInReview, claim.Status)

	require.NoError(t, claim.RecordResponse(ClaimStatusDenied, decimal.Zero, decimal.Zero, time.Now()))

	require.NoError(t, claim.Appeal("missing documentation attached"))
	assert.Equal(t, ClaimStatusAppealed, claim.Status)

	// Appealed claims go back through review to a new adjudication
	require.NoError(t, claim.BeginReview())
	assert.Equal(t, ClaimStatusInReview, claim.Status)
	require.NoError(t, claim.RecordResponse(ClaimStatusApproved, decimal.NewFromInt(150), decimal.Zero, time.Now()))
	assert.Equal(t, ClaimStatusApproved, claim.Status)

	t.Run("appeal requires reason", func(t *testing.T) {
		_, c := submittedClaim(t)
		require.NoError(t, c.RecordResponse(ClaimStatusDenied, decimal.Zero, decimal.Zero, time.Now()))
		assert.Error(t, c.Appeal(""))
	})

	t.Run("cannot appeal an approved claim", func(t *testing.T) {
		_, c := submittedClaim(t)
		require.NoError(t, c.RecordResponse(ClaimStatusApproved, decimal.NewFromInt(150), decimal.Zero, time.Now()))
		assert.Error(t, c.Appeal("reason"))
	})
}

func TestClaimClose(t *testing.T) {
	_, claim := submittedClaim(t)
	require.NoError(t, claim.RecordResponse(ClaimStatusDenied, decimal.Zero, decimal.Zero, time.Now()))
	require.NoError(t, claim.Close())
	assert.Equal(t, ClaimStatusClosed, claim.Status)
	require.NotNil(t, claim.ClosedAt)

	t.Run("cannot close a submitted claim", func(t *testing.T) {
		_, c := submittedClaim(t)
		assert.Error(t, c.Close())
	})
}

func TestClaimEnsureDeletable(t *testing.T) {
	_, draft := claimFixture(t)
	assert.NoError(t, draft.EnsureDeletable())

	_, submitted := submittedClaim(t)
	err := submitted.EnsureDeletable()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeConflict, domainErr.Code)
}

func TestClaimStatusPredicates(t *testing.T) {
	assert.True(t, ClaimStatusPaid.IsTerminal())
	assert.True(t, ClaimStatusClosed.IsTerminal())
	assert.False(t, ClaimStatusDenied.IsTerminal())

	assert.True(t, ClaimStatusSubmitted.CanRecordResponse())
	assert.True(t, ClaimStatusInReview.CanRecordResponse())
	assert.True(t, ClaimStatusAppealed.CanRecordResponse())
	assert.True(t, ClaimStatusApproved.CanRecordResponse())
	assert.True(t, ClaimStatusPartiallyApproved.CanRecordResponse())
	assert.False(t, ClaimStatusDraft.CanRecordResponse())
	assert.False(t, ClaimStatusPaid.CanRecordResponse())
	assert.False(t, ClaimStatusClosed.CanRecordResponse())

	assert.False(t, ClaimStatus("UNKNOWN").IsValid())
	assert.True(t, ClaimStatusPartiallyApproved.IsValid())
}
