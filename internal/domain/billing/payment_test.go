package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	invoiceID := uuid.New()
	userID := uuid.New()
	amount := valueobject.NewMoneyUSDFromFloat(200)

	t.Run("creates valid payment", func(t *testing.T) {
		p, err := NewPayment(invoiceID, amount, time.Now(), PaymentMethodCard, "ch_123", userID)
		require.NoError(t, err)
		assert.Equal(t, invoiceID, p.InvoiceID)
		assert.Equal(t, 200.0, p.GetAmountMoney().Float64())
		assert.Equal(t, PaymentMethodCard, p.Method)
		assert.Equal(t, "ch_123", p.ReferenceNumber)
		require.NotNil(t, p.ReceivedBy)
		assert.Equal(t, userID, *p.ReceivedBy)

		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "PaymentApplied", events[0].EventType())
	})

	t.Run("defaults date to now", func(t *testing.T) {
		p, err := NewPayment(invoiceID, amount, time.Time{}, PaymentMethodCash, "", userID)
		require.NoError(t, err)
		assert.False(t, p.Date.IsZero())
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := NewPayment(invoiceID, valueobject.ZeroUSD(), time.Now(), PaymentMethodCash, "", userID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeValidation, domainErr.Code)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		_, err := NewPayment(invoiceID, valueobject.NewMoneyUSDFromFloat(-5), time.Now(), PaymentMethodCash, "", userID)
		assert.Error(t, err)
	})

	t.Run("rejects invalid method", func(t *testing.T) {
		_, err := NewPayment(invoiceID, amount, time.Now(), PaymentMethod("BITCOIN"), "", userID)
		assert.Error(t, err)
	})

	t.Run("rejects missing invoice", func(t *testing.T) {
		_, err := NewPayment(uuid.Nil, amount, time.Now(), PaymentMethodCash, "", userID)
		assert.Error(t, err)
	})
}

func TestPaymentClaimLink(t *testing.T) {
	p, err := NewPayment(uuid.New(), valueobject.NewMoneyUSDFromFloat(150), time.Now(), PaymentMethodInsurance, "", uuid.New())
	require.NoError(t, err)
	assert.True(t, p.IsInsurancePayment())

	claimID := uuid.New()
	require.NoError(t, p.LinkInsuranceClaim(claimID))
	require.NotNil(t, p.InsuranceClaimID)
	assert.Equal(t, claimID, *p.InsuranceClaimID)

	assert.Error(t, p.LinkInsuranceClaim(uuid.Nil))
}

func TestPaymentUpdateAmount(t *testing.T) {
	p, err := NewPayment(uuid.New(), valueobject.NewMoneyUSDFromFloat(100), time.Now(), PaymentMethodCheck, "1001", uuid.New())
	require.NoError(t, err)
	versionBefore := p.Version

	require.NoError(t, p.UpdateAmount(valueobject.NewMoneyUSDFromFloat(80)))
	assert.Equal(t, 80.0, p.GetAmountMoney().Float64())
	assert.Equal(t, versionBefore+1, p.Version)

	assert.Error(t, p.UpdateAmount(valueobject.ZeroUSD()))
	assert.Error(t, p.UpdateAmount(valueobject.NewMoneyUSDFromFloat(-10)))
}

func TestPaymentUpdateDetails(t *testing.T) {
	p, err := NewPayment(uuid.New(), valueobject.NewMoneyUSDFromFloat(100), time.Now(), PaymentMethodCheck, "1001", uuid.New())
	require.NoError(t, err)

	newDate := time.Now().Add(-24 * time.Hour)
	require.NoError(t, p.UpdateDetails(newDate, PaymentMethodBankTransfer, "wire-42"))
	assert.Equal(t, PaymentMethodBankTransfer, p.Method)
	assert.Equal(t, "wire-42", p.ReferenceNumber)
	assert.True(t, p.Date.Equal(newDate))

	assert.Error(t, p.UpdateDetails(time.Now(), PaymentMethod(""), ""))
}

func TestPaymentMethodIsValid(t *testing.T) {
	valid := []PaymentMethod{
		PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCash,
		PaymentMethodCheck, PaymentMethodInsurance, PaymentMethodFundingProgram,
		PaymentMethodOther,
	}
	for _, m := range valid {
		assert.True(t, m.IsValid(), m.String())
	}
	assert.False(t, PaymentMethod("VENMO").IsValid())
}
