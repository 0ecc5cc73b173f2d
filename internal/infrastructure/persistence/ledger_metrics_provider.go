package persistence

import (
	"context"

	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/infrastructure/persistence/models"
	"github.com/pms/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerMetricsProvider computes gauge values for the periodic business
// metrics collector from the ledger tables.
type LedgerMetricsProvider struct {
	db *gorm.DB
}

// NewLedgerMetricsProvider creates a new LedgerMetricsProvider
func NewLedgerMetricsProvider(db *gorm.DB) *LedgerMetricsProvider {
	return &LedgerMetricsProvider{db: db}
}

// GetOverdueInvoiceCount returns the number of invoices currently OVERDUE
func (p *LedgerMetricsProvider) GetOverdueInvoiceCount(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("status = ?", billing.InvoiceStatusOverdue).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetOutstandingTotal returns the sum of unpaid balances across all
// non-terminal, non-draft invoices
func (p *LedgerMetricsProvider) GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := p.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("status IN ?", []billing.InvoiceStatus{
			billing.InvoiceStatusSent,
			billing.InvoiceStatusPartiallyPaid,
			billing.InvoiceStatusOverdue,
			billing.InvoiceStatusPendingInsurance,
			billing.InvoiceStatusInsuranceDenied,
		}).
		Select("COALESCE(SUM(total_amount - amount_paid), 0)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Ensure LedgerMetricsProvider satisfies the collector's provider interface
var _ telemetry.LedgerMetricsProvider = (*LedgerMetricsProvider)(nil)
