// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides ledger-level metrics for the billing engine.
// It tracks invoice issuance, payment activity, and claim outcomes.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	invoiceIssuedTotal *Counter
	invoiceAmountTotal *Counter
	paymentTotal       *Counter
	claimTotal         *Counter

	// Gauge metrics (point-in-time values)
	overdueInvoiceCount    *Gauge
	outstandingAmountTotal *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	ledgerProvider LedgerMetricsProvider
}

// LedgerMetricsProvider provides ledger data for periodic metrics collection.
// This interface lets the telemetry layer query ledger state without depending
// on the billing domain directly.
type LedgerMetricsProvider interface {
	// GetOverdueInvoiceCount returns the number of invoices currently overdue
	GetOverdueInvoiceCount(ctx context.Context) (int64, error)

	// GetOutstandingTotal returns the total unpaid balance across open invoices
	GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	LedgerProvider  LedgerMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		ledgerProvider: cfg.LedgerProvider,
	}

	// Initialize counter metrics
	var err error

	// Invoice metrics
	bm.invoiceIssuedTotal, err = NewCounter(
		cfg.Meter,
		"pms_invoice_issued_total",
		"Total number of invoices issued",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoiceAmountTotal, err = NewCounter(
		cfg.Meter,
		"pms_invoice_amount_total",
		"Total invoiced amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Payment metrics
	bm.paymentTotal, err = NewCounter(
		cfg.Meter,
		"pms_payment_total",
		"Total number of payments applied",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	// Claim metrics
	bm.claimTotal, err = NewCounter(
		cfg.Meter,
		"pms_claim_total",
		"Total number of insurance claim transitions",
		"{claims}",
	)
	if err != nil {
		return nil, err
	}

	// Ledger gauge metrics
	bm.overdueInvoiceCount, err = NewGauge(
		cfg.Meter,
		"pms_invoice_overdue_count",
		"Number of invoices currently overdue",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.outstandingAmountTotal, err = NewFloatGauge(
		cfg.Meter,
		"pms_invoice_outstanding_total",
		"Total unpaid balance across open invoices",
		"{usd}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Invoice Metrics
// =============================================================================

// RecordInvoiceIssued records an invoice send event.
// This should be called from the application layer when an invoice moves to SENT.
func (bm *BusinessMetrics) RecordInvoiceIssued(ctx context.Context, status string) {
	bm.invoiceIssuedTotal.Inc(ctx,
		AttrInvoiceStatus.String(status),
	)
}

// RecordInvoiceAmount records the invoiced total.
// Amount should be in the smallest currency unit (cents).
func (bm *BusinessMetrics) RecordInvoiceAmount(ctx context.Context, amountCents int64) {
	bm.invoiceAmountTotal.Add(ctx, amountCents)
}

// RecordInvoiceWithAmount is a convenience method that records both count and amount.
func (bm *BusinessMetrics) RecordInvoiceWithAmount(ctx context.Context, status string, amount decimal.Decimal) {
	bm.RecordInvoiceIssued(ctx, status)

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.RecordInvoiceAmount(ctx, amountCents)
}

// =============================================================================
// Payment Metrics
// =============================================================================

// RecordPayment records a payment application.
// This should be called when a payment is applied to an invoice.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, paymentMethod string, invoiceStatus string) {
	bm.paymentTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
		AttrInvoiceStatus.String(invoiceStatus),
	)
}

// =============================================================================
// Claim Metrics
// =============================================================================

// RecordClaimTransition records an insurance claim status transition.
func (bm *BusinessMetrics) RecordClaimTransition(ctx context.Context, claimStatus string) {
	bm.claimTotal.Inc(ctx,
		AttrClaimStatus.String(claimStatus),
	)
}

// =============================================================================
// Ledger Gauge Metrics
// =============================================================================

// RecordOverdueCount records the number of invoices currently overdue.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOverdueCount(ctx context.Context, count int64) {
	bm.overdueInvoiceCount.Record(ctx, count)
}

// RecordOutstandingTotal records the total unpaid balance across open invoices.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOutstandingTotal(ctx context.Context, total decimal.Decimal) {
	f, _ := total.Float64()
	bm.outstandingAmountTotal.Record(ctx, f)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects ledger metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectLedgerMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectLedgerMetrics(ctx)
		}
	}
}

// collectLedgerMetrics collects ledger gauge metrics.
func (bm *BusinessMetrics) collectLedgerMetrics(ctx context.Context) {
	if bm.ledgerProvider == nil {
		bm.logger.Debug("No ledger provider configured, skipping ledger metrics collection")
		return
	}

	overdueCount, err := bm.ledgerProvider.GetOverdueInvoiceCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get overdue invoice count", zap.Error(err))
	} else {
		bm.RecordOverdueCount(ctx, overdueCount)
	}

	outstanding, err := bm.ledgerProvider.GetOutstandingTotal(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get outstanding total", zap.Error(err))
	} else {
		bm.RecordOutstandingTotal(ctx, outstanding)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
