package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// ReportCache caches rendered report payloads. Reports are derived data;
// a cache miss or cache failure only costs a recomputation, so cache
// errors are recorded and otherwise ignored.
type ReportCache interface {
	// Get loads a cached report into dest, returning false on a miss
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores a report payload with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// NoOpReportCache is a ReportCache that never hits. Useful for tests.
type NoOpReportCache struct{}

// Get always misses
func (NoOpReportCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

// Set discards the value
func (NoOpReportCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

var _ ReportCache = (*NoOpReportCache)(nil)

// ReportService computes read-only ledger reports
type ReportService struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	claimRepo   billing.ClaimRepository
	cache       ReportCache
	cacheTTL    time.Duration
}

// NewReportService creates a new ReportService
func NewReportService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	claimRepo billing.ClaimRepository,
	cache ReportCache,
	cacheTTL time.Duration,
) *ReportService {
	if cache == nil {
		cache = NoOpReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		claimRepo:   claimRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// RevenueReport summarizes payments received within a date range
type RevenueReport struct {
	From         time.Time                  `json:"from"`
	To           time.Time                  `json:"to"`
	TotalRevenue decimal.Decimal            `json:"total_revenue"`
	PaymentCount int                        `json:"payment_count"`
	ByMethod     map[string]decimal.Decimal `json:"by_method"`
}

// GetRevenueReport computes revenue received in [from, to]
func (s *ReportService) GetRevenueReport(ctx context.Context, from, to time.Time) (*RevenueReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "revenue_report")
	defer span.End()

	key := fmt.Sprintf("reports:revenue:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached RevenueReport
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		telemetry.RecordError(span, err)
	} else if hit {
		telemetry.AddEvent(span, "cache_hit")
		return &cached, nil
	}

	filter := billing.PaymentFilter{From: &from, To: &to}
	filter.PageSize = -1
	payments, err := s.paymentRepo.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &RevenueReport{
		From:     from,
		To:       to,
		ByMethod: make(map[string]decimal.Decimal),
	}
	total := decimal.Zero
	for i := range payments {
		p := &payments[i]
		total = total.Add(p.Amount)
		method := p.Method.String()
		report.ByMethod[method] = report.ByMethod[method].Add(p.Amount)
	}
	report.TotalRevenue = total
	report.PaymentCount = len(payments)

	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		telemetry.RecordError(span, err)
	}
	return report, nil
}

// AgingBucket is one band of the outstanding-balance aging report
type AgingBucket struct {
	Label        string          `json:"label"`
	InvoiceCount int             `json:"invoice_count"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// OutstandingReport summarizes unpaid balances bucketed by days overdue
type OutstandingReport struct {
	AsOf             time.Time       `json:"as_of"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	InvoiceCount     int             `json:"invoice_count"`
	Buckets          []AgingBucket   `json:"buckets"`
}

// agingBucketIndex maps days overdue to a bucket position
func agingBucketIndex(daysOverdue int) int {
	switch {
	case daysOverdue <= 0:
		return 0
	case daysOverdue <= 30:
		return 1
	case daysOverdue <= 60:
		return 2
	case daysOverdue <= 90:
		return 3
	default:
		return 4
	}
}

// GetOutstandingReport computes the aging of unpaid invoice balances
func (s *ReportService) GetOutstandingReport(ctx context.Context, asOf time.Time) (*OutstandingReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "outstanding_report")
	defer span.End()

	key := fmt.Sprintf("reports:outstanding:%s", asOf.Format("2006-01-02"))
	var cached OutstandingReport
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		telemetry.RecordError(span, err)
	} else if hit {
		telemetry.AddEvent(span, "cache_hit")
		return &cached, nil
	}

	minOutstanding := decimal.New(1, -2) // 0.01
	filter := billing.InvoiceFilter{MinOutstanding: &minOutstanding}
	filter.PageSize = -1
	invoices, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &OutstandingReport{
		AsOf: asOf,
		Buckets: []AgingBucket{
			{Label: "current", Outstanding: decimal.Zero},
			{Label: "1-30", Outstanding: decimal.Zero},
			{Label: "31-60", Outstanding: decimal.Zero},
			{Label: "61-90", Outstanding: decimal.Zero},
			{Label: "90+", Outstanding: decimal.Zero},
		},
	}
	total := decimal.Zero
	for i := range invoices {
		inv := &invoices[i]
		if inv.Status == billing.InvoiceStatusDraft || inv.Status.IsTerminal() {
			continue
		}
		outstanding := inv.OutstandingAmount()
		if !outstanding.IsPositive() {
			continue
		}

		days := int(asOf.Sub(inv.DueDate).Hours() / 24)
		bucket := &report.Buckets[agingBucketIndex(days)]
		bucket.InvoiceCount++
		bucket.Outstanding = bucket.Outstanding.Add(outstanding)
		total = total.Add(outstanding)
		report.InvoiceCount++
	}
	report.TotalOutstanding = total

	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		telemetry.RecordError(span, err)
	}
	return report, nil
}

// CollectionRateReport compares billed totals to collected totals for
// invoices issued within a date range
type CollectionRateReport struct {
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	InvoiceCount   int             `json:"invoice_count"`
	TotalBilled    decimal.Decimal `json:"total_billed"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	CollectionRate decimal.Decimal `json:"collection_rate"`
}

// GetCollectionRateReport computes the collected share of what was billed
// in [from, to]. Cancelled and DRAFT invoices are excluded from the base.
func (s *ReportService) GetCollectionRateReport(ctx context.Context, from, to time.Time) (*CollectionRateReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "collection_rate_report")
	defer span.End()

	key := fmt.Sprintf("reports:collection:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached CollectionRateReport
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		telemetry.RecordError(span, err)
	} else if hit {
		telemetry.AddEvent(span, "cache_hit")
		return &cached, nil
	}

	filter := billing.InvoiceFilter{IssuedFrom: &from, IssuedTo: &to}
	filter.PageSize = -1
	invoices, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &CollectionRateReport{From: from, To: to}
	billed := decimal.Zero
	collected := decimal.Zero
	for i := range invoices {
		inv := &invoices[i]
		if inv.Status == billing.InvoiceStatusDraft || inv.Status == billing.InvoiceStatusCancelled {
			continue
		}
		billed = billed.Add(inv.TotalAmount)
		collected = collected.Add(inv.AmountPaid)
		report.InvoiceCount++
	}
	report.TotalBilled = billed
	report.TotalCollected = collected
	if billed.IsPositive() {
		report.CollectionRate = collected.Div(billed).Mul(decimal.NewFromInt(100)).Round(2)
	}

	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		telemetry.RecordError(span, err)
	}
	return report, nil
}

// ProviderClaimSummary aggregates claim standing for one insurance provider
type ProviderClaimSummary struct {
	ProviderID     string                     `json:"provider_id"`
	ClaimCount     int                        `json:"claim_count"`
	TotalClaimed   decimal.Decimal            `json:"total_claimed"`
	TotalPaid      decimal.Decimal            `json:"total_paid"`
	ByStatus       map[string]int             `json:"by_status"`
	AmountByStatus map[string]decimal.Decimal `json:"amount_by_status"`
}

// ClaimStatusReport summarizes claims grouped by provider and status
type ClaimStatusReport struct {
	GeneratedAt time.Time              `json:"generated_at"`
	ClaimCount  int                    `json:"claim_count"`
	Providers   []ProviderClaimSummary `json:"providers"`
}

// GetClaimStatusReport summarizes open and resolved claims per provider
func (s *ReportService) GetClaimStatusReport(ctx context.Context) (*ClaimStatusReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "claim_status_report")
	defer span.End()

	key := "reports:claims:status"
	var cached ClaimStatusReport
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		telemetry.RecordError(span, err)
	} else if hit {
		telemetry.AddEvent(span, "cache_hit")
		return &cached, nil
	}

	filter := billing.ClaimFilter{}
	filter.PageSize = -1
	claims, err := s.claimRepo.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	byProvider := make(map[string]*ProviderClaimSummary)
	order := make([]string, 0)
	for i := range claims {
		c := &claims[i]
		pid := c.InsuranceProviderID.String()
		summary, ok := byProvider[pid]
		if !ok {
			summary = &ProviderClaimSummary{
				ProviderID:     pid,
				ByStatus:       make(map[string]int),
				AmountByStatus: make(map[string]decimal.Decimal),
			}
			byProvider[pid] = summary
			order = append(order, pid)
		}
		status := c.Status.String()
		summary.ClaimCount++
		summary.TotalClaimed = summary.TotalClaimed.Add(c.ClaimedAmount)
		summary.TotalPaid = summary.TotalPaid.Add(c.PaidAmount)
		summary.ByStatus[status]++
		summary.AmountByStatus[status] = summary.AmountByStatus[status].Add(c.ClaimedAmount)
	}

	report := &ClaimStatusReport{
		GeneratedAt: time.Now(),
		ClaimCount:  len(claims),
		Providers:   make([]ProviderClaimSummary, 0, len(order)),
	}
	for _, pid := range order {
		report.Providers = append(report.Providers, *byProvider[pid])
	}

	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		telemetry.RecordError(span, err)
	}
	return report, nil
}
