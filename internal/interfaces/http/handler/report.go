package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/pms/backend/internal/application/billing"
)

const reportDateLayout = "2006-01-02"

// ReportHandler handles ledger report API endpoints
type ReportHandler struct {
	BaseHandler
	reportService *billingapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *billingapp.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RegisterRoutes registers report routes on the API group
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/billing/reports")
	{
		reports.GET("/revenue", h.Revenue)
		reports.GET("/outstanding", h.Outstanding)
		reports.GET("/collection-rate", h.CollectionRate)
		reports.GET("/claim-status", h.ClaimStatus)
	}
}

// parseDateRange reads the required from/to query parameters. To is
// inclusive of the whole day.
func (h *ReportHandler) parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse(reportDateLayout, c.Query("from"))
	if err != nil {
		h.BadRequest(c, "Query parameter 'from' must be a date in YYYY-MM-DD format")
		return time.Time{}, time.Time{}, false
	}

	to, err := time.Parse(reportDateLayout, c.Query("to"))
	if err != nil {
		h.BadRequest(c, "Query parameter 'to' must be a date in YYYY-MM-DD format")
		return time.Time{}, time.Time{}, false
	}

	if to.Before(from) {
		h.BadRequest(c, "Query parameter 'to' must not be before 'from'")
		return time.Time{}, time.Time{}, false
	}

	return from, to, true
}

// Revenue reports payments received within a date range
func (h *ReportHandler) Revenue(c *gin.Context) {
	from, to, ok := h.parseDateRange(c)
	if !ok {
		return
	}

	report, err := h.reportService.GetRevenueReport(c.Request.Context(), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// Outstanding reports unpaid balances as of a date. Defaults to now.
func (h *ReportHandler) Outstanding(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(reportDateLayout, raw)
		if err != nil {
			h.BadRequest(c, "Query parameter 'as_of' must be a date in YYYY-MM-DD format")
			return
		}
		asOf = parsed
	}

	report, err := h.reportService.GetOutstandingReport(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// CollectionRate reports the collected share of amounts invoiced in a range
func (h *ReportHandler) CollectionRate(c *gin.Context) {
	from, to, ok := h.parseDateRange(c)
	if !ok {
		return
	}

	report, err := h.reportService.GetCollectionRateReport(c.Request.Context(), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// ClaimStatus reports claim counts and amounts grouped by status and provider
func (h *ReportHandler) ClaimStatus(c *gin.Context) {
	report, err := h.reportService.GetClaimStatusReport(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
