package handler

import (
	"github.com/gin-gonic/gin"
	billingapp "github.com/pms/backend/internal/application/billing"
)

// ClaimHandler handles insurance claim API endpoints
type ClaimHandler struct {
	BaseHandler
	claimService *billingapp.ClaimService
}

// NewClaimHandler creates a new ClaimHandler
func NewClaimHandler(claimService *billingapp.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// RegisterRoutes registers claim routes on the API group
func (h *ClaimHandler) RegisterRoutes(rg *gin.RouterGroup) {
	claims := rg.Group("/billing/claims")
	{
		claims.POST("", h.Create)
		claims.GET("", h.List)
		claims.GET("/:id", h.GetByID)
		claims.PUT("/:id/line-items", h.UpdateLineItems)
		claims.POST("/:id/submit", h.Submit)
		claims.POST("/:id/review", h.BeginReview)
		claims.POST("/:id/response", h.RecordResponse)
		claims.POST("/:id/appeal", h.Appeal)
		claims.POST("/:id/close", h.Close)
		claims.DELETE("/:id", h.Delete)
	}
}

// Create files a DRAFT claim over insurance-eligible line items
func (h *ClaimHandler) Create(c *gin.Context) {
	var req billingapp.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	claim, err := h.claimService.CreateClaim(c.Request.Context(), req, getActingUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, claim)
}

// GetByID retrieves a claim with its line-item references
func (h *ClaimHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	claim, err := h.claimService.GetClaim(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, claim)
}

// List lists claims with filtering and pagination
func (h *ClaimHandler) List(c *gin.Context) {
	var filter billingapp.ClaimListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	claims, total, err := h.claimService.ListClaims(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, claims, total, filter.Page, filter.PageSize)
}

// UpdateLineItems replaces the line-item set of a DRAFT claim
func (h *ClaimHandler) UpdateLineItems(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	var req billingapp.UpdateClaimLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	claim, err := h.claimService.UpdateClaimLineItems(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, claim)
}

// Submit transitions a claim from DRAFT to SUBMITTED
func (h *ClaimHandler) Submit(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	result, err := h.claimService.SubmitClaim(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// BeginReview marks a submitted claim as IN_REVIEW
func (h *ClaimHandler) BeginReview(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	claim, err := h.claimService.BeginClaimReview(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, claim)
}

// RecordResponse records the funding source's adjudication. When the claim
// was filed with auto-generated payments, an approved response also books
// the insurance payment against the invoice.
func (h *ClaimHandler) RecordResponse(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	var req billingapp.RecordClaimResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.claimService.RecordClaimResponse(c.Request.Context(), id, req, getActingUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Appeal contests a denied or partially approved claim
func (h *ClaimHandler) Appeal(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	var req billingapp.AppealClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.claimService.AppealClaim(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Close closes an adjudicated claim
func (h *ClaimHandler) Close(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	claim, err := h.claimService.CloseClaim(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, claim)
}

// Delete removes a DRAFT claim
func (h *ClaimHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	if err := h.claimService.DeleteClaim(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
