package handler

import (
	"github.com/gin-gonic/gin"
	fundingapp "github.com/pms/backend/internal/application/funding"
)

// FundingHandler handles insurance provider and funding program API endpoints
type FundingHandler struct {
	BaseHandler
	fundingService *fundingapp.FundingService
}

// NewFundingHandler creates a new FundingHandler
func NewFundingHandler(fundingService *fundingapp.FundingService) *FundingHandler {
	return &FundingHandler{fundingService: fundingService}
}

// RegisterRoutes registers funding routes on the API group
func (h *FundingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	providers := rg.Group("/funding/providers")
	{
		providers.POST("", h.CreateProvider)
		providers.GET("", h.ListProviders)
		providers.GET("/:id", h.GetProvider)
		providers.PUT("/:id", h.UpdateProvider)
		providers.POST("/:id/activate", h.ActivateProvider)
		providers.POST("/:id/deactivate", h.DeactivateProvider)
		providers.DELETE("/:id", h.DeleteProvider)
	}

	programs := rg.Group("/funding/programs")
	{
		programs.POST("", h.CreateProgram)
		programs.GET("", h.ListPrograms)
		programs.GET("/:id", h.GetProgram)
		programs.PUT("/:id", h.UpdateProgram)
		programs.POST("/:id/activate", h.ActivateProgram)
		programs.POST("/:id/deactivate", h.DeactivateProgram)
		programs.DELETE("/:id", h.DeleteProgram)
	}
}

// CreateProvider creates an insurance provider
func (h *FundingHandler) CreateProvider(c *gin.Context) {
	var req fundingapp.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	provider, err := h.fundingService.CreateProvider(c.Request.Context(), req, getActingUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, provider)
}

// GetProvider retrieves an insurance provider
func (h *FundingHandler) GetProvider(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid provider ID format")
		return
	}

	provider, err := h.fundingService.GetProvider(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, provider)
}

// ListProviders lists insurance providers with filtering and pagination
func (h *FundingHandler) ListProviders(c *gin.Context) {
	var filter fundingapp.ProviderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	providers, total, err := h.fundingService.ListProviders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, providers, total, filter.Page, filter.PageSize)
}

// UpdateProvider updates an insurance provider
func (h *FundingHandler) UpdateProvider(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid provider ID format")
		return
	}

	var req fundingapp.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	provider, err := h.fundingService.UpdateProvider(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, provider)
}

// ActivateProvider re-activates an insurance provider
func (h *FundingHandler) ActivateProvider(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid provider ID format")
		return
	}

	provider, err := h.fundingService.ActivateProvider(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, provider)
}

// DeactivateProvider retires an insurance provider from new claims
func (h *FundingHandler) DeactivateProvider(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid provider ID format")
		return
	}

	provider, err := h.fundingService.DeactivateProvider(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, provider)
}

// DeleteProvider removes an unreferenced insurance provider
func (h *FundingHandler) DeleteProvider(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid provider ID format")
		return
	}

	if err := h.fundingService.DeleteProvider(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// CreateProgram creates a funding program
func (h *FundingHandler) CreateProgram(c *gin.Context) {
	var req fundingapp.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	program, err := h.fundingService.CreateProgram(c.Request.Context(), req, getActingUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, program)
}

// GetProgram retrieves a funding program
func (h *FundingHandler) GetProgram(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid program ID format")
		return
	}

	program, err := h.fundingService.GetProgram(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, program)
}

// ListPrograms lists funding programs with filtering and pagination
func (h *FundingHandler) ListPrograms(c *gin.Context) {
	var filter fundingapp.ProgramListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	programs, total, err := h.fundingService.ListPrograms(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, programs, total, filter.Page, filter.PageSize)
}

// UpdateProgram updates a funding program
func (h *FundingHandler) UpdateProgram(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid program ID format")
		return
	}

	var req fundingapp.UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	program, err := h.fundingService.UpdateProgram(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, program)
}

// ActivateProgram re-activates a funding program
func (h *FundingHandler) ActivateProgram(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid program ID format")
		return
	}

	program, err := h.fundingService.ActivateProgram(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, program)
}

// DeactivateProgram retires a funding program from new invoices
func (h *FundingHandler) DeactivateProgram(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid program ID format")
		return
	}

	program, err := h.fundingService.DeactivateProgram(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, program)
}

// DeleteProgram removes an unreferenced funding program
func (h *FundingHandler) DeleteProgram(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid program ID format")
		return
	}

	if err := h.fundingService.DeleteProgram(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
