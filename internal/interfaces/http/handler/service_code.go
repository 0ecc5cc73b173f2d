package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/pms/backend/internal/application/catalog"
)

// ServiceCodeHandler handles service catalog API endpoints
type ServiceCodeHandler struct {
	BaseHandler
	catalogService *catalogapp.ServiceCatalogService
}

// NewServiceCodeHandler creates a new ServiceCodeHandler
func NewServiceCodeHandler(catalogService *catalogapp.ServiceCatalogService) *ServiceCodeHandler {
	return &ServiceCodeHandler{catalogService: catalogService}
}

// RegisterRoutes registers service code routes on the API group
func (h *ServiceCodeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	codes := rg.Group("/catalog/service-codes")
	{
		codes.POST("", h.Create)
		codes.GET("", h.List)
		codes.GET("/code/:code", h.GetByCode)
		codes.GET("/:id", h.GetByID)
		codes.PUT("/:id", h.Update)
		codes.POST("/:id/activate", h.Activate)
		codes.POST("/:id/deactivate", h.Deactivate)
		codes.DELETE("/:id", h.Delete)
	}
}

// Create creates a billable service code
func (h *ServiceCodeHandler) Create(c *gin.Context) {
	var req catalogapp.CreateServiceCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	code, err := h.catalogService.CreateServiceCode(c.Request.Context(), req, getActingUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, code)
}

// GetByID retrieves a service code
func (h *ServiceCodeHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid service code ID format")
		return
	}

	code, err := h.catalogService.GetServiceCode(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, code)
}

// GetByCode retrieves a service code by its natural key
func (h *ServiceCodeHandler) GetByCode(c *gin.Context) {
	code, err := h.catalogService.GetServiceCodeByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, code)
}

// List lists service codes with filtering and pagination
func (h *ServiceCodeHandler) List(c *gin.Context) {
	var filter catalogapp.ServiceCodeListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	codes, total, err := h.catalogService.ListServiceCodes(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, codes, total, filter.Page, filter.PageSize)
}

// Update updates a service code. Rate changes never touch existing invoices.
func (h *ServiceCodeHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid service code ID format")
		return
	}

	var req catalogapp.UpdateServiceCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	code, err := h.catalogService.UpdateServiceCode(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, code)
}

// Activate re-activates a service code for new invoicing
func (h *ServiceCodeHandler) Activate(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid service code ID format")
		return
	}

	code, err := h.catalogService.ActivateServiceCode(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, code)
}

// Deactivate retires a service code from new invoicing
func (h *ServiceCodeHandler) Deactivate(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid service code ID format")
		return
	}

	code, err := h.catalogService.DeactivateServiceCode(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, code)
}

// Delete removes a service code that no invoice line item references
func (h *ServiceCodeHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid service code ID format")
		return
	}

	if err := h.catalogService.DeleteServiceCode(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
