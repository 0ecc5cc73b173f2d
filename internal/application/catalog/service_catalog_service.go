package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/catalog"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ServiceCatalogService provides application-level service code operations
type ServiceCatalogService struct {
	repo catalog.ServiceCodeRepository
}

// NewServiceCatalogService creates a new ServiceCatalogService
func NewServiceCatalogService(repo catalog.ServiceCodeRepository) *ServiceCatalogService {
	return &ServiceCatalogService{repo: repo}
}

// CreateServiceCodeRequest creates a billable service code
type CreateServiceCodeRequest struct {
	Code         string               `json:"code" binding:"required"`
	Description  string               `json:"description" binding:"required"`
	DefaultRate  decimal.Decimal      `json:"default_rate"`
	BillableUnit catalog.BillableUnit `json:"billable_unit" binding:"required"`
}

// UpdateServiceCodeRequest updates a service code. Nil pointers leave the
// current value unchanged; rate changes never touch existing invoices.
type UpdateServiceCodeRequest struct {
	Description  *string               `json:"description"`
	DefaultRate  *decimal.Decimal      `json:"default_rate"`
	BillableUnit *catalog.BillableUnit `json:"billable_unit"`
}

// ServiceCodeListFilter defines the query parameters for listing service codes
type ServiceCodeListFilter struct {
	Active   *bool                 `form:"active"`
	Unit     *catalog.BillableUnit `form:"unit"`
	Search   string                `form:"search"`
	Page     int                   `form:"page"`
	PageSize int                   `form:"page_size"`
}

// ServiceCodeResponse represents a service code in API responses
type ServiceCodeResponse struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	DefaultRate  decimal.Decimal `json:"default_rate"`
	BillableUnit string          `json:"billable_unit"`
	Active       bool            `json:"active"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toServiceCodeResponse(sc *catalog.ServiceCode) *ServiceCodeResponse {
	return &ServiceCodeResponse{
		ID:           sc.ID,
		Code:         sc.Code,
		Description:  sc.Description,
		DefaultRate:  sc.DefaultRate,
		BillableUnit: sc.BillableUnit.String(),
		Active:       sc.Active,
		Version:      sc.Version,
		CreatedAt:    sc.CreatedAt,
		UpdatedAt:    sc.UpdatedAt,
	}
}

// CreateServiceCode creates a service code with a unique code
func (s *ServiceCatalogService) CreateServiceCode(ctx context.Context, req CreateServiceCodeRequest, actorID uuid.UUID) (*ServiceCodeResponse, error) {
	sc, err := catalog.NewServiceCode(req.Code, req.Description, valueobject.NewMoneyUSD(req.DefaultRate), req.BillableUnit, actorID)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByCode(ctx, sc.Code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Service code %s already exists", sc.Code)
	}

	if err := s.repo.Save(ctx, sc); err != nil {
		return nil, err
	}
	return toServiceCodeResponse(sc), nil
}

// GetServiceCode gets a service code by ID
func (s *ServiceCatalogService) GetServiceCode(ctx context.Context, id uuid.UUID) (*ServiceCodeResponse, error) {
	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, shared.NewNotFoundError("Service code")
	}
	return toServiceCodeResponse(sc), nil
}

// GetServiceCodeByCode gets a service code by its natural key
func (s *ServiceCatalogService) GetServiceCodeByCode(ctx context.Context, code string) (*ServiceCodeResponse, error) {
	sc, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, shared.NewNotFoundError("Service code")
	}
	return toServiceCodeResponse(sc), nil
}

// ListServiceCodes lists service codes with filtering
func (s *ServiceCatalogService) ListServiceCodes(ctx context.Context, filter ServiceCodeListFilter) ([]ServiceCodeResponse, int64, error) {
	domainFilter := catalog.ServiceCodeFilter{
		Active: filter.Active,
		Unit:   filter.Unit,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	codes, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ServiceCodeResponse, 0, len(codes))
	for i := range codes {
		responses = append(responses, *toServiceCodeResponse(&codes[i]))
	}
	return responses, total, nil
}

// UpdateServiceCode updates a service code's description, rate, or unit
func (s *ServiceCatalogService) UpdateServiceCode(ctx context.Context, id uuid.UUID, req UpdateServiceCodeRequest) (*ServiceCodeResponse, error) {
	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, shared.NewNotFoundError("Service code")
	}

	if req.Description != nil {
		if err := sc.UpdateDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	if req.DefaultRate != nil {
		if err := sc.UpdateRate(valueobject.NewMoneyUSD(*req.DefaultRate)); err != nil {
			return nil, err
		}
	}
	if req.BillableUnit != nil {
		if err := sc.UpdateBillableUnit(*req.BillableUnit); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, sc); err != nil {
		return nil, err
	}
	return toServiceCodeResponse(sc), nil
}

// DeactivateServiceCode retires a service code from new invoices
func (s *ServiceCatalogService) DeactivateServiceCode(ctx context.Context, id uuid.UUID) (*ServiceCodeResponse, error) {
	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, shared.NewNotFoundError("Service code")
	}
	sc.Deactivate()
	if err := s.repo.Save(ctx, sc); err != nil {
		return nil, err
	}
	return toServiceCodeResponse(sc), nil
}

// ActivateServiceCode returns a retired service code to use
func (s *ServiceCatalogService) ActivateServiceCode(ctx context.Context, id uuid.UUID) (*ServiceCodeResponse, error) {
	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, shared.NewNotFoundError("Service code")
	}
	sc.Activate()
	if err := s.repo.Save(ctx, sc); err != nil {
		return nil, err
	}
	return toServiceCodeResponse(sc), nil
}

// DeleteServiceCode deletes a service code that no invoice references.
// Referenced codes must be deactivated instead so historical invoices keep
// resolving.
func (s *ServiceCatalogService) DeleteServiceCode(ctx context.Context, id uuid.UUID) error {
	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if sc == nil {
		return shared.NewNotFoundError("Service code")
	}

	refs, err := s.repo.CountLineItemReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return shared.NewConflictError("Service code %s is referenced by %d invoice line item(s); deactivate it instead", sc.Code, refs)
	}

	return s.repo.Delete(ctx, id)
}
