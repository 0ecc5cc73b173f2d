package funding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/funding"
	"github.com/pms/backend/internal/domain/shared"
)

// FundingService provides application-level operations for insurance
// providers and funding programs
type FundingService struct {
	providerRepo funding.InsuranceProviderRepository
	programRepo  funding.FundingProgramRepository
}

// NewFundingService creates a new FundingService
func NewFundingService(
	providerRepo funding.InsuranceProviderRepository,
	programRepo funding.FundingProgramRepository,
) *FundingService {
	return &FundingService{
		providerRepo: providerRepo,
		programRepo:  programRepo,
	}
}

// ===================== Insurance Provider Operations =====================

// CreateProviderRequest creates an insurance provider
type CreateProviderRequest struct {
	Name         string `json:"name" binding:"required"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
}

// UpdateProviderRequest updates an insurance provider. Nil pointers leave
// the current value unchanged.
type UpdateProviderRequest struct {
	Name         *string `json:"name"`
	ContactEmail *string `json:"contact_email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
}

// ProviderListFilter defines the query parameters for listing providers
type ProviderListFilter struct {
	Active   *bool  `form:"active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ProviderResponse represents an insurance provider in API responses
type ProviderResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Active       bool      `json:"active"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toProviderResponse(p *funding.InsuranceProvider) *ProviderResponse {
	return &ProviderResponse{
		ID:           p.ID,
		Name:         p.Name,
		ContactEmail: p.ContactEmail,
		Phone:        p.Phone,
		Address:      p.Address,
		Active:       p.Active,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// CreateProvider creates an insurance provider with a unique name
func (s *FundingService) CreateProvider(ctx context.Context, req CreateProviderRequest, actorID uuid.UUID) (*ProviderResponse, error) {
	provider, err := funding.NewInsuranceProvider(req.Name, req.ContactEmail, req.Phone, req.Address, actorID)
	if err != nil {
		return nil, err
	}

	taken, err := s.providerRepo.ExistsByName(ctx, provider.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Insurance provider %q already exists", provider.Name)
	}

	if err := s.providerRepo.Save(ctx, provider); err != nil {
		return nil, err
	}
	return toProviderResponse(provider), nil
}

// GetProvider gets a provider by ID
func (s *FundingService) GetProvider(ctx context.Context, id uuid.UUID) (*ProviderResponse, error) {
	provider, err := s.providerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, shared.NewNotFoundError("Insurance provider")
	}
	return toProviderResponse(provider), nil
}

// ListProviders lists providers with filtering
func (s *FundingService) ListProviders(ctx context.Context, filter ProviderListFilter) ([]ProviderResponse, int64, error) {
	domainFilter := funding.ProviderFilter{Active: filter.Active}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	providers, err := s.providerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.providerRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ProviderResponse, 0, len(providers))
	for i := range providers {
		responses = append(responses, *toProviderResponse(&providers[i]))
	}
	return responses, total, nil
}

// UpdateProvider updates a provider's name and contact details
func (s *FundingService) UpdateProvider(ctx context.Context, id uuid.UUID, req UpdateProviderRequest) (*ProviderResponse, error) {
	provider, err := s.providerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, shared.NewNotFoundError("Insurance provider")
	}

	if req.Name != nil && *req.Name != provider.Name {
		taken, err := s.providerRepo.ExistsByName(ctx, *req.Name)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Insurance provider %q already exists", *req.Name)
		}
		if err := provider.Rename(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.ContactEmail != nil || req.Phone != nil || req.Address != nil {
		email := provider.ContactEmail
		if req.ContactEmail != nil {
			email = *req.ContactEmail
		}
		phone := provider.Phone
		if req.Phone != nil {
			phone = *req.Phone
		}
		address := provider.Address
		if req.Address != nil {
			address = *req.Address
		}
		if err := provider.UpdateContact(email, phone, address); err != nil {
			return nil, err
		}
	}

	if err := s.providerRepo.Save(ctx, provider); err != nil {
		return nil, err
	}
	return toProviderResponse(provider), nil
}

// DeactivateProvider retires a provider from new invoices and claims
func (s *FundingService) DeactivateProvider(ctx context.Context, id uuid.UUID) (*ProviderResponse, error) {
	provider, err := s.providerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, shared.NewNotFoundError("Insurance provider")
	}
	provider.Deactivate()
	if err := s.providerRepo.Save(ctx, provider); err != nil {
		return nil, err
	}
	return toProviderResponse(provider), nil
}

// ActivateProvider returns a retired provider to use
func (s *FundingService) ActivateProvider(ctx context.Context, id uuid.UUID) (*ProviderResponse, error) {
	provider, err := s.providerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, shared.NewNotFoundError("Insurance provider")
	}
	provider.Activate()
	if err := s.providerRepo.Save(ctx, provider); err != nil {
		return nil, err
	}
	return toProviderResponse(provider), nil
}

// DeleteProvider deletes a provider that no invoice or claim references
func (s *FundingService) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	provider, err := s.providerRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if provider == nil {
		return shared.NewNotFoundError("Insurance provider")
	}

	refs, err := s.providerRepo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return shared.NewConflictError("Insurance provider %q is referenced by %d record(s); deactivate it instead", provider.Name, refs)
	}

	return s.providerRepo.Delete(ctx, id)
}

// ===================== Funding Program Operations =====================

// CreateProgramRequest creates a funding program
type CreateProgramRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	ProviderID  *uuid.UUID `json:"provider_id"`
}

// UpdateProgramRequest updates a funding program. Nil pointers leave the
// current value unchanged; setting ProviderID to the nil UUID unlinks.
type UpdateProgramRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	ProviderID  *uuid.UUID `json:"provider_id"`
}

// ProgramListFilter defines the query parameters for listing programs
type ProgramListFilter struct {
	Active     *bool      `form:"active"`
	ProviderID *uuid.UUID `form:"provider_id"`
	Search     string     `form:"search"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}

// ProgramResponse represents a funding program in API responses
type ProgramResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ProviderID  *uuid.UUID `json:"provider_id,omitempty"`
	Active      bool       `json:"active"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toProgramResponse(fp *funding.FundingProgram) *ProgramResponse {
	return &ProgramResponse{
		ID:          fp.ID,
		Name:        fp.Name,
		Description: fp.Description,
		ProviderID:  fp.ProviderID,
		Active:      fp.Active,
		Version:     fp.Version,
		CreatedAt:   fp.CreatedAt,
		UpdatedAt:   fp.UpdatedAt,
	}
}

// CreateProgram creates a funding program with a unique name
func (s *FundingService) CreateProgram(ctx context.Context, req CreateProgramRequest, actorID uuid.UUID) (*ProgramResponse, error) {
	if req.ProviderID != nil {
		provider, err := s.providerRepo.FindByID(ctx, *req.ProviderID)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, shared.NewNotFoundError("Insurance provider")
		}
	}

	program, err := funding.NewFundingProgram(req.Name, req.Description, req.ProviderID, actorID)
	if err != nil {
		return nil, err
	}

	taken, err := s.programRepo.ExistsByName(ctx, program.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Funding program %q already exists", program.Name)
	}

	if err := s.programRepo.Save(ctx, program); err != nil {
		return nil, err
	}
	return toProgramResponse(program), nil
}

// GetProgram gets a program by ID
func (s *FundingService) GetProgram(ctx context.Context, id uuid.UUID) (*ProgramResponse, error) {
	program, err := s.programRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, shared.NewNotFoundError("Funding program")
	}
	return toProgramResponse(program), nil
}

// ListPrograms lists programs with filtering
func (s *FundingService) ListPrograms(ctx context.Context, filter ProgramListFilter) ([]ProgramResponse, int64, error) {
	domainFilter := funding.ProgramFilter{
		Active:     filter.Active,
		ProviderID: filter.ProviderID,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	programs, err := s.programRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.programRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ProgramResponse, 0, len(programs))
	for i := range programs {
		responses = append(responses, *toProgramResponse(&programs[i]))
	}
	return responses, total, nil
}

// UpdateProgram updates a program's name, description, or provider link
func (s *FundingService) UpdateProgram(ctx context.Context, id uuid.UUID, req UpdateProgramRequest) (*ProgramResponse, error) {
	program, err := s.programRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, shared.NewNotFoundError("Funding program")
	}

	if req.Name != nil && *req.Name != program.Name {
		taken, err := s.programRepo.ExistsByName(ctx, *req.Name)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Funding program %q already exists", *req.Name)
		}
		if err := program.Rename(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		program.UpdateDescription(*req.Description)
	}
	if req.ProviderID != nil {
		if *req.ProviderID == uuid.Nil {
			program.UnlinkProvider()
		} else {
			provider, err := s.providerRepo.FindByID(ctx, *req.ProviderID)
			if err != nil {
				return nil, err
			}
			if provider == nil {
				return nil, shared.NewNotFoundError("Insurance provider")
			}
			if err := program.LinkProvider(*req.ProviderID); err != nil {
				return nil, err
			}
		}
	}

	if err := s.programRepo.Save(ctx, program); err != nil {
		return nil, err
	}
	return toProgramResponse(program), nil
}

// DeactivateProgram retires a program from new invoices
func (s *FundingService) DeactivateProgram(ctx context.Context, id uuid.UUID) (*ProgramResponse, error) {
	program, err := s.programRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, shared.NewNotFoundError("Funding program")
	}
	program.Deactivate()
	if err := s.programRepo.Save(ctx, program); err != nil {
		return nil, err
	}
	return toProgramResponse(program), nil
}

// ActivateProgram returns a retired program to use
func (s *FundingService) ActivateProgram(ctx context.Context, id uuid.UUID) (*ProgramResponse, error) {
	program, err := s.programRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, shared.NewNotFoundError("Funding program")
	}
	program.Activate()
	if err := s.programRepo.Save(ctx, program); err != nil {
		return nil, err
	}
	return toProgramResponse(program), nil
}

// DeleteProgram deletes a program that no invoice references
func (s *FundingService) DeleteProgram(ctx context.Context, id uuid.UUID) error {
	program, err := s.programRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if program == nil {
		return shared.NewNotFoundError("Funding program")
	}

	refs, err := s.programRepo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return shared.NewConflictError("Funding program %q is referenced by %d invoice(s); deactivate it instead", program.Name, refs)
	}

	return s.programRepo.Delete(ctx, id)
}
