package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/funding"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInsuranceProviderRepository implements InsuranceProviderRepository using GORM
type GormInsuranceProviderRepository struct {
	db *gorm.DB
}

// NewGormInsuranceProviderRepository creates a new GormInsuranceProviderRepository
func NewGormInsuranceProviderRepository(db *gorm.DB) *GormInsuranceProviderRepository {
	return &GormInsuranceProviderRepository{db: db}
}

// FindByID finds a provider by ID
func (r *GormInsuranceProviderRepository) FindByID(ctx context.Context, id uuid.UUID) (*funding.InsuranceProvider, error) {
	var model models.InsuranceProviderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Insurance provider")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByName finds a provider by its unique name
func (r *GormInsuranceProviderRepository) FindByName(ctx context.Context, name string) (*funding.InsuranceProvider, error) {
	var model models.InsuranceProviderModel
	if err := r.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Insurance provider")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds providers with filtering
func (r *GormInsuranceProviderRepository) FindAll(ctx context.Context, filter funding.ProviderFilter) ([]funding.InsuranceProvider, error) {
	var providerModels []models.InsuranceProviderModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InsuranceProviderModel{}), filter)

	if err := query.Find(&providerModels).Error; err != nil {
		return nil, err
	}

	providers := make([]funding.InsuranceProvider, len(providerModels))
	for i, model := range providerModels {
		providers[i] = *model.ToDomain()
	}
	return providers, nil
}

// Save creates or updates a provider
func (r *GormInsuranceProviderRepository) Save(ctx context.Context, provider *funding.InsuranceProvider) error {
	model := models.InsuranceProviderModelFromDomain(provider)
	err := r.db.WithContext(ctx).Save(model).Error
	if err != nil && isUniqueViolation(err, "") {
		return shared.NewDomainError(shared.CodeAlreadyExists, "An insurance provider with this name already exists")
	}
	return err
}

// Delete removes a provider
func (r *GormInsuranceProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InsuranceProviderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Insurance provider")
	}
	return nil
}

// Count counts providers with optional filters
func (r *GormInsuranceProviderRepository) Count(ctx context.Context, filter funding.ProviderFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.InsuranceProviderModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByName checks if a provider name is already taken
func (r *GormInsuranceProviderRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InsuranceProviderModel{}).
		Where("name = ?", strings.TrimSpace(name)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountReferences counts invoices and claims referencing this provider
func (r *GormInsuranceProviderRepository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var invoiceCount int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("funding_provider_id = ?", id).
		Count(&invoiceCount).Error; err != nil {
		return 0, err
	}

	var claimCount int64
	if err := r.db.WithContext(ctx).
		Model(&models.InsuranceClaimModel{}).
		Where("insurance_provider_id = ?", id).
		Count(&claimCount).Error; err != nil {
		return 0, err
	}

	return invoiceCount + claimCount, nil
}

// applyFilter applies filter options to the query
func (r *GormInsuranceProviderRepository) applyFilter(query *gorm.DB, filter funding.ProviderFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, FundingSortFields, "name")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInsuranceProviderRepository) applyFilterWithoutPagination(query *gorm.DB, filter funding.ProviderFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR contact_email ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	return query
}

// Ensure GormInsuranceProviderRepository implements InsuranceProviderRepository
var _ funding.InsuranceProviderRepository = (*GormInsuranceProviderRepository)(nil)
