package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/catalog"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormServiceCodeRepository implements ServiceCodeRepository using GORM
type GormServiceCodeRepository struct {
	db *gorm.DB
}

// NewGormServiceCodeRepository creates a new GormServiceCodeRepository
func NewGormServiceCodeRepository(db *gorm.DB) *GormServiceCodeRepository {
	return &GormServiceCodeRepository{db: db}
}

// FindByID finds a service code by ID
func (r *GormServiceCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ServiceCode, error) {
	var model models.ServiceCodeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Service code")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a service code by its natural key
func (r *GormServiceCodeRepository) FindByCode(ctx context.Context, code string) (*catalog.ServiceCode, error) {
	var model models.ServiceCodeModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Service code")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds service codes with filtering
func (r *GormServiceCodeRepository) FindAll(ctx context.Context, filter catalog.ServiceCodeFilter) ([]catalog.ServiceCode, error) {
	var codeModels []models.ServiceCodeModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ServiceCodeModel{}), filter)

	if err := query.Find(&codeModels).Error; err != nil {
		return nil, err
	}

	codes := make([]catalog.ServiceCode, len(codeModels))
	for i, model := range codeModels {
		codes[i] = *model.ToDomain()
	}
	return codes, nil
}

// Save creates or updates a service code
func (r *GormServiceCodeRepository) Save(ctx context.Context, sc *catalog.ServiceCode) error {
	model := models.ServiceCodeModelFromDomain(sc)
	err := r.db.WithContext(ctx).Save(model).Error
	if err != nil && isUniqueViolation(err, "") {
		return shared.NewDomainError(shared.CodeAlreadyExists, "A service code with this code already exists")
	}
	return err
}

// Delete removes a service code
func (r *GormServiceCodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ServiceCodeModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Service code")
	}
	return nil
}

// Count counts service codes with optional filters
func (r *GormServiceCodeRepository) Count(ctx context.Context, filter catalog.ServiceCodeFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.ServiceCodeModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if a code is already taken
func (r *GormServiceCodeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ServiceCodeModel{}).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountLineItemReferences counts invoice line items referencing this service code
func (r *GormServiceCodeRepository) CountLineItemReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceLineItemModel{}).
		Where("service_code_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormServiceCodeRepository) applyFilter(query *gorm.DB, filter catalog.ServiceCodeFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, ServiceCodeSortFields, "code")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormServiceCodeRepository) applyFilterWithoutPagination(query *gorm.DB, filter catalog.ServiceCodeFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR description ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Unit != nil {
		query = query.Where("billable_unit = ?", *filter.Unit)
	}
	return query
}

// Ensure GormServiceCodeRepository implements ServiceCodeRepository
var _ catalog.ServiceCodeRepository = (*GormServiceCodeRepository)(nil)
