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

// GormFundingProgramRepository implements FundingProgramRepository using GORM
type GormFundingProgramRepository struct {
	db *gorm.DB
}

// NewGormFundingProgramRepository creates a new GormFundingProgramRepository
func NewGormFundingProgramRepository(db *gorm.DB) *GormFundingProgramRepository {
	return &GormFundingProgramRepository{db: db}
}

// FindByID finds a program by ID
func (r *GormFundingProgramRepository) FindByID(ctx context.Context, id uuid.UUID) (*funding.FundingProgram, error) {
	var model models.FundingProgramModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Funding program")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByName finds a program by its unique name
func (r *GormFundingProgramRepository) FindByName(ctx context.Context, name string) (*funding.FundingProgram, error) {
	var model models.FundingProgramModel
	if err := r.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Funding program")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds programs with filtering
func (r *GormFundingProgramRepository) FindAll(ctx context.Context, filter funding.ProgramFilter) ([]funding.FundingProgram, error) {
	var programModels []models.FundingProgramModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.FundingProgramModel{}), filter)

	if err := query.Find(&programModels).Error; err != nil {
		return nil, err
	}

	programs := make([]funding.FundingProgram, len(programModels))
	for i, model := range programModels {
		programs[i] = *model.ToDomain()
	}
	return programs, nil
}

// Save creates or updates a program
func (r *GormFundingProgramRepository) Save(ctx context.Context, program *funding.FundingProgram) error {
	model := models.FundingProgramModelFromDomain(program)
	err := r.db.WithContext(ctx).Save(model).Error
	if err != nil && isUniqueViolation(err, "") {
		return shared.NewDomainError(shared.CodeAlreadyExists, "A funding program with this name already exists")
	}
	return err
}

// Delete removes a program
func (r *GormFundingProgramRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.FundingProgramModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Funding program")
	}
	return nil
}

// Count counts programs with optional filters
func (r *GormFundingProgramRepository) Count(ctx context.Context, filter funding.ProgramFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.FundingProgramModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByName checks if a program name is already taken
func (r *GormFundingProgramRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FundingProgramModel{}).
		Where("name = ?", strings.TrimSpace(name)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountReferences counts invoices referencing this program
func (r *GormFundingProgramRepository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("funding_program_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormFundingProgramRepository) applyFilter(query *gorm.DB, filter funding.ProgramFilter) *gorm.DB {
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
func (r *GormFundingProgramRepository) applyFilterWithoutPagination(query *gorm.DB, filter funding.ProgramFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.ProviderID != nil {
		query = query.Where("provider_id = ?", *filter.ProviderID)
	}
	return query
}

// Ensure GormFundingProgramRepository implements FundingProgramRepository
var _ funding.FundingProgramRepository = (*GormFundingProgramRepository)(nil)
