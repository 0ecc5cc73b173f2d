package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClaimRepository implements ClaimRepository using GORM.
// Claim line-item references live in a join table and are reconciled with
// the aggregate's reference set on every save.
type GormClaimRepository struct {
	db *gorm.DB
}

// NewGormClaimRepository creates a new GormClaimRepository
func NewGormClaimRepository(db *gorm.DB) *GormClaimRepository {
	return &GormClaimRepository{db: db}
}

// FindByID finds a claim with its line-item references
func (r *GormClaimRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.InsuranceClaim, error) {
	var model models.InsuranceClaimModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Claim")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice finds all claims against an invoice, newest first
func (r *GormClaimRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.InsuranceClaim, error) {
	var claimModels []models.InsuranceClaimModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("invoice_id = ?", invoiceID).
		Order("created_at DESC").
		Find(&claimModels).Error; err != nil {
		return nil, err
	}

	claims := make([]billing.InsuranceClaim, len(claimModels))
	for i, model := range claimModels {
		claims[i] = *model.ToDomain()
	}
	return claims, nil
}

// FindAll finds claims with filtering
func (r *GormClaimRepository) FindAll(ctx context.Context, filter billing.ClaimFilter) ([]billing.InsuranceClaim, error) {
	var claimModels []models.InsuranceClaimModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.InsuranceClaimModel{}).Preload("LineItems"),
		filter,
	)

	if err := query.Find(&claimModels).Error; err != nil {
		return nil, err
	}

	claims := make([]billing.InsuranceClaim, len(claimModels))
	for i, model := range claimModels {
		claims[i] = *model.ToDomain()
	}
	return claims, nil
}

// Save creates or updates a claim and its line-item references atomically
func (r *GormClaimRepository) Save(ctx context.Context, claim *billing.InsuranceClaim) error {
	model := models.InsuranceClaimModelFromDomain(claim)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("LineItems").Save(model).Error; err != nil {
			return err
		}
		return r.saveLineItemRefs(tx, model)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormClaimRepository) SaveWithLock(ctx context.Context, claim *billing.InsuranceClaim) error {
	model := models.InsuranceClaimModelFromDomain(claim)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InsuranceClaimModel{}).
			Where("id = ? AND version = ?", claim.ID, claim.Version-1).
			Select("*").Omit("id", "created_at", "LineItems").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.CodeConcurrencyConflict, "The claim has been modified by another transaction")
		}
		return r.saveLineItemRefs(tx, model)
	})
}

// saveLineItemRefs replaces the join rows with the aggregate's reference set
func (r *GormClaimRepository) saveLineItemRefs(tx *gorm.DB, model *models.InsuranceClaimModel) error {
	if err := tx.Where("claim_id = ?", model.ID).
		Delete(&models.ClaimLineItemModel{}).Error; err != nil {
		return err
	}
	for i := range model.LineItems {
		model.LineItems[i].ClaimID = model.ID
		if err := tx.Create(&model.LineItems[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a claim and its line-item references. Callers enforce the
// DRAFT-only guard before calling.
func (r *GormClaimRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("claim_id = ?", id).
			Delete(&models.ClaimLineItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.InsuranceClaimModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("Claim")
		}
		return nil
	})
}

// Count counts claims with optional filters
func (r *GormClaimRepository) Count(ctx context.Context, filter billing.ClaimFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.InsuranceClaimModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormClaimRepository) applyFilter(query *gorm.DB, filter billing.ClaimFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, ClaimSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormClaimRepository) applyFilterWithoutPagination(query *gorm.DB, filter billing.ClaimFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("policy_number ILIKE ? OR beneficiary_name ILIKE ?", searchPattern, searchPattern)
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.ProviderID != nil {
		query = query.Where("insurance_provider_id = ?", *filter.ProviderID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("submission_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("submission_date <= ?", *filter.To)
	}
	return query
}

// Ensure GormClaimRepository implements ClaimRepository
var _ billing.ClaimRepository = (*GormClaimRepository)(nil)
