package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM.
// The invoice and its line items are persisted as one consistency boundary:
// every Save runs in a transaction that reconciles the line-item rows.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice with its line items
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds an invoice holding a row lock until the enclosing
// transaction ends. Callers must run inside a TransactionScope.
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice")
		}
		return nil, err
	}

	// Line items are loaded separately; FOR UPDATE cannot be combined with
	// the preload join and the invoice row lock already covers the aggregate.
	var items []models.InvoiceLineItemModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", id).
		Find(&items).Error; err != nil {
		return nil, err
	}
	model.LineItems = items

	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its unique invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("invoice_number = ?", strings.TrimSpace(number)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices with filtering
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Preload("LineItems"),
		filter,
	)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice and its line items atomically
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("LineItems").Save(model).Error; err != nil {
			return err
		}
		return r.saveLineItems(tx, model)
	})
	if err != nil && isUniqueViolation(err, "") {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Invoice number was taken by a concurrent insert")
	}
	return err
}

// SaveWithLock saves with optimistic locking (version check). The version
// carried by the aggregate was already incremented by the domain mutation,
// so the row must still hold version-1.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
			Select("*").Omit("id", "created_at", "LineItems").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.CodeConcurrencyConflict, "The invoice has been modified by another transaction")
		}
		return r.saveLineItems(tx, model)
	})
	if err != nil && isUniqueViolation(err, "") {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Invoice number was taken by a concurrent insert")
	}
	return err
}

// saveLineItems reconciles the line-item rows with the aggregate's item set:
// rows no longer present are deleted, the rest upserted.
func (r *GormInvoiceRepository) saveLineItems(tx *gorm.DB, model *models.InvoiceModel) error {
	currentIDs := make([]uuid.UUID, len(model.LineItems))
	for i, item := range model.LineItems {
		currentIDs[i] = item.ID
	}

	if len(currentIDs) > 0 {
		if err := tx.Where("invoice_id = ? AND id NOT IN ?", model.ID, currentIDs).
			Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("invoice_id = ?", model.ID).
			Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
	}

	for i := range model.LineItems {
		model.LineItems[i].InvoiceID = model.ID
		if err := tx.Save(&model.LineItems[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an invoice, cascading its line items. Callers enforce the
// zero-payments guard before calling.
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).
			Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.InvoiceModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("Invoice")
		}
		return nil
	})
}

// Count counts invoices with optional filters
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// NextInvoiceNumber computes the next year-scoped invoice number from the
// highest existing one. Must run inside the transaction that inserts the
// invoice; the unique index on invoice_number is the backstop against two
// concurrent callers computing the same value.
func (r *GormInvoiceRepository) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	prefix := billing.InvoiceNumberPrefix(year)

	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return "", err
	}

	sequence := 1
	if len(numbers) > 0 {
		_, lastSeq, err := billing.ParseInvoiceNumber(numbers[0])
		if err != nil {
			return "", err
		}
		sequence = lastSeq + 1
	}
	return billing.FormatInvoiceNumber(year, sequence), nil
}

// applyFilter applies filter options to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// PageSize -1 means unpaginated (internal full scans for reports)
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR notes ILIKE ?", searchPattern, searchPattern)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FundingProviderID != nil {
		query = query.Where("funding_provider_id = ?", *filter.FundingProviderID)
	}
	if filter.FundingProgramID != nil {
		query = query.Where("funding_program_id = ?", *filter.FundingProgramID)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssuedTo)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("status = ?", billing.InvoiceStatusOverdue)
	}
	if filter.MinOutstanding != nil {
		query = query.Where("total_amount - amount_paid >= ?", *filter.MinOutstanding)
	}
	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
