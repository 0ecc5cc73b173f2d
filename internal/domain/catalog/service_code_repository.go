package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
)

// ServiceCodeFilter defines filtering options for service code queries
type ServiceCodeFilter struct {
	shared.Filter
	Active *bool         // Filter by active flag
	Unit   *BillableUnit // Filter by billable unit
}

// ServiceCodeRepository defines the interface for service code persistence
type ServiceCodeRepository interface {
	// FindByID finds a service code by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ServiceCode, error)

	// FindByCode finds a service code by its natural key
	FindByCode(ctx context.Context, code string) (*ServiceCode, error)

	// FindAll finds service codes with filtering
	FindAll(ctx context.Context, filter ServiceCodeFilter) ([]ServiceCode, error)

	// Save creates or updates a service code
	Save(ctx context.Context, sc *ServiceCode) error

	// Delete removes a service code
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts service codes with optional filters
	Count(ctx context.Context, filter ServiceCodeFilter) (int64, error)

	// ExistsByCode checks if a code is already taken
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// CountLineItemReferences counts invoice line items referencing this service code.
	// Deletion is blocked while the count is non-zero.
	CountLineItemReferences(ctx context.Context, id uuid.UUID) (int64, error)
}
