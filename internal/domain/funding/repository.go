package funding

import (
	"context"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
)

// ProviderFilter defines filtering options for insurance provider queries
type ProviderFilter struct {
	shared.Filter
	Active *bool // Filter by active flag
}

// ProgramFilter defines filtering options for funding program queries
type ProgramFilter struct {
	shared.Filter
	Active     *bool      // Filter by active flag
	ProviderID *uuid.UUID // Filter by administering provider
}

// InsuranceProviderRepository defines the interface for provider persistence
type InsuranceProviderRepository interface {
	// FindByID finds a provider by ID
	FindByID(ctx context.Context, id uuid.UUID) (*InsuranceProvider, error)

	// FindByName finds a provider by its unique name
	FindByName(ctx context.Context, name string) (*InsuranceProvider, error)

	// FindAll finds providers with filtering
	FindAll(ctx context.Context, filter ProviderFilter) ([]InsuranceProvider, error)

	// Save creates or updates a provider
	Save(ctx context.Context, provider *InsuranceProvider) error

	// Delete removes a provider
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts providers with optional filters
	Count(ctx context.Context, filter ProviderFilter) (int64, error)

	// ExistsByName checks if a provider name is already taken
	ExistsByName(ctx context.Context, name string) (bool, error)

	// CountReferences counts invoices and claims referencing this provider.
	// Deletion is blocked while the count is non-zero.
	CountReferences(ctx context.Context, id uuid.UUID) (int64, error)
}

// FundingProgramRepository defines the interface for funding program persistence
type FundingProgramRepository interface {
	// FindByID finds a program by ID
	FindByID(ctx context.Context, id uuid.UUID) (*FundingProgram, error)

	// FindByName finds a program by its unique name
	FindByName(ctx context.Context, name string) (*FundingProgram, error)

	// FindAll finds programs with filtering
	FindAll(ctx context.Context, filter ProgramFilter) ([]FundingProgram, error)

	// Save creates or updates a program
	Save(ctx context.Context, program *FundingProgram) error

	// Delete removes a program
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts programs with optional filters
	Count(ctx context.Context, filter ProgramFilter) (int64, error)

	// ExistsByName checks if a program name is already taken
	ExistsByName(ctx context.Context, name string) (bool, error)

	// CountReferences counts invoices referencing this program.
	// Deletion is blocked while the count is non-zero.
	CountReferences(ctx context.Context, id uuid.UUID) (int64, error)
}
