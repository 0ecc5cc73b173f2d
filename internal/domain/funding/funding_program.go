package funding

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
)

// FundingProgram represents a non-insurance third-party payer (grant,
// subsidy) tracked analogously to an insurance provider. It may optionally
// be linked to the provider administering it.
type FundingProgram struct {
	shared.AuditedAggregateRoot
	Name        string     `json:"name"`
	ProviderID  *uuid.UUID `json:"provider_id"`
	Description string     `json:"description"`
	Active      bool       `json:"active"`
}

// NewFundingProgram creates a new funding program
func NewFundingProgram(name, description string, providerID *uuid.UUID, createdBy uuid.UUID) (*FundingProgram, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return nil, shared.NewValidationError("Program name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("Program name cannot exceed 200 characters")
	}
	if providerID != nil && *providerID == uuid.Nil {
		return nil, shared.NewValidationError("Provider ID cannot be the nil UUID")
	}

	fp := &FundingProgram{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		Name:                 name,
		ProviderID:           providerID,
		Description:          strings.TrimSpace(description),
		Active:               true,
	}

	fp.AddDomainEvent(NewFundingProgramCreatedEvent(fp))

	return fp, nil
}

// Rename changes the program name; uniqueness is re-checked by the service layer
func (fp *FundingProgram) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("Program name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("Program name cannot exceed 200 characters")
	}

	fp.Name = name
	fp.UpdatedAt = time.Now()
	fp.IncrementVersion()

	return nil
}

// UpdateDescription updates the program description
func (fp *FundingProgram) UpdateDescription(description string) {
	fp.Description = strings.TrimSpace(description)
	fp.UpdatedAt = time.Now()
	fp.IncrementVersion()
}

// LinkProvider links the program to an administering insurance provider
func (fp *FundingProgram) LinkProvider(providerID uuid.UUID) error {
	if providerID == uuid.Nil {
		return shared.NewValidationError("Provider ID cannot be the nil UUID")
	}

	fp.ProviderID = &providerID
	fp.UpdatedAt = time.Now()
	fp.IncrementVersion()

	return nil
}

// UnlinkProvider removes the provider link
func (fp *FundingProgram) UnlinkProvider() {
	fp.ProviderID = nil
	fp.UpdatedAt = time.Now()
	fp.IncrementVersion()
}

// Deactivate marks the program as inactive for new invoices
func (fp *FundingProgram) Deactivate() {
	if !fp.Active {
		return
	}
	fp.Active = false
	fp.UpdatedAt = time.Now()
	fp.IncrementVersion()
}

// Activate re-enables the program
func (fp *FundingProgram) Activate() {
	if fp.Active {
		return
	}
	fp.Active = true
	fp.UpdatedAt = time.Now()
	fp.IncrementVersion()
}

// IsActive returns true if the program is active
func (fp *FundingProgram) IsActive() bool {
	return fp.Active
}
