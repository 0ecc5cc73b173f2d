package funding

import (
	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
)

// InsuranceProviderCreatedEvent is raised when a new insurance provider is created
type InsuranceProviderCreatedEvent struct {
	shared.BaseDomainEvent
	ProviderID uuid.UUID `json:"provider_id"`
	Name       string    `json:"name"`
}

// EventType returns the event type name
func (e *InsuranceProviderCreatedEvent) EventType() string {
	return "InsuranceProviderCreated"
}

// NewInsuranceProviderCreatedEvent creates a new InsuranceProviderCreatedEvent
func NewInsuranceProviderCreatedEvent(p *InsuranceProvider) *InsuranceProviderCreatedEvent {
	return &InsuranceProviderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InsuranceProviderCreated", "InsuranceProvider", p.ID),
		ProviderID:      p.ID,
		Name:            p.Name,
	}
}

// FundingProgramCreatedEvent is raised when a new funding program is created
type FundingProgramCreatedEvent struct {
	shared.BaseDomainEvent
	ProgramID  uuid.UUID  `json:"program_id"`
	Name       string     `json:"name"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
}

// EventType returns the event type name
func (e *FundingProgramCreatedEvent) EventType() string {
	return "FundingProgramCreated"
}

// NewFundingProgramCreatedEvent creates a new FundingProgramCreatedEvent
func NewFundingProgramCreatedEvent(fp *FundingProgram) *FundingProgramCreatedEvent {
	return &FundingProgramCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("FundingProgramCreated", "FundingProgram", fp.ID),
		ProgramID:       fp.ID,
		Name:            fp.Name,
		ProviderID:      fp.ProviderID,
	}
}
