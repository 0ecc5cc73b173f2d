package funding

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
)

// InsuranceProvider represents an insurance company that funds invoices
// through claims. It is reference data referenced by invoices and claims.
type InsuranceProvider struct {
	shared.AuditedAggregateRoot
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Active       bool   `json:"active"`
}

// NewInsuranceProvider creates a new insurance provider
func NewInsuranceProvider(name, contactEmail, phone, address string, createdBy uuid.UUID) (*InsuranceProvider, error) {
	name = strings.TrimSpace(name)
	contactEmail = strings.TrimSpace(contactEmail)

	if name == "" {
		return nil, shared.NewValidationError("Provider name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("Provider name cannot exceed 200 characters")
	}
	if contactEmail != "" {
		if _, err := mail.ParseAddress(contactEmail); err != nil {
			return nil, shared.NewValidationError("Contact email is not a valid address")
		}
	}

	p := &InsuranceProvider{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		Name:                 name,
		ContactEmail:         contactEmail,
		Phone:                strings.TrimSpace(phone),
		Address:              strings.TrimSpace(address),
		Active:               true,
	}

	p.AddDomainEvent(NewInsuranceProviderCreatedEvent(p))

	return p, nil
}

// Rename changes the provider name; uniqueness is re-checked by the service layer
func (p *InsuranceProvider) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("Provider name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("Provider name cannot exceed 200 characters")
	}

	p.Name = name
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// UpdateContact updates the provider contact details
func (p *InsuranceProvider) UpdateContact(contactEmail, phone, address string) error {
	contactEmail = strings.TrimSpace(contactEmail)
	if contactEmail != "" {
		if _, err := mail.ParseAddress(contactEmail); err != nil {
			return shared.NewValidationError("Contact email is not a valid address")
		}
	}

	p.ContactEmail = contactEmail
	p.Phone = strings.TrimSpace(phone)
	p.Address = strings.TrimSpace(address)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Deactivate marks the provider as inactive for new invoices and claims
func (p *InsuranceProvider) Deactivate() {
	if !p.Active {
		return
	}
	p.Active = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Activate re-enables the provider
func (p *InsuranceProvider) Activate() {
	if p.Active {
		return
	}
	p.Active = true
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// IsActive returns true if the provider is active
func (p *InsuranceProvider) IsActive() bool {
	return p.Active
}
