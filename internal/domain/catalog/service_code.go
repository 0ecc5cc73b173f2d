package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BillableUnit represents the unit a service is billed in
type BillableUnit string

const (
	BillableUnitHour       BillableUnit = "HOUR"
	BillableUnitSession    BillableUnit = "SESSION"
	BillableUnitItem       BillableUnit = "ITEM"
	BillableUnitAssessment BillableUnit = "ASSESSMENT"
	BillableUnitReport     BillableUnit = "REPORT"
)

// IsValid checks if the billable unit is valid
func (u BillableUnit) IsValid() bool {
	switch u {
	case BillableUnitHour, BillableUnitSession, BillableUnitItem,
		BillableUnitAssessment, BillableUnitReport:
		return true
	}
	return false
}

// String returns the string representation of BillableUnit
func (u BillableUnit) String() string {
	return string(u)
}

// ServiceCode represents a billable service code aggregate root.
// It is reference data: line items copy its rate at invoice creation,
// so later edits never change issued invoices.
type ServiceCode struct {
	shared.AuditedAggregateRoot
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	DefaultRate  decimal.Decimal `json:"default_rate"`
	BillableUnit BillableUnit    `json:"billable_unit"`
	Active       bool            `json:"active"`
}

// NewServiceCode creates a new service code
func NewServiceCode(code, description string, defaultRate valueobject.Money, unit BillableUnit, createdBy uuid.UUID) (*ServiceCode, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	description = strings.TrimSpace(description)

	if code == "" {
		return nil, shared.NewValidationError("Service code cannot be empty")
	}
	if len(code) > 20 {
		return nil, shared.NewValidationError("Service code cannot exceed 20 characters")
	}
	if description == "" {
		return nil, shared.NewValidationError("Service description cannot be empty")
	}
	if len(description) > 255 {
		return nil, shared.NewValidationError("Service description cannot exceed 255 characters")
	}
	if defaultRate.IsNegative() {
		return nil, shared.NewValidationError("Default rate cannot be negative")
	}
	if !unit.IsValid() {
		return nil, shared.NewValidationError("Billable unit is not valid")
	}

	sc := &ServiceCode{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		Code:                 code,
		Description:          description,
		DefaultRate:          defaultRate.Amount(),
		BillableUnit:         unit,
		Active:               true,
	}

	sc.AddDomainEvent(NewServiceCodeCreatedEvent(sc))

	return sc, nil
}

// UpdateDescription updates the service description
func (sc *ServiceCode) UpdateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return shared.NewValidationError("Service description cannot be empty")
	}
	if len(description) > 255 {
		return shared.NewValidationError("Service description cannot exceed 255 characters")
	}

	sc.Description = description
	sc.UpdatedAt = time.Now()
	sc.IncrementVersion()

	return nil
}

// UpdateRate changes the default rate going forward. Issued invoices keep
// the rate their line items copied at creation.
func (sc *ServiceCode) UpdateRate(rate valueobject.Money) error {
	if rate.IsNegative() {
		return shared.NewValidationError("Default rate cannot be negative")
	}

	oldRate := sc.DefaultRate
	sc.DefaultRate = rate.Amount()
	sc.UpdatedAt = time.Now()
	sc.IncrementVersion()

	sc.AddDomainEvent(NewServiceCodeRateChangedEvent(sc, oldRate))

	return nil
}

// Rename changes the natural key; uniqueness is re-checked by the service layer
func (sc *ServiceCode) Rename(code string) error {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return shared.NewValidationError("Service code cannot be empty")
	}
	if len(code) > 20 {
		return shared.NewValidationError("Service code cannot exceed 20 characters")
	}

	sc.Code = code
	sc.UpdatedAt = time.Now()
	sc.IncrementVersion()

	return nil
}

// UpdateBillableUnit changes the billable unit
func (sc *ServiceCode) UpdateBillableUnit(unit BillableUnit) error {
	if !unit.IsValid() {
		return shared.NewValidationError("Billable unit is not valid")
	}

	sc.BillableUnit = unit
	sc.UpdatedAt = time.Now()
	sc.IncrementVersion()

	return nil
}

// Deactivate marks the service code as inactive for new invoices
func (sc *ServiceCode) Deactivate() {
	if !sc.Active {
		return
	}
	sc.Active = false
	sc.UpdatedAt = time.Now()
	sc.IncrementVersion()
}

// Activate re-enables the service code
func (sc *ServiceCode) Activate() {
	if sc.Active {
		return
	}
	sc.Active = true
	sc.UpdatedAt = time.Now()
	sc.IncrementVersion()
}

// GetDefaultRateMoney returns the default rate as Money
func (sc *ServiceCode) GetDefaultRateMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(sc.DefaultRate)
}

// IsActive returns true if the service code is active
func (sc *ServiceCode) IsActive() bool {
	return sc.Active
}
