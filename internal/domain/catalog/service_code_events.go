package catalog

import (
	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ServiceCodeCreatedEvent is raised when a new service code is created
type ServiceCodeCreatedEvent struct {
	shared.BaseDomainEvent
	ServiceCodeID uuid.UUID       `json:"service_code_id"`
	Code          string          `json:"code"`
	Description   string          `json:"description"`
	DefaultRate   decimal.Decimal `json:"default_rate"`
	BillableUnit  BillableUnit    `json:"billable_unit"`
}

// EventType returns the event type name
func (e *ServiceCodeCreatedEvent) EventType() string {
	return "ServiceCodeCreated"
}

// NewServiceCodeCreatedEvent creates a new ServiceCodeCreatedEvent
func NewServiceCodeCreatedEvent(sc *ServiceCode) *ServiceCodeCreatedEvent {
	return &ServiceCodeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ServiceCodeCreated", "ServiceCode", sc.ID),
		ServiceCodeID:   sc.ID,
		Code:            sc.Code,
		Description:     sc.Description,
		DefaultRate:     sc.DefaultRate,
		BillableUnit:    sc.BillableUnit,
	}
}

// ServiceCodeRateChangedEvent is raised when a service code's default rate changes
type ServiceCodeRateChangedEvent struct {
	shared.BaseDomainEvent
	ServiceCodeID uuid.UUID       `json:"service_code_id"`
	Code          string          `json:"code"`
	OldRate       decimal.Decimal `json:"old_rate"`
	NewRate       decimal.Decimal `json:"new_rate"`
}

// EventType returns the event type name
func (e *ServiceCodeRateChangedEvent) EventType() string {
	return "ServiceCodeRateChanged"
}

// NewServiceCodeRateChangedEvent creates a new ServiceCodeRateChangedEvent
func NewServiceCodeRateChangedEvent(sc *ServiceCode, oldRate decimal.Decimal) *ServiceCodeRateChangedEvent {
	return &ServiceCodeRateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ServiceCodeRateChanged", "ServiceCode", sc.ID),
		ServiceCodeID:   sc.ID,
		Code:            sc.Code,
		OldRate:         oldRate,
		NewRate:         sc.DefaultRate,
	}
}
