package models

import (
	"github.com/pms/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ServiceCodeModel is the persistence model for the ServiceCode aggregate root.
type ServiceCodeModel struct {
	AuditedAggregateModel
	Code         string               `gorm:"type:varchar(20);not null;uniqueIndex:idx_service_codes_code"`
	Description  string               `gorm:"type:varchar(255);not null"`
	DefaultRate  decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	BillableUnit catalog.BillableUnit `gorm:"type:varchar(20);not null"`
	Active       bool                 `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (ServiceCodeModel) TableName() string {
	return "service_codes"
}

// ToDomain converts the persistence model to a domain ServiceCode entity.
func (m *ServiceCodeModel) ToDomain() *catalog.ServiceCode {
	return &catalog.ServiceCode{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		Code:                 m.Code,
		Description:          m.Description,
		DefaultRate:          m.DefaultRate,
		BillableUnit:         m.BillableUnit,
		Active:               m.Active,
	}
}

// FromDomain populates the persistence model from a domain ServiceCode entity.
func (m *ServiceCodeModel) FromDomain(sc *catalog.ServiceCode) {
	m.FromDomainAuditedAggregateRoot(sc.AuditedAggregateRoot)
	m.Code = sc.Code
	m.Description = sc.Description
	m.DefaultRate = sc.DefaultRate
	m.BillableUnit = sc.BillableUnit
	m.Active = sc.Active
}

// ServiceCodeModelFromDomain creates a new persistence model from a domain ServiceCode entity.
func ServiceCodeModelFromDomain(sc *catalog.ServiceCode) *ServiceCodeModel {
	m := &ServiceCodeModel{}
	m.FromDomain(sc)
	return m
}
