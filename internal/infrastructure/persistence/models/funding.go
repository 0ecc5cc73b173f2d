package models

import (
	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/funding"
)

// InsuranceProviderModel is the persistence model for the InsuranceProvider aggregate root.
type InsuranceProviderModel struct {
	AuditedAggregateModel
	Name         string `gorm:"type:varchar(200);not null;uniqueIndex:idx_insurance_providers_name"`
	ContactEmail string `gorm:"type:varchar(255)"`
	Phone        string `gorm:"type:varchar(50)"`
	Address      string `gorm:"type:varchar(500)"`
	Active       bool   `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (InsuranceProviderModel) TableName() string {
	return "insurance_providers"
}

// ToDomain converts the persistence model to a domain InsuranceProvider entity.
func (m *InsuranceProviderModel) ToDomain() *funding.InsuranceProvider {
	return &funding.InsuranceProvider{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		Name:                 m.Name,
		ContactEmail:         m.ContactEmail,
		Phone:                m.Phone,
		Address:              m.Address,
		Active:               m.Active,
	}
}

// FromDomain populates the persistence model from a domain InsuranceProvider entity.
func (m *InsuranceProviderModel) FromDomain(p *funding.InsuranceProvider) {
	m.FromDomainAuditedAggregateRoot(p.AuditedAggregateRoot)
	m.Name = p.Name
	m.ContactEmail = p.ContactEmail
	m.Phone = p.Phone
	m.Address = p.Address
	m.Active = p.Active
}

// InsuranceProviderModelFromDomain creates a new persistence model from a domain InsuranceProvider entity.
func InsuranceProviderModelFromDomain(p *funding.InsuranceProvider) *InsuranceProviderModel {
	m := &InsuranceProviderModel{}
	m.FromDomain(p)
	return m
}

// FundingProgramModel is the persistence model for the FundingProgram aggregate root.
type FundingProgramModel struct {
	AuditedAggregateModel
	Name        string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_funding_programs_name"`
	ProviderID  *uuid.UUID `gorm:"type:uuid;index"`
	Description string     `gorm:"type:varchar(500)"`
	Active      bool       `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (FundingProgramModel) TableName() string {
	return "funding_programs"
}

// ToDomain converts the persistence model to a domain FundingProgram entity.
func (m *FundingProgramModel) ToDomain() *funding.FundingProgram {
	return &funding.FundingProgram{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		Name:                 m.Name,
		ProviderID:           m.ProviderID,
		Description:          m.Description,
		Active:               m.Active,
	}
}

// FromDomain populates the persistence model from a domain FundingProgram entity.
func (m *FundingProgramModel) FromDomain(fp *funding.FundingProgram) {
	m.FromDomainAuditedAggregateRoot(fp.AuditedAggregateRoot)
	m.Name = fp.Name
	m.ProviderID = fp.ProviderID
	m.Description = fp.Description
	m.Active = fp.Active
}

// FundingProgramModelFromDomain creates a new persistence model from a domain FundingProgram entity.
func FundingProgramModelFromDomain(fp *funding.FundingProgram) *FundingProgramModel {
	m := &FundingProgramModel{}
	m.FromDomain(fp)
	return m
}
