// Package directory provides the read-only lookup against the client records
// owned by the practice CRUD module. The ledger validates that a client exists
// before invoicing it but never writes client data.
package directory

import (
	"context"

	"github.com/google/uuid"
	appbilling "github.com/pms/backend/internal/application/billing"
	"gorm.io/gorm"
)

// GormClientDirectory checks client existence against the clients table.
// The table is owned by the client-management module; only its primary key
// is read here.
type GormClientDirectory struct {
	db *gorm.DB
}

// NewGormClientDirectory creates a new GormClientDirectory
func NewGormClientDirectory(db *gorm.DB) *GormClientDirectory {
	return &GormClientDirectory{db: db}
}

// Exists reports whether a client record exists
func (d *GormClientDirectory) Exists(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).
		Table("clients").
		Where("id = ?", clientID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ appbilling.ClientDirectory = (*GormClientDirectory)(nil)
