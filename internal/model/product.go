package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the slice of the catalog the till reads: name, sale price and unit.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string          `gorm:"index;not null"`
	SalePrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UnitID    string          `gorm:"type:varchar(20);not null;default:'un'"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location is a shop or kiosk with its own till and stock.
type Location struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Name           string        `gorm:"not null"`
	DefaultMode    OperatingMode `gorm:"type:varchar(20);not null;default:'STANDARD'"`
	Active         bool          `gorm:"not null;default:true"`
	CreatedAt      time.Time
}

// Promotion kinds.
const (
	PromoCartPercent    = "cart_percent"    // Percent of the whole batch
	PromoFlatCart       = "flat_cart"       // Amount off the whole batch
	PromoProductPercent = "product_percent" // Percent of the lines of ProductID
)

// Promotion is a catalog entry applied to inventory-count closings.
type Promotion struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string          `gorm:"not null"`
	Kind        string          `gorm:"type:varchar(20);not null"`
	ProductID   *uuid.UUID      `gorm:"type:uuid"`
	Percent     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MinSubtotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Active      bool            `gorm:"not null;default:true"`
	StartsAt    *time.Time
	EndsAt      *time.Time
	CreatedAt   time.Time
}
