package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockEntry is the on-hand quantity of one product at one location.
// Rows are provisioned with the catalog; the till only updates them.
type StockEntry struct {
	LocationID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	QuantityOnHand decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	UpdatedAt      time.Time
}

// Stock movement kinds.
const (
	MovementSale           = "sale"
	MovementInventoryClose = "inventory_close"
)

// StockMovement records every change the till applies to a StockEntry.
// Movements are append-only.
type StockMovement struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LocationID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movements_loc_prod"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movements_loc_prod"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind           string          `gorm:"type:varchar(30);not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null"` // positive = in, negative = out
	Before         decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	After          decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Reason         string
	SessionID      *uuid.UUID `gorm:"type:uuid"`
	SaleID         *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time
}

// InventoryCount is one line of the count sheet of an INVENTORY_COUNT session.
// Rows are created at open and deleted once the session closes.
type InventoryCount struct {
	SessionID       uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ProductID       uuid.UUID        `gorm:"type:uuid;primaryKey"`
	SystemQtyAtOpen decimal.Decimal  `gorm:"type:decimal(12,3);not null"`
	CountedQty      *decimal.Decimal `gorm:"type:decimal(12,3)"`
	CountedBy       *uuid.UUID       `gorm:"type:uuid"`
	CountedAt       *time.Time
}
