package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods accepted at checkout. PaymentConsolidated is reserved for the
// synthetic sale produced by inventory-count reconciliation.
const (
	PaymentCash         = "cash"
	PaymentPix          = "pix"
	PaymentCard         = "card"
	PaymentConsolidated = "consolidated"
)

// SaleTransaction is an immutable sale record. Rows are inserted once and never
// updated; a session has at most one Consolidated sale
// (uq_sale_transactions_consolidated).
type SaleTransaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationID     uuid.UUID       `gorm:"type:uuid;not null"`
	RecordedBy     uuid.UUID       `gorm:"type:uuid;not null"`
	Timestamp      time.Time       `gorm:"not null"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index"`
	GrossTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	NetTotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PointsRedeemed int64           `gorm:"not null;default:0"`
	Consolidated   bool            `gorm:"not null;default:false"`

	Lines []SaleLine `gorm:"foreignKey:SaleID"`
}

// SaleLine is one product row of a sale.
type SaleLine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// LineSubtotal returns quantity x unit price rounded to cents.
func LineSubtotal(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Round(2)
}
