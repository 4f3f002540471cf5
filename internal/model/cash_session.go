package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperatingMode decides when stock leaves the shelf.
type OperatingMode string

const (
	// ModeStandard decrements stock at every checkout.
	ModeStandard OperatingMode = "STANDARD"
	// ModeInventoryCount decrements stock once, at close, from a physical count.
	ModeInventoryCount OperatingMode = "INVENTORY_COUNT"
)

func (m OperatingMode) Valid() bool {
	return m == ModeStandard || m == ModeInventoryCount
}

type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

// Variance classifications, by |variance| / expected.
const (
	VarianceNormal   = "normal"   // <= 1%
	VarianceWarning  = "warning"  // <= 5%
	VarianceCritical = "critical" // > 5%
)

// CashSession is one working shift of a till at one location.
// OPEN -> CLOSED is the only transition; a closed row is never updated again.
// At most one OPEN row per location is enforced by the partial unique index
// uq_cash_sessions_open_location.
type CashSession struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LocationID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;index"` // copied from the location at open
	OperatingMode  OperatingMode `gorm:"type:varchar(20);not null"`

	OpenedBy     uuid.UUID       `gorm:"type:uuid;not null"`
	OpenedAt     time.Time       `gorm:"not null"`
	OpeningFloat decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	ClosedBy *uuid.UUID `gorm:"type:uuid"`
	ClosedAt *time.Time

	// SystemSalesTotal is a running sum of net sales in STANDARD mode and the
	// consolidated gross total in INVENTORY_COUNT mode.
	SystemSalesTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DiscountTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	// Declared by the operator at close; InformedTotal = cash + pix + card.
	InformedTotal *decimal.Decimal `gorm:"type:decimal(12,2)"`
	InformedCash  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	InformedPix   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	InformedCard  *decimal.Decimal `gorm:"type:decimal(12,2)"`

	ExpectedTotal *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Variance      *decimal.Decimal `gorm:"type:decimal(12,2)"`
	VarianceClass *string          `gorm:"type:varchar(20)"`

	Status SessionStatus `gorm:"type:varchar(10);not null;default:'OPEN'"`
	Notes  *string
}

func (s *CashSession) IsOpen() bool { return s.Status == SessionOpen }
