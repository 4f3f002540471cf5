package model

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyAccount holds the points balance of a customer.
type LoyaltyAccount struct {
	CustomerID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	PointsBalance int64     `gorm:"not null;default:0"`
	UpdatedAt     time.Time
}

// LoyaltyMovement journals every earn (+) and redeem (-).
type LoyaltyMovement struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CustomerID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Points     int64      `gorm:"not null"`
	Balance    int64      `gorm:"not null"`
	Reason     string     `gorm:"type:varchar(20);not null"` // earn | redeem
	SaleID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time
}
