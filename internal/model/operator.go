package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator roles.
const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// Operator is a till user. LocationID pins the operator to a home location;
// the role decides which capabilities the token carries.
type Operator struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username       string    `gorm:"uniqueIndex;not null"`
	Name           string    `gorm:"not null"`
	PasswordHash   string    `gorm:"not null"`
	Role           string    `gorm:"type:varchar(20);not null"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null"`
	LocationID     uuid.UUID `gorm:"type:uuid;not null"`
	Active         bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
