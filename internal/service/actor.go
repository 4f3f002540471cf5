package service

import (
	"fabrisys/internal/apierror"
	"fabrisys/internal/model"

	"github.com/google/uuid"
)

// Capability is a permission checked once at the boundary.
type Capability string

const (
	CapOpenAnyLocation Capability = "CAN_OPEN_ANY_LOCATION"
	CapOverrideCount   Capability = "CAN_OVERRIDE_COUNT"
)

// ActorContext identifies who performs an operation and what they may do.
// It is built from the access token and passed explicitly to every call.
type ActorContext struct {
	OperatorID     uuid.UUID
	LocationID     uuid.UUID
	OrganizationID uuid.UUID
	Capabilities   []Capability
}

// CapabilitiesForRole maps an operator role to its capability set.
func CapabilitiesForRole(role string) []Capability {
	switch role {
	case model.RoleAdmin:
		return []Capability{CapOpenAnyLocation, CapOverrideCount}
	case model.RoleSupervisor:
		return []Capability{CapOverrideCount}
	default:
		return nil
	}
}

func (a ActorContext) Can(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// authorizeLocation fails with a forbidden error when the actor works at
// another location and lacks CAN_OPEN_ANY_LOCATION.
func (a ActorContext) authorizeLocation(locationID uuid.UUID) error {
	if locationID == a.LocationID || a.Can(CapOpenAnyLocation) {
		return nil
	}
	return apierror.Forbidden("operator is not allowed to act on this location").
		WithDetail("location_id", locationID.String())
}

// authorizeOrganization fails for resources of another organization. No
// capability crosses organizations.
func (a ActorContext) authorizeOrganization(organizationID uuid.UUID) error {
	if organizationID == a.OrganizationID {
		return nil
	}
	return apierror.Forbidden("location belongs to another organization")
}

// authorizeSession checks both the organization and the location of s.
func (a ActorContext) authorizeSession(s *model.CashSession) error {
	if err := a.authorizeOrganization(s.OrganizationID); err != nil {
		return err
	}
	return a.authorizeLocation(s.LocationID)
}

// SideEffectResult reports the outcome of a best-effort side effect. A failed
// side effect never aborts the operation that triggered it.
type SideEffectResult struct {
	OK      bool
	Skipped bool
	Err     error
}

func sideEffectOK() SideEffectResult      { return SideEffectResult{OK: true} }
func sideEffectSkipped() SideEffectResult { return SideEffectResult{OK: true, Skipped: true} }
func sideEffectFailed(err error) SideEffectResult {
	return SideEffectResult{Err: err}
}

// Failed reports whether the side effect was attempted and did not apply.
func (r SideEffectResult) Failed() bool { return r.Err != nil }
