package models

import (
	"time"

	"github.com/google/uuid"
)

type MembershipRole string

const (
	RoleTechnician    MembershipRole = "TECHNICIAN"
	RoleBackoffice    MembershipRole = "BACKOFFICE"
	RoleAdministrator MembershipRole = "ADMINISTRATOR"
	RoleAuditor       MembershipRole = "AUDITOR"
)

func (r MembershipRole) Valid() bool {
	switch r {
	case RoleTechnician, RoleBackoffice, RoleAdministrator, RoleAuditor:
		return true
	}
	return false
}

// BuildingMembership grants a role to a user, either on one building or
// globally when BuildingID is nil.
type BuildingMembership struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	BuildingID           *uuid.UUID         `json:"building_id,omitempty"`
	Role                 MembershipRole     `json:"role"`
	TechnicianSubrole    *BuildingRole      `json:"technician_subrole,omitempty"`
	CapabilitiesOverride CapabilityOverride `json:"capabilities_override"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

func (m *BuildingMembership) IsGlobal() bool { return m.BuildingID == nil }

// AppliesTo reports whether the membership contributes to buildingID. Global
// memberships apply everywhere.
func (m *BuildingMembership) AppliesTo(buildingID uuid.UUID) bool {
	return m.BuildingID == nil || *m.BuildingID == buildingID
}

// Normalize is applied before every write.
func (m *BuildingMembership) Normalize() {
	m.CapabilitiesOverride = m.CapabilitiesOverride.Normalize()
	if m.Role != RoleTechnician {
		m.TechnicianSubrole = nil
	}
}
