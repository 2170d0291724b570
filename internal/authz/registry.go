// Package authz turns role memberships into effective capabilities.
package authz

import "github.com/Mecho90/BuildingManagement-sub000/internal/models"

var roleDefaults = map[models.MembershipRole][]models.Capability{
	models.RoleTechnician: {
		models.CapCreateUnits,
		models.CapCreateWorkOrders,
	},
	models.RoleBackoffice: {
		models.CapViewAllBuildings,
		models.CapManageBuildings,
		models.CapCreateUnits,
		models.CapCreateWorkOrders,
		models.CapApproveWorkOrders,
		models.CapViewUsers,
	},
	models.RoleAdministrator: models.AllCapabilities,
	models.RoleAuditor: {
		models.CapViewAllBuildings,
		models.CapViewAuditLog,
		models.CapViewUsers,
	},
}

// DefaultCapabilities returns a fresh copy of the role's default set. Unknown
// roles get an empty set.
func DefaultCapabilities(role models.MembershipRole) models.CapabilitySet {
	return models.NewCapabilitySet(roleDefaults[role]...)
}

// ResolvedCapabilities is (role defaults ∪ add) − remove for one membership.
func ResolvedCapabilities(m *models.BuildingMembership) models.CapabilitySet {
	if m == nil {
		return models.NewCapabilitySet()
	}
	return m.CapabilitiesOverride.Normalize().Apply(DefaultCapabilities(m.Role))
}

// IsPrivileged is the single staff/superuser bypass check. Services consult it
// once per operation before delegating to a Resolver.
func IsPrivileged(u *models.User) bool {
	return u.IsAuthenticated() && (u.IsStaff || u.IsSuperuser)
}
