package authz

import (
	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

// UsersWithCapability returns, in first-seen order, the users whose
// memberships applying to buildingID resolve to a set containing c.
func UsersWithCapability(memberships []*models.BuildingMembership, buildingID uuid.UUID, c models.Capability) []uuid.UUID {
	return collectUsers(memberships, buildingID, func(m *models.BuildingMembership) bool {
		return ResolvedCapabilities(m).Has(c)
	})
}

// UsersWithRole is like UsersWithCapability but matches the membership role.
func UsersWithRole(memberships []*models.BuildingMembership, buildingID uuid.UUID, role models.MembershipRole) []uuid.UUID {
	return collectUsers(memberships, buildingID, func(m *models.BuildingMembership) bool {
		return m.Role == role
	})
}

func collectUsers(memberships []*models.BuildingMembership, buildingID uuid.UUID, match func(*models.BuildingMembership) bool) []uuid.UUID {
	out := []uuid.UUID{}
	seen := map[uuid.UUID]bool{}
	for _, m := range memberships {
		if m == nil || !m.AppliesTo(buildingID) || seen[m.UserID] {
			continue
		}
		if match(m) {
			seen[m.UserID] = true
			out = append(out, m.UserID)
		}
	}
	return out
}
