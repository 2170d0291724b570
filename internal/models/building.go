package models

import (
	"time"

	"github.com/google/uuid"
)

// BuildingRole classifies a building for mass-assignment targeting. The same
// taxonomy is reused as the technician sub-role on memberships.
type BuildingRole string

const (
	BuildingRoleTechSupport        BuildingRole = "TECH_SUPPORT"
	BuildingRolePropertyManager    BuildingRole = "PROPERTY_MANAGER"
	BuildingRoleExternalContractor BuildingRole = "EXTERNAL_CONTRACTOR"
)

func (r BuildingRole) Valid() bool {
	switch r {
	case BuildingRoleTechSupport, BuildingRolePropertyManager, BuildingRoleExternalContractor:
		return true
	}
	return false
}

type Building struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Description string       `json:"description,omitempty"`
	OwnerID     *uuid.UUID   `json:"owner_id,omitempty"`
	Role        BuildingRole `json:"role"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BuildingStats is the per-building unit summary shown on listings.
type BuildingStats struct {
	BuildingID    uuid.UUID `json:"building_id"`
	TotalUnits    int       `json:"total_units"`
	OccupiedUnits int       `json:"occupied_units"`
}

func (s BuildingStats) Vacant() int { return s.TotalUnits - s.OccupiedUnits }

// OccupancyRate is 0 for buildings without units.
func (s BuildingStats) OccupancyRate() float64 {
	if s.TotalUnits == 0 {
		return 0
	}
	return float64(s.OccupiedUnits) / float64(s.TotalUnits)
}
