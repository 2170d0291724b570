package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

func TestBuildingCreate_OwnershipAndDefaults(t *testing.T) {
	f := newFixture(t)
	backoffice := f.user(t, "backoffice")
	f.grant(t, backoffice, nil, models.RoleBackoffice, models.CapabilityOverride{})
	other := f.user(t, "other")
	tech := f.user(t, "tech")

	_, err := f.buildings.Create(f.ctx, tech, BuildingInput{Name: "Maple"})
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)

	b, err := f.buildings.Create(f.ctx, backoffice, BuildingInput{Name: " Maple ", Address: "1 Main", OwnerID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, "Maple", b.Name)
	assert.Equal(t, models.BuildingRoleTechSupport, b.Role)
	require.NotNil(t, b.OwnerID)
	assert.Equal(t, backoffice.ID, *b.OwnerID, "only privileged users pick the owner")

	b, err = f.buildings.Create(f.ctx, f.admin, BuildingInput{Name: "Oak", OwnerID: &other.ID, Role: models.BuildingRolePropertyManager})
	require.NoError(t, err)
	assert.Equal(t, other.ID, *b.OwnerID)
	assert.Equal(t, models.BuildingRolePropertyManager, b.Role)

	_, err = f.buildings.Create(f.ctx, f.admin, BuildingInput{Name: "  "})
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = f.buildings.Create(f.ctx, f.admin, BuildingInput{Name: "Pine", Role: "CASTLE"})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestBuildingList_ScopeAndStats(t *testing.T) {
	f := newFixture(t)
	b1 := f.building(t, "Maple")
	f.building(t, "Oak")
	require.NoError(t, f.store.Units().Create(f.ctx, &models.Unit{BuildingID: b1.ID, Number: "1", IsOccupied: true}))
	require.NoError(t, f.store.Units().Create(f.ctx, &models.Unit{BuildingID: b1.ID, Number: "2"}))
	tech := f.user(t, "tech")
	f.grant(t, tech, b1, models.RoleTechnician, models.CapabilityOverride{})

	page, err := f.buildings.List(f.ctx, tech, ListBuildingsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Results, 1)
	st := page.Results[0].Stats
	assert.Equal(t, b1.ID, st.BuildingID)
	assert.Equal(t, 2, st.TotalUnits)
	assert.Equal(t, 1, st.OccupiedUnits)

	page, err = f.buildings.List(f.ctx, f.admin, ListBuildingsInput{Search: "oa"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Oak", page.Results[0].Name)
	assert.Zero(t, page.Results[0].Stats.TotalUnits)

	got, err := f.buildings.Get(f.ctx, tech, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stats.TotalUnits)

	anon, err := f.buildings.List(f.ctx, nil, ListBuildingsInput{})
	require.NoError(t, err)
	assert.Zero(t, anon.Total)
}

func TestBuildingUpdateDelete_NeedManage(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	tech := f.user(t, "tech")
	f.grant(t, tech, b, models.RoleTechnician, models.CapabilityOverride{})
	manager := f.user(t, "manager")
	f.grant(t, manager, b, models.RoleTechnician, models.CapabilityOverride{Add: []models.Capability{models.CapManageBuildings}})

	_, err := f.buildings.Update(f.ctx, tech, b.ID, BuildingInput{Name: "Renamed"})
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)

	updated, err := f.buildings.Update(f.ctx, manager, b.ID, BuildingInput{Name: "Renamed", Address: "2 Main"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.BuildingRoleTechSupport, updated.Role)

	assert.ErrorIs(t, f.buildings.Delete(f.ctx, tech, b.ID), utils.ErrPermissionDenied)
	require.NoError(t, f.buildings.Delete(f.ctx, f.admin, b.ID))
	_, err = f.buildings.Get(f.ctx, f.admin, b.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
