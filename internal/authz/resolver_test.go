package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

type stubLoader struct {
	rows  []*models.BuildingMembership
	err   error
	calls int
}

func (s *stubLoader) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.BuildingMembership, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.BuildingMembership
	for _, m := range s.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func activeUser() *models.User {
	return &models.User{ID: uuid.New(), Username: "tech", IsActive: true}
}

func membership(user *models.User, building *uuid.UUID, role models.MembershipRole, o models.CapabilityOverride) *models.BuildingMembership {
	return &models.BuildingMembership{ID: uuid.New(), UserID: user.ID, BuildingID: building, Role: role, CapabilitiesOverride: o}
}

func TestDefaultCapabilities(t *testing.T) {
	admin := DefaultCapabilities(models.RoleAdministrator)
	assert.Len(t, admin, len(models.AllCapabilities))

	tech := DefaultCapabilities(models.RoleTechnician)
	assert.ElementsMatch(t, []models.Capability{models.CapCreateUnits, models.CapCreateWorkOrders}, tech.Sorted())

	// Callers get a copy.
	tech.Add(models.CapMassAssign)
	assert.False(t, DefaultCapabilities(models.RoleTechnician).Has(models.CapMassAssign))

	assert.Empty(t, DefaultCapabilities("JANITOR"))
}

func TestIsPrivileged(t *testing.T) {
	u := activeUser()
	assert.False(t, IsPrivileged(u))
	u.IsStaff = true
	assert.True(t, IsPrivileged(u))
	u.IsStaff, u.IsSuperuser = false, true
	assert.True(t, IsPrivileged(u))
	u.IsActive = false
	assert.False(t, IsPrivileged(u))
	assert.False(t, IsPrivileged(nil))
}

func TestResolver_UnionLaw(t *testing.T) {
	ctx := context.Background()
	u := activeUser()
	b1, b2 := uuid.New(), uuid.New()
	loader := &stubLoader{rows: []*models.BuildingMembership{
		membership(u, nil, models.RoleAuditor, models.CapabilityOverride{Remove: []models.Capability{models.CapViewAllBuildings}}),
		membership(u, &b1, models.RoleTechnician, models.CapabilityOverride{Add: []models.Capability{models.CapMassAssign}}),
		membership(u, &b1, models.RoleBackoffice, models.CapabilityOverride{Remove: []models.Capability{models.CapViewUsers}}),
		membership(u, &b2, models.RoleTechnician, models.CapabilityOverride{}),
	}}
	r := NewResolver(u, loader)

	global, err := r.CapabilitiesFor(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Capability{models.CapViewAuditLog, models.CapViewUsers}, global.Sorted())

	for _, b := range []uuid.UUID{b1, b2, uuid.New()} {
		want := global.Clone()
		for _, m := range loader.rows {
			if m.BuildingID != nil && *m.BuildingID == b {
				want.Union(ResolvedCapabilities(m))
			}
		}
		got, err := r.CapabilitiesFor(ctx, &b)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "building %s: want %v got %v", b, want.Sorted(), got.Sorted())
	}

	ok, err := r.Has(ctx, models.CapMassAssign, &b1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Has(ctx, models.CapMassAssign, &b2)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.Has(ctx, models.CapMassAssign, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, loader.calls, "memberships are loaded once per resolver")
}

func TestResolvedCapabilities_OverrideIdempotent(t *testing.T) {
	u := activeUser()
	o := models.CapabilityOverride{
		Add:    []models.Capability{models.CapMassAssign, models.CapViewAuditLog, models.CapMassAssign},
		Remove: []models.Capability{models.CapCreateUnits, models.CapCreateUnits},
	}
	once := membership(u, nil, models.RoleTechnician, o)
	twice := membership(u, nil, models.RoleTechnician, o.Normalize().Normalize())

	assert.True(t, ResolvedCapabilities(once).Equal(ResolvedCapabilities(twice)))
	assert.ElementsMatch(t,
		[]models.Capability{models.CapCreateWorkOrders, models.CapMassAssign, models.CapViewAuditLog},
		ResolvedCapabilities(once).Sorted())
}

func TestResolver_VisibilityMonotonicity(t *testing.T) {
	ctx := context.Background()
	u := activeUser()
	b1, b2 := uuid.New(), uuid.New()

	t.Run("no memberships", func(t *testing.T) {
		ids, all, err := NewResolver(u, &stubLoader{}).VisibleBuildingIDs(ctx)
		require.NoError(t, err)
		assert.False(t, all)
		assert.Empty(t, ids)
	})

	t.Run("scoped memberships", func(t *testing.T) {
		loader := &stubLoader{rows: []*models.BuildingMembership{
			membership(u, &b1, models.RoleTechnician, models.CapabilityOverride{}),
			membership(u, &b1, models.RoleAuditor, models.CapabilityOverride{}),
			// Removing every capability still leaves the building visible.
			membership(u, &b2, models.RoleTechnician, models.CapabilityOverride{Remove: models.AllCapabilities}),
		}}
		ids, all, err := NewResolver(u, loader).VisibleBuildingIDs(ctx)
		require.NoError(t, err)
		assert.False(t, all)
		assert.ElementsMatch(t, []uuid.UUID{b1, b2}, ids)
	})

	t.Run("global view all", func(t *testing.T) {
		loader := &stubLoader{rows: []*models.BuildingMembership{
			membership(u, &b1, models.RoleTechnician, models.CapabilityOverride{}),
			membership(u, nil, models.RoleBackoffice, models.CapabilityOverride{}),
		}}
		ids, all, err := NewResolver(u, loader).VisibleBuildingIDs(ctx)
		require.NoError(t, err)
		assert.True(t, all)
		assert.Nil(t, ids)
	})

	t.Run("scoped view all does not widen", func(t *testing.T) {
		loader := &stubLoader{rows: []*models.BuildingMembership{
			membership(u, &b1, models.RoleBackoffice, models.CapabilityOverride{}),
		}}
		ids, all, err := NewResolver(u, loader).VisibleBuildingIDs(ctx)
		require.NoError(t, err)
		assert.False(t, all)
		assert.Equal(t, []uuid.UUID{b1}, ids)
	})
}

func TestResolver_Unauthenticated(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{err: errors.New("must not be called")}

	for _, u := range []*models.User{nil, {ID: uuid.New()}, {IsActive: true}} {
		r := NewResolver(u, loader)
		caps, err := r.CapabilitiesFor(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, caps)
		ids, all, err := r.VisibleBuildingIDs(ctx)
		require.NoError(t, err)
		assert.False(t, all)
		assert.Empty(t, ids)
	}
	assert.Zero(t, loader.calls)
}

func TestResolver_LoadErrorNotMemoized(t *testing.T) {
	ctx := context.Background()
	u := activeUser()
	loader := &stubLoader{err: errors.New("db down")}
	r := NewResolver(u, loader)

	_, err := r.GlobalCapabilities(ctx)
	require.Error(t, err)

	loader.err = nil
	loader.rows = []*models.BuildingMembership{membership(u, nil, models.RoleAdministrator, models.CapabilityOverride{})}
	ok, err := r.Has(ctx, models.CapManageMemberships, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, loader.calls)
}
