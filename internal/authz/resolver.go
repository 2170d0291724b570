package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

// MembershipLoader is satisfied by the membership repository.
type MembershipLoader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.BuildingMembership, error)
}

// Resolver computes one user's capabilities. Build a new one per request; it
// memoizes the membership rows it loads and must not be shared between users.
type Resolver struct {
	user   *models.User
	loader MembershipLoader

	loaded      bool
	memberships []*models.BuildingMembership
	global      models.CapabilitySet
	perBuilding map[uuid.UUID]models.CapabilitySet
}

func NewResolver(user *models.User, loader MembershipLoader) *Resolver {
	return &Resolver{user: user, loader: loader}
}

func (r *Resolver) User() *models.User { return r.user }

func (r *Resolver) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	global := models.NewCapabilitySet()
	perBuilding := map[uuid.UUID]models.CapabilitySet{}
	var rows []*models.BuildingMembership

	if r.user.IsAuthenticated() {
		var err error
		rows, err = r.loader.ListByUser(ctx, r.user.ID)
		if err != nil {
			return fmt.Errorf("loading memberships for %s: %w", r.user.ID, err)
		}
		for _, m := range rows {
			caps := ResolvedCapabilities(m)
			if m.BuildingID == nil {
				global.Union(caps)
				continue
			}
			set, ok := perBuilding[*m.BuildingID]
			if !ok {
				set = models.NewCapabilitySet()
				perBuilding[*m.BuildingID] = set
			}
			set.Union(caps)
		}
	}

	r.memberships = rows
	r.global = global
	r.perBuilding = perBuilding
	r.loaded = true
	return nil
}

// Memberships returns the loaded rows.
func (r *Resolver) Memberships(ctx context.Context) ([]*models.BuildingMembership, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r.memberships, nil
}

// GlobalCapabilities is the union over memberships without a building.
func (r *Resolver) GlobalCapabilities(ctx context.Context) (models.CapabilitySet, error) {
	return r.CapabilitiesFor(ctx, nil)
}

// CapabilitiesFor returns the global set when buildingID is nil, otherwise the
// global set plus whatever the building-scoped memberships grant on it.
func (r *Resolver) CapabilitiesFor(ctx context.Context, buildingID *uuid.UUID) (models.CapabilitySet, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	out := r.global.Clone()
	if buildingID != nil {
		out.Union(r.perBuilding[*buildingID])
	}
	return out, nil
}

func (r *Resolver) Has(ctx context.Context, c models.Capability, buildingID *uuid.UUID) (bool, error) {
	if err := r.load(ctx); err != nil {
		return false, err
	}
	if r.global.Has(c) {
		return true, nil
	}
	if buildingID == nil {
		return false, nil
	}
	return r.perBuilding[*buildingID].Has(c), nil
}

// VisibleBuildingIDs reports all=true when the global set includes
// view_all_buildings. Otherwise ids lists every building the user holds a
// scoped membership on, regardless of the capabilities it grants.
func (r *Resolver) VisibleBuildingIDs(ctx context.Context) (ids []uuid.UUID, all bool, err error) {
	if err := r.load(ctx); err != nil {
		return nil, false, err
	}
	if r.global.Has(models.CapViewAllBuildings) {
		return nil, true, nil
	}
	ids = make([]uuid.UUID, 0, len(r.perBuilding))
	for _, m := range r.memberships {
		if m.BuildingID == nil {
			continue
		}
		if !containsID(ids, *m.BuildingID) {
			ids = append(ids, *m.BuildingID)
		}
	}
	return ids, false, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
