package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/authz"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

// access bundles the actor of one operation with a resolver bound to the
// store the operation reads from.
type access struct {
	user       *models.User
	privileged bool
	resolver   *authz.Resolver
}

func newAccess(store repositories.Store, user *models.User) *access {
	return &access{
		user:       user,
		privileged: authz.IsPrivileged(user),
		resolver:   authz.NewResolver(user, store.Memberships()),
	}
}

// require fails with ErrUnauthenticated or ErrPermissionDenied unless the
// actor is privileged or holds c on buildingID (globally when nil).
func (a *access) require(ctx context.Context, c models.Capability, buildingID *uuid.UUID) error {
	if !a.user.IsAuthenticated() {
		return utils.ErrUnauthenticated
	}
	if a.privileged {
		return nil
	}
	ok, err := a.resolver.Has(ctx, c, buildingID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: missing %s", utils.ErrPermissionDenied, c)
	}
	return nil
}

func (a *access) has(ctx context.Context, c models.Capability, buildingID *uuid.UUID) (bool, error) {
	err := a.require(ctx, c, buildingID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, utils.ErrPermissionDenied):
		return false, nil
	default:
		return false, err
	}
}

func (a *access) scope(ctx context.Context) (repositories.BuildingScope, error) {
	if !a.user.IsAuthenticated() {
		return repositories.ScopeNone(), nil
	}
	if a.privileged {
		return repositories.ScopeAll(), nil
	}
	ids, all, err := a.resolver.VisibleBuildingIDs(ctx)
	if err != nil {
		return repositories.BuildingScope{}, err
	}
	if all {
		return repositories.ScopeAll(), nil
	}
	return repositories.ScopeIDs(ids), nil
}

func actorID(u *models.User) *uuid.UUID {
	if !u.IsAuthenticated() {
		return nil
	}
	id := u.ID
	return &id
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// buildingsByID loads the given buildings in one query.
func buildingsByID(ctx context.Context, store repositories.Store, ids []uuid.UUID) (map[uuid.UUID]*models.Building, error) {
	out := map[uuid.UUID]*models.Building{}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	list, err := store.Buildings().List(ctx, repositories.NewBuildingQuery(repositories.ScopeIDs(ids)))
	if err != nil {
		return nil, fmt.Errorf("load buildings: %w", err)
	}
	for _, b := range list {
		out[b.ID] = b
	}
	return out, nil
}
