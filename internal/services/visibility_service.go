package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

// VisibilityService turns a user into building-scoped queries. The returned
// query values already carry the scope, so callers only add filters.
type VisibilityService struct {
	store repositories.Store
}

func NewVisibilityService(store repositories.Store) *VisibilityService {
	return &VisibilityService{store: store}
}

// Scope is none for anonymous users, all for privileged users or holders of a
// global view_all_buildings, otherwise the buildings the user is a member of.
func (s *VisibilityService) Scope(ctx context.Context, user *models.User) (repositories.BuildingScope, error) {
	return newAccess(s.store, user).scope(ctx)
}

func (s *VisibilityService) VisibleBuildings(ctx context.Context, user *models.User) (repositories.BuildingQuery, error) {
	scope, err := s.Scope(ctx, user)
	if err != nil {
		return repositories.BuildingQuery{}, err
	}
	return repositories.NewBuildingQuery(scope), nil
}

func (s *VisibilityService) VisibleUnits(ctx context.Context, user *models.User) (repositories.UnitQuery, error) {
	scope, err := s.Scope(ctx, user)
	if err != nil {
		return repositories.UnitQuery{}, err
	}
	return repositories.NewUnitQuery(scope), nil
}

func (s *VisibilityService) VisibleWorkOrders(ctx context.Context, user *models.User) (repositories.WorkOrderQuery, error) {
	scope, err := s.Scope(ctx, user)
	if err != nil {
		return repositories.WorkOrderQuery{}, err
	}
	return repositories.NewWorkOrderQuery(scope), nil
}

// VisibleBuilding returns ErrNotFound both for missing buildings and for
// buildings outside the user's scope.
func (s *VisibilityService) VisibleBuilding(ctx context.Context, user *models.User, id uuid.UUID) (*models.Building, error) {
	scope, err := s.Scope(ctx, user)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(id) {
		return nil, fmt.Errorf("building %s: %w", id, utils.ErrNotFound)
	}
	b, err := s.store.Buildings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("building %s: %w", id, utils.ErrNotFound)
	}
	return b, nil
}

func (s *VisibilityService) VisibleUnit(ctx context.Context, user *models.User, id uuid.UUID) (*models.Unit, error) {
	scope, err := s.Scope(ctx, user)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Units().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || !scope.Allows(u.BuildingID) {
		return nil, fmt.Errorf("unit %s: %w", id, utils.ErrNotFound)
	}
	return u, nil
}

// VisibleWorkOrder hides orders outside the user's scope behind ErrNotFound.
func (s *VisibilityService) VisibleWorkOrder(ctx context.Context, user *models.User, id uuid.UUID) (*models.WorkOrder, error) {
	scope, err := s.Scope(ctx, user)
	if err != nil {
		return nil, err
	}
	wo, err := s.store.WorkOrders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo == nil || !scope.Allows(wo.BuildingID) {
		return nil, fmt.Errorf("work order %s: %w", id, utils.ErrNotFound)
	}
	return wo, nil
}
