package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/authz"
	"github.com/Mecho90/BuildingManagement-sub000/internal/constants"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type BuildingInput struct {
	Name        string
	Address     string
	Description string
	OwnerID     *uuid.UUID
	Role        models.BuildingRole
}

type ListBuildingsInput struct {
	Search string
	Role   models.BuildingRole
	Order  repositories.BuildingOrder
	Limit  int
	Offset int
}

type BuildingWithStats struct {
	*models.Building
	Stats models.BuildingStats `json:"stats"`
}

type BuildingPage struct {
	Results []BuildingWithStats `json:"results"`
	Total   int                 `json:"total"`
}

type BuildingService struct {
	store      repositories.Store
	visibility *VisibilityService
}

func NewBuildingService(store repositories.Store, visibility *VisibilityService) *BuildingService {
	return &BuildingService{store: store, visibility: visibility}
}

func normalizeBuilding(b *models.Building) error {
	b.Name = strings.TrimSpace(b.Name)
	b.Address = strings.TrimSpace(b.Address)
	if b.Name == "" {
		return utils.NewValidationError("name", "name is required")
	}
	if b.Role == "" {
		b.Role = models.BuildingRoleTechSupport
	}
	if !b.Role.Valid() {
		return utils.NewValidationError("role", "unknown building role")
	}
	return nil
}

// Create needs manage_buildings globally. Only privileged users may pick the
// owner; everyone else becomes the owner of what they create.
func (s *BuildingService) Create(ctx context.Context, actor *models.User, in BuildingInput) (*models.Building, error) {
	a := newAccess(s.store, actor)
	if err := a.require(ctx, models.CapManageBuildings, nil); err != nil {
		return nil, err
	}
	b := &models.Building{
		Name:        in.Name,
		Address:     in.Address,
		Description: in.Description,
		OwnerID:     in.OwnerID,
		Role:        in.Role,
	}
	if !a.privileged {
		b.OwnerID = actorID(actor)
	}
	if err := normalizeBuilding(b); err != nil {
		return nil, err
	}
	if err := s.store.Buildings().Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create building: %w", err)
	}
	return b, nil
}

func (s *BuildingService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*BuildingWithStats, error) {
	b, err := s.visibility.VisibleBuilding(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Buildings().Stats(ctx, []uuid.UUID{b.ID})
	if err != nil {
		return nil, err
	}
	st := stats[b.ID]
	st.BuildingID = b.ID
	return &BuildingWithStats{Building: b, Stats: st}, nil
}

func (s *BuildingService) List(ctx context.Context, actor *models.User, in ListBuildingsInput) (*BuildingPage, error) {
	q, err := s.visibility.VisibleBuildings(ctx, actor)
	if err != nil {
		return nil, err
	}
	if in.Search != "" {
		q = q.Search(in.Search)
	}
	if in.Role != "" {
		q = q.WithRole(in.Role)
	}
	if in.Order != "" {
		q = q.OrderBy(in.Order)
	}
	total, err := s.store.Buildings().Count(ctx, q)
	if err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	list, err := s.store.Buildings().List(ctx, q.Page(limit, in.Offset))
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(list))
	for i, b := range list {
		ids[i] = b.ID
	}
	stats, err := s.store.Buildings().Stats(ctx, ids)
	if err != nil {
		return nil, err
	}
	page := &BuildingPage{Results: make([]BuildingWithStats, 0, len(list)), Total: total}
	for _, b := range list {
		st := stats[b.ID]
		st.BuildingID = b.ID
		page.Results = append(page.Results, BuildingWithStats{Building: b, Stats: st})
	}
	return page, nil
}

// canManage: owner, manage_buildings on the building, or privileged.
func (s *BuildingService) canManage(ctx context.Context, actor *models.User, b *models.Building) error {
	if authz.IsPrivileged(actor) {
		return nil
	}
	if b.OwnerID != nil && actor.IsAuthenticated() && *b.OwnerID == actor.ID {
		return nil
	}
	return newAccess(s.store, actor).require(ctx, models.CapManageBuildings, &b.ID)
}

func (s *BuildingService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in BuildingInput) (*models.Building, error) {
	b, err := s.visibility.VisibleBuilding(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.canManage(ctx, actor, b); err != nil {
		return nil, err
	}
	b.Name, b.Address, b.Description = in.Name, in.Address, in.Description
	if in.Role != "" {
		b.Role = in.Role
	}
	if in.OwnerID != nil && authz.IsPrivileged(actor) {
		b.OwnerID = in.OwnerID
	}
	if err := normalizeBuilding(b); err != nil {
		return nil, err
	}
	if err := s.store.Buildings().Update(ctx, b); err != nil {
		return nil, fmt.Errorf("update building %s: %w", id, err)
	}
	return b, nil
}

// Delete removes the building with its units and work orders.
func (s *BuildingService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	b, err := s.visibility.VisibleBuilding(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.canManage(ctx, actor, b); err != nil {
		return err
	}
	return s.store.Buildings().Delete(ctx, b.ID)
}
