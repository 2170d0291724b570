package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/constants"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type UnitInput struct {
	Number       string
	Floor        int
	IsOccupied   bool
	ContactName  string
	ContactPhone string
	ContactEmail string
	Description  string
}

type UnitService struct {
	store      repositories.Store
	visibility *VisibilityService
}

func NewUnitService(store repositories.Store, visibility *VisibilityService) *UnitService {
	return &UnitService{store: store, visibility: visibility}
}

func (s *UnitService) check(ctx context.Context, u *models.Unit, excludeID *uuid.UUID) error {
	u.Number = strings.TrimSpace(u.Number)
	if u.Number == "" {
		return utils.NewValidationError("number", "number is required")
	}
	if u.Floor < models.MinUnitFloor {
		return utils.NewValidationError("floor", fmt.Sprintf("floor must be at least %d", models.MinUnitFloor))
	}
	taken, err := s.store.Units().NumberTaken(ctx, u.BuildingID, u.Number, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return utils.NewValidationError("number", "a unit with this number already exists in the building")
	}
	return nil
}

func applyUnitInput(u *models.Unit, in UnitInput) {
	u.Number = in.Number
	u.Floor = in.Floor
	u.IsOccupied = in.IsOccupied
	u.ContactName = strings.TrimSpace(in.ContactName)
	u.ContactPhone = strings.TrimSpace(in.ContactPhone)
	u.ContactEmail = strings.TrimSpace(in.ContactEmail)
	u.Description = in.Description
}

// Create needs create_units on the building. A unique violation that slips
// past the pre-check surfaces as ErrDuplicateUnitNumber.
func (s *UnitService) Create(ctx context.Context, actor *models.User, buildingID uuid.UUID, in UnitInput) (*models.Unit, error) {
	b, err := s.visibility.VisibleBuilding(ctx, actor, buildingID)
	if err != nil {
		return nil, err
	}
	if err := newAccess(s.store, actor).require(ctx, models.CapCreateUnits, &b.ID); err != nil {
		return nil, err
	}
	u := &models.Unit{BuildingID: b.ID}
	applyUnitInput(u, in)
	if err := s.check(ctx, u, nil); err != nil {
		return nil, err
	}
	if err := s.store.Units().Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create unit: %w", err)
	}
	return u, nil
}

func (s *UnitService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in UnitInput) (*models.Unit, error) {
	u, err := s.visibility.VisibleUnit(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := newAccess(s.store, actor).require(ctx, models.CapCreateUnits, &u.BuildingID); err != nil {
		return nil, err
	}
	applyUnitInput(u, in)
	if err := s.check(ctx, u, &u.ID); err != nil {
		return nil, err
	}
	if err := s.store.Units().Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update unit %s: %w", id, err)
	}
	return u, nil
}

func (s *UnitService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	u, err := s.visibility.VisibleUnit(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := newAccess(s.store, actor).require(ctx, models.CapCreateUnits, &u.BuildingID); err != nil {
		return err
	}
	return s.store.Units().Delete(ctx, u.ID)
}

func (s *UnitService) List(ctx context.Context, actor *models.User, buildingID uuid.UUID, search string, limit, offset int) ([]*models.Unit, int, error) {
	q, err := s.visibility.VisibleUnits(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	q = q.InBuilding(buildingID)
	if search != "" {
		q = q.Search(search)
	}
	total, err := s.store.Units().Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	list, err := s.store.Units().List(ctx, q.Page(limit, offset))
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
