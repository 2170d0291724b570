// Package seeding inserts a small demo data set: one user per role, two
// buildings with units, the matching memberships and a few work orders.
// Every seed is idempotent and keyed by fixed ids.
package seeding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

var (
	AdminUserID      = uuid.MustParse("11111111-2222-3333-4444-555555555555")
	BackofficeUserID = uuid.MustParse("11111111-2222-3333-4444-555555555556")
	TechnicianUserID = uuid.MustParse("11111111-2222-3333-4444-555555555557")
	AuditorUserID    = uuid.MustParse("11111111-2222-3333-4444-555555555558")

	MapleBuildingID = uuid.MustParse("22222222-3333-4444-5555-666666666661")
	OakBuildingID   = uuid.MustParse("22222222-3333-4444-5555-666666666662")
)

// SeedAll runs every seed in dependency order.
func SeedAll(ctx context.Context, store repositories.Store, clock utils.Clock) error {
	if err := SeedUsers(ctx, store.Users()); err != nil {
		return err
	}
	if err := SeedBuildings(ctx, store); err != nil {
		return err
	}
	if err := SeedMemberships(ctx, store.Memberships()); err != nil {
		return err
	}
	return SeedWorkOrders(ctx, store, clock)
}

func SeedUsers(ctx context.Context, users repositories.UserRepository) error {
	seeds := []*models.User{
		{ID: AdminUserID, Username: "seedadmin", FullName: "Seed Admin", Email: "admin@buildings.local", IsStaff: true, IsActive: true},
		{ID: BackofficeUserID, Username: "seedbackoffice", FullName: "Seed Backoffice", Email: "backoffice@buildings.local", IsActive: true},
		{ID: TechnicianUserID, Username: "seedtech", FullName: "Seed Technician", Email: "tech@buildings.local", IsActive: true},
		{ID: AuditorUserID, Username: "seedauditor", FullName: "Seed Auditor", Email: "auditor@buildings.local", IsActive: true},
	}
	for _, u := range seeds {
		existing, err := users.GetByID(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("error checking for existing user %s: %w", u.Username, err)
		}
		if existing != nil {
			utils.Logger.Infof("User %s already exists (ID=%s); skipping seed.", existing.Username, existing.ID)
			continue
		}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("failed to insert user %s: %w", u.Username, err)
		}
		utils.Logger.Infof("Seeded user (ID=%s, username=%s).", u.ID, u.Username)
	}
	return nil
}

// SeedBuildings creates the buildings together with their units in one
// transaction per building.
func SeedBuildings(ctx context.Context, store repositories.Store) error {
	owner := BackofficeUserID
	seeds := []struct {
		building *models.Building
		units    []*models.Unit
	}{
		{
			building: &models.Building{ID: MapleBuildingID, Name: "Maple Court", Address: "12 Maple St", OwnerID: &owner, Role: models.BuildingRoleTechSupport},
			units: []*models.Unit{
				{Number: "1A", Floor: 1, IsOccupied: true, ContactName: "R. Ivanova", ContactEmail: "r.ivanova@example.com"},
				{Number: "1B", Floor: 1},
				{Number: "2A", Floor: 2, IsOccupied: true},
				{Number: "B1", Floor: -1, Description: "Storage"},
			},
		},
		{
			building: &models.Building{ID: OakBuildingID, Name: "Oak Residence", Address: "3 Oak Blvd", Role: models.BuildingRolePropertyManager},
			units: []*models.Unit{
				{Number: "101", Floor: 1, IsOccupied: true},
				{Number: "102", Floor: 1},
			},
		},
	}

	for _, s := range seeds {
		existing, err := store.Buildings().GetByID(ctx, s.building.ID)
		if err != nil {
			return fmt.Errorf("error checking for existing building %s: %w", s.building.Name, err)
		}
		if existing != nil {
			utils.Logger.Infof("Building %q already exists (ID=%s); skipping seed.", existing.Name, existing.ID)
			continue
		}
		err = store.WithTx(ctx, func(tx repositories.Store) error {
			if err := tx.Buildings().Create(ctx, s.building); err != nil {
				return err
			}
			for _, u := range s.units {
				u.BuildingID = s.building.ID
				if err := tx.Units().Create(ctx, u); err != nil {
					return fmt.Errorf("unit %s: %w", u.Number, err)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to insert building %s: %w", s.building.Name, err)
		}
		utils.Logger.Infof("Seeded building %q with %d units (ID=%s).", s.building.Name, len(s.units), s.building.ID)
	}
	return nil
}

func SeedMemberships(ctx context.Context, memberships repositories.MembershipRepository) error {
	maple := MapleBuildingID
	oak := OakBuildingID
	sub := models.BuildingRoleTechSupport
	seeds := []*models.BuildingMembership{
		{UserID: BackofficeUserID, BuildingID: &maple, Role: models.RoleBackoffice},
		{UserID: BackofficeUserID, BuildingID: &oak, Role: models.RoleBackoffice},
		{UserID: TechnicianUserID, BuildingID: &maple, Role: models.RoleTechnician, TechnicianSubrole: &sub},
		{UserID: AuditorUserID, Role: models.RoleAuditor},
	}
	for _, m := range seeds {
		err := memberships.Create(ctx, m)
		switch {
		case errors.Is(err, utils.ErrMembershipExists):
			utils.Logger.Infof("Membership %s for user %s already exists; skipping seed.", m.Role, m.UserID)
		case err != nil:
			return fmt.Errorf("failed to insert %s membership for %s: %w", m.Role, m.UserID, err)
		default:
			utils.Logger.Infof("Seeded %s membership (ID=%s, user=%s).", m.Role, m.ID, m.UserID)
		}
	}
	return nil
}

// SeedWorkOrders only runs against a building without work orders, so a
// reseed never duplicates them.
func SeedWorkOrders(ctx context.Context, store repositories.Store, clock utils.Clock) error {
	count, err := store.WorkOrders().Count(ctx, repositories.NewWorkOrderQuery(repositories.ScopeAll()).InBuilding(MapleBuildingID))
	if err != nil {
		return fmt.Errorf("error counting seeded work orders: %w", err)
	}
	if count > 0 {
		utils.Logger.Infof("Building %s already has %d work orders; skipping seed.", MapleBuildingID, count)
		return nil
	}

	today := utils.Today(clock)
	seeds := []*models.WorkOrder{
		{Title: "Leaking pipe in basement", Priority: models.PriorityHigh, Status: models.WorkOrderStatusOpen, Deadline: today.AddDate(0, 0, 1)},
		{Title: "Replace hallway bulbs", Priority: models.PriorityLow, Status: models.WorkOrderStatusInProgress, Deadline: today.AddDate(0, 0, 5)},
		{Title: "Elevator inspection", Priority: models.PriorityMedium, Status: models.WorkOrderStatusAwaitingApproval, Deadline: today.AddDate(0, 0, 3)},
		{Title: "Repaint entrance", Priority: models.PriorityLow, Status: models.WorkOrderStatusDone, Deadline: today.AddDate(0, 0, -2)},
	}
	for _, wo := range seeds {
		wo.BuildingID = MapleBuildingID
		wo.Kind = models.WorkOrderKindMaintenance
		if err := store.WorkOrders().Create(ctx, wo); err != nil {
			return fmt.Errorf("failed to insert work order %q: %w", wo.Title, err)
		}
	}
	utils.Logger.Infof("Seeded %d work orders in building %s.", len(seeds), MapleBuildingID)
	return nil
}
