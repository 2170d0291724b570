package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

var testNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *models.Building, *models.Building) {
	t.Helper()
	ctx := context.Background()
	s := NewStore(utils.FixedClock{At: testNow})
	b1 := &models.Building{Name: "Alpha", Address: "1 Main St", Role: models.BuildingRoleTechSupport}
	b2 := &models.Building{Name: "Beta", Address: "2 Side St", Role: models.BuildingRolePropertyManager}
	require.NoError(t, s.Buildings().Create(ctx, b1))
	require.NoError(t, s.Buildings().Create(ctx, b2))
	return s, b1, b2
}

func TestUnitNumberUniqueness_CaseInsensitivePerBuilding(t *testing.T) {
	ctx := context.Background()
	s, b1, b2 := newTestStore(t)

	require.NoError(t, s.Units().Create(ctx, &models.Unit{BuildingID: b1.ID, Number: "1A"}))

	err := s.Units().Create(ctx, &models.Unit{BuildingID: b1.ID, Number: "1a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrDuplicateUnitNumber))
	assert.True(t, errors.Is(err, utils.ErrIntegrity))

	require.NoError(t, s.Units().Create(ctx, &models.Unit{BuildingID: b2.ID, Number: "1a"}))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s, b1, _ := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx repositories.Store) error {
		require.NoError(t, tx.Units().Create(ctx, &models.Unit{BuildingID: b1.ID, Number: "7"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.Units().Count(ctx, repositories.NewUnitQuery(repositories.ScopeAll()))
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.WithTx(ctx, func(tx repositories.Store) error {
		return tx.Units().Create(ctx, &models.Unit{BuildingID: b1.ID, Number: "7"})
	}))
	n, err = s.Units().Count(ctx, repositories.NewUnitQuery(repositories.ScopeAll()))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWorkOrderCreate_RepairsAndValidates(t *testing.T) {
	ctx := context.Background()
	s, b1, b2 := newTestStore(t)
	unit := &models.Unit{BuildingID: b1.ID, Number: "3"}
	require.NoError(t, s.Units().Create(ctx, unit))

	wo := &models.WorkOrder{
		BuildingID: b2.ID, UnitID: &unit.ID, Title: "Leak",
		Status: models.WorkOrderStatusOpen, Priority: models.PriorityHigh,
		Kind: models.WorkOrderKindMaintenance, Deadline: testNow,
	}
	require.NoError(t, s.WorkOrders().Create(ctx, wo))
	stored, err := s.WorkOrders().GetByID(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, b1.ID, stored.BuildingID)
	assert.EqualValues(t, 1, stored.RowVersion)

	missing := &models.WorkOrder{BuildingID: b1.ID, Title: "No deadline", Status: models.WorkOrderStatusOpen,
		Priority: models.PriorityLow, Kind: models.WorkOrderKindMaintenance}
	assert.ErrorIs(t, s.WorkOrders().Create(ctx, missing), utils.ErrValidation)
}

func TestWorkOrderUpdateWithRetry_BumpsVersion(t *testing.T) {
	ctx := context.Background()
	s, b1, _ := newTestStore(t)
	wo := &models.WorkOrder{BuildingID: b1.ID, Title: "Paint", Status: models.WorkOrderStatusOpen,
		Priority: models.PriorityLow, Kind: models.WorkOrderKindMaintenance, Deadline: testNow}
	require.NoError(t, s.WorkOrders().Create(ctx, wo))

	require.NoError(t, s.WorkOrders().UpdateWithRetry(ctx, wo.ID, func(w *models.WorkOrder) error {
		w.Title = "Paint hallway"
		return nil
	}))
	got, err := s.WorkOrders().GetByID(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paint hallway", got.Title)
	assert.EqualValues(t, 2, got.RowVersion)

	tag, err := s.WorkOrders().UpdateIfVersion(ctx, got, 1)
	require.NoError(t, err)
	assert.Zero(t, tag.RowsAffected(), "stale version must not update")

	err = s.WorkOrders().UpdateWithRetry(ctx, uuid.New(), func(*models.WorkOrder) error { return nil })
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestBuildingQuery_ScopeAndFilters(t *testing.T) {
	ctx := context.Background()
	s, b1, b2 := newTestStore(t)

	all, err := s.Buildings().List(ctx, repositories.NewBuildingQuery(repositories.ScopeAll()))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].Name)

	none, err := s.Buildings().List(ctx, repositories.NewBuildingQuery(repositories.ScopeNone()))
	require.NoError(t, err)
	assert.Empty(t, none)

	scoped := repositories.NewBuildingQuery(repositories.ScopeIDs([]uuid.UUID{b2.ID}))
	got, err := s.Buildings().List(ctx, scoped)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b2.ID, got[0].ID)

	// Narrowing filters never widen the scope.
	got, err = s.Buildings().List(ctx, scoped.WithIDs(b1.ID))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Buildings().List(ctx, repositories.NewBuildingQuery(repositories.ScopeAll()).Search("side"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b2.ID, got[0].ID)
}

func TestBuildingDelete_Cascades(t *testing.T) {
	ctx := context.Background()
	s, b1, _ := newTestStore(t)
	unit := &models.Unit{BuildingID: b1.ID, Number: "1"}
	require.NoError(t, s.Units().Create(ctx, unit))
	wo := &models.WorkOrder{BuildingID: b1.ID, Title: "x", Status: models.WorkOrderStatusOpen,
		Priority: models.PriorityLow, Kind: models.WorkOrderKindMaintenance, Deadline: testNow}
	require.NoError(t, s.WorkOrders().Create(ctx, wo))

	require.NoError(t, s.Buildings().Delete(ctx, b1.ID))
	u, err := s.Units().GetByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Nil(t, u)
	w, err := s.WorkOrders().GetByID(ctx, wo.ID)
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestMembershipUniqueness_GlobalIsAValue(t *testing.T) {
	ctx := context.Background()
	s, b1, _ := newTestStore(t)
	u := &models.User{Username: "ana", IsActive: true}
	require.NoError(t, s.Users().Create(ctx, u))

	require.NoError(t, s.Memberships().Create(ctx, &models.BuildingMembership{UserID: u.ID, Role: models.RoleTechnician}))
	err := s.Memberships().Create(ctx, &models.BuildingMembership{UserID: u.ID, Role: models.RoleTechnician})
	assert.ErrorIs(t, err, utils.ErrMembershipExists)

	require.NoError(t, s.Memberships().Create(ctx, &models.BuildingMembership{UserID: u.ID, BuildingID: &b1.ID, Role: models.RoleTechnician}))
}

func TestNotificationBulkInsert_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	u := &models.User{Username: "ana", IsActive: true}
	require.NoError(t, s.Users().Create(ctx, u))

	require.NoError(t, s.Notifications().InsertMany(ctx, []*models.Notification{{UserID: u.ID, Key: "a"}}))
	err := s.Notifications().InsertMany(ctx, []*models.Notification{{UserID: u.ID, Key: "b"}, {UserID: u.ID, Key: "a"}})
	assert.ErrorIs(t, err, utils.ErrIntegrity)

	list, err := s.Notifications().ListByUser(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
