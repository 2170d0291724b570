package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

func keysOf(list []*models.Notification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.Key
	}
	return out
}

func TestSyncWorkOrderDeadlines_PriorityWindows(t *testing.T) {
	f := newFixture(t)
	owner := &models.User{Username: "olga", FullName: "Olga Owner", IsActive: true}
	require.NoError(t, f.store.Users().Create(f.ctx, owner))
	b := &models.Building{Name: "Maple", Role: models.BuildingRoleTechSupport, OwnerID: &owner.ID}
	require.NoError(t, f.store.Buildings().Create(f.ctx, b))

	high7 := f.order(t, b, "Roof", models.PriorityHigh, 7)
	f.order(t, b, "Attic", models.PriorityHigh, 8)
	medium0 := f.order(t, b, "Lift", models.PriorityMedium, 0)
	low30 := f.order(t, b, "Paint", models.PriorityLow, 30)
	f.order(t, b, "Garden", models.PriorityLow, 31)
	f.order(t, b, "Overdue", models.PriorityHigh, -1)
	done := f.order(t, b, "Fixed", models.PriorityHigh, 1)
	_, err := f.workOrders.TransitionStatus(f.ctx, f.admin, done.ID, models.WorkOrderStatusDone, "")
	require.NoError(t, err)

	active, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{deadlineKey(high7.ID), deadlineKey(medium0.ID), deadlineKey(low30.ID)}, keysOf(active))

	n, err := f.store.Notifications().GetByKey(f.ctx, f.admin.ID, deadlineKey(high7.ID))
	require.NoError(t, err)
	assert.Equal(t, models.LevelDanger, n.Level)
	assert.Equal(t, models.CategoryDeadline, n.Category)
	assert.Equal(t, "Roof", n.Title)
	assert.Contains(t, n.Body, "due in 7 days")
	assert.Contains(t, n.Body, "(owner: Olga Owner)")
	require.NotNil(t, n.SnoozedUntil)
	assert.True(t, n.SnoozedUntil.Equal(f.today()))

	// owner labels are only shown to privileged users
	tech := f.user(t, "tech")
	f.grant(t, tech, b, models.RoleTechnician, models.CapabilityOverride{})
	_, err = f.notifications.SyncWorkOrderDeadlines(f.ctx, tech, f.today())
	require.NoError(t, err)
	n, err = f.store.Notifications().GetByKey(f.ctx, tech.ID, deadlineKey(medium0.ID))
	require.NoError(t, err)
	assert.Contains(t, n.Body, "due today")
	assert.NotContains(t, n.Body, "owner:")
}

func TestSyncWorkOrderDeadlines_CapsEachPriority(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	for i := 0; i < 12; i++ {
		f.order(t, b, "High", models.PriorityHigh, 1)
	}
	for i := 0; i < 3; i++ {
		f.order(t, b, "Low", models.PriorityLow, 2)
	}

	active, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	perLevel := map[models.NotificationLevel]int{}
	for _, n := range active {
		perLevel[n.Level]++
	}
	assert.Equal(t, 10, perLevel[models.LevelDanger])
	assert.Equal(t, 3, perLevel[models.LevelInfo])
}

func TestSyncWorkOrderDeadlines_SnoozeIsPinnedToToday(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	wo := f.order(t, b, "Boiler", models.PriorityHigh, 6)
	key := deadlineKey(wo.ID)

	_, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)

	later := f.today().AddDate(0, 0, 3)
	_, err = f.notifications.Snooze(f.ctx, f.admin, key, &later, f.today())
	require.NoError(t, err)

	active, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	assert.Empty(t, active)
	n, err := f.store.Notifications().GetByKey(f.ctx, f.admin.ID, key)
	require.NoError(t, err)
	assert.True(t, n.SnoozedUntil.Equal(later), "a future snooze survives the sync")

	f.clock.AdvanceDays(4)
	active, err = f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keysOf(active))
	n, err = f.store.Notifications().GetByKey(f.ctx, f.admin.ID, key)
	require.NoError(t, err)
	assert.True(t, n.SnoozedUntil.Equal(f.today()))
	assert.Contains(t, n.Body, "due in 2 days")
}

func TestSyncWorkOrderDeadlines_StaleAndAcknowledged(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	first := f.order(t, b, "Pipes", models.PriorityHigh, 2)
	second := f.order(t, b, "Drains", models.PriorityHigh, 3)

	_, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	acked, err := f.notifications.Acknowledge(f.ctx, f.admin, []string{deadlineKey(first.ID)})
	require.NoError(t, err)
	require.Equal(t, 1, acked)

	title := "Pipes and valves"
	_, err = f.workOrders.UpdateWorkOrder(f.ctx, f.admin, first.ID, UpdateWorkOrderInput{Title: &title})
	require.NoError(t, err)
	_, err = f.workOrders.TransitionStatus(f.ctx, f.admin, second.ID, models.WorkOrderStatusDone, "")
	require.NoError(t, err)

	active, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, []string{deadlineKey(first.ID)}, f.notificationKeys(t, f.admin, models.CategoryDeadline))

	n, err := f.store.Notifications().GetByKey(f.ctx, f.admin.ID, deadlineKey(first.ID))
	require.NoError(t, err)
	assert.Equal(t, title, n.Title)
	assert.True(t, n.IsAcknowledged())
}

func TestSyncWorkOrderDeadlines_AnonymousIsEmpty(t *testing.T) {
	f := newFixture(t)
	active, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, nil, f.today())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSyncRecentMassAssign_KeepsAcknowledgedUntilOld(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	tech := f.user(t, "tech")
	f.grant(t, tech, b, models.RoleTechnician, models.CapabilityOverride{})

	res, err := f.workOrders.MassAssign(f.ctx, f.admin, MassAssignInput{BuildingIDs: []uuid.UUID{b.ID}, Title: "Meter reading"})
	require.NoError(t, err)
	key := massAssignKey(res.Created[0].ID)

	active, err := f.notifications.SyncRecentMassAssign(f.ctx, tech, f.today())
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keysOf(active))
	assert.Equal(t, models.LevelInfo, active[0].Level)

	_, err = f.notifications.Acknowledge(f.ctx, tech, []string{key})
	require.NoError(t, err)
	active, err = f.notifications.SyncRecentMassAssign(f.ctx, tech, f.today())
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, []string{key}, f.notificationKeys(t, tech, models.CategoryMassAssign))

	f.clock.AdvanceDays(8)
	_, err = f.notifications.SyncRecentMassAssign(f.ctx, tech, f.today())
	require.NoError(t, err)
	assert.Empty(t, f.notificationKeys(t, tech, models.CategoryMassAssign))
}

func TestSnooze(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	wo := f.order(t, b, "Boiler", models.PriorityHigh, 1)
	_, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	key := deadlineKey(wo.ID)

	yesterday := f.today().AddDate(0, 0, -1)
	_, err = f.notifications.Snooze(f.ctx, f.admin, key, &yesterday, f.today())
	assert.ErrorIs(t, err, utils.ErrSnoozeInPast)

	tomorrow := f.today().AddDate(0, 0, 1)
	_, err = f.notifications.Snooze(f.ctx, f.admin, "wo-deadline-missing", &tomorrow, f.today())
	assert.ErrorIs(t, err, utils.ErrNotificationNotFound)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	n, err := f.notifications.Snooze(f.ctx, f.admin, key, &tomorrow, f.today())
	require.NoError(t, err)
	assert.True(t, n.SnoozedUntil.Equal(tomorrow))
	active, err := f.notifications.Active(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	assert.Empty(t, active)

	n, err = f.notifications.Snooze(f.ctx, f.admin, key, nil, f.today())
	require.NoError(t, err)
	assert.Nil(t, n.SnoozedUntil)
	active, err = f.notifications.Active(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = f.notifications.Snooze(f.ctx, nil, key, nil, f.today())
	assert.ErrorIs(t, err, utils.ErrUnauthenticated)
}

func TestAcknowledgeMarkSeenAndPrune(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	wo1 := f.order(t, b, "One", models.PriorityHigh, 1)
	wo2 := f.order(t, b, "Two", models.PriorityHigh, 2)
	_, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	k1, k2 := deadlineKey(wo1.ID), deadlineKey(wo2.ID)

	n, err := f.notifications.Acknowledge(f.ctx, f.admin, []string{k1, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.notifications.Acknowledge(f.ctx, f.admin, []string{k1})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.notifications.MarkSeen(f.ctx, f.admin, []string{k1, k2})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = f.notifications.MarkSeen(f.ctx, f.admin, []string{k1, k2})
	require.NoError(t, err)
	assert.Zero(t, n)

	pruned, err := f.notifications.PruneAcknowledged(f.ctx, f.admin, 0)
	require.NoError(t, err)
	assert.Zero(t, pruned)

	f.clock.AdvanceDays(31)
	pruned, err = f.notifications.PruneAcknowledged(f.ctx, f.admin, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
	assert.Equal(t, []string{k2}, f.notificationKeys(t, f.admin, ""))
}

func TestComputeRecipients(t *testing.T) {
	f := newFixture(t)
	b1 := f.building(t, "Maple")
	b2 := f.building(t, "Oak")

	backoffice := f.user(t, "backoffice")
	f.grant(t, backoffice, b1, models.RoleBackoffice, models.CapabilityOverride{})
	promoted := f.user(t, "promoted")
	f.grant(t, promoted, b1, models.RoleTechnician, models.CapabilityOverride{Add: []models.Capability{models.CapApproveWorkOrders}})
	demoted := f.user(t, "demoted")
	f.grant(t, demoted, b1, models.RoleBackoffice, models.CapabilityOverride{Remove: []models.Capability{models.CapApproveWorkOrders}})
	global := f.user(t, "global")
	f.grant(t, global, nil, models.RoleAdministrator, models.CapabilityOverride{})
	auditor := f.user(t, "auditor")
	f.grant(t, auditor, nil, models.RoleAuditor, models.CapabilityOverride{})
	other := f.user(t, "other")
	f.grant(t, other, b2, models.RoleBackoffice, models.CapabilityOverride{})

	users, err := f.notifications.ComputeRecipients(f.ctx, b1.ID, models.CapApproveWorkOrders)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	assert.ElementsMatch(t, []uuid.UUID{backoffice.ID, promoted.ID, global.ID}, ids)
}
