package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

func TestCreateWorkOrder_DefaultsAndAudit(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	tech := f.user(t, "tech")
	f.grant(t, tech, b, models.RoleTechnician, models.CapabilityOverride{})

	wo, err := f.workOrders.CreateWorkOrder(f.ctx, tech, CreateWorkOrderInput{
		BuildingID: b.ID,
		Title:      "  Broken lift ",
		Deadline:   f.today().AddDate(0, 0, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Broken lift", wo.Title)
	assert.Equal(t, models.WorkOrderStatusOpen, wo.Status)
	assert.Equal(t, models.PriorityMedium, wo.Priority)
	assert.Equal(t, models.WorkOrderKindMaintenance, wo.Kind)

	logs := f.workOrderAudit(t, wo.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, models.WorkOrderAuditCreated, logs[0].Action)
	require.NotNil(t, logs[0].ActorID)
	assert.Equal(t, tech.ID, *logs[0].ActorID)
	assert.Equal(t, "OPEN", decodePayload(t, logs[0].Payload)["status"])
}

func TestCreateWorkOrder_UnitDecidesBuilding(t *testing.T) {
	f := newFixture(t)
	b1 := f.building(t, "Maple")
	b2 := f.building(t, "Oak")
	unit := &models.Unit{BuildingID: b1.ID, Number: "12"}
	require.NoError(t, f.store.Units().Create(f.ctx, unit))

	wo, err := f.workOrders.CreateWorkOrder(f.ctx, f.admin, CreateWorkOrderInput{
		BuildingID: b2.ID,
		UnitID:     &unit.ID,
		Title:      "Heating",
		Priority:   models.PriorityHigh,
		Deadline:   f.today(),
	})
	require.NoError(t, err)
	assert.Equal(t, b1.ID, wo.BuildingID)
	assert.Equal(t, models.PriorityHigh, wo.Priority)
}

func TestCreateWorkOrder_Rejections(t *testing.T) {
	f := newFixture(t)
	b1 := f.building(t, "Maple")
	b2 := f.building(t, "Oak")
	tech := f.user(t, "tech")
	f.grant(t, tech, b1, models.RoleTechnician, models.CapabilityOverride{})
	auditor := f.user(t, "auditor")
	f.grant(t, auditor, nil, models.RoleAuditor, models.CapabilityOverride{})
	in := CreateWorkOrderInput{BuildingID: b2.ID, Title: "Paint", Deadline: f.today()}

	_, err := f.workOrders.CreateWorkOrder(f.ctx, nil, in)
	assert.ErrorIs(t, err, utils.ErrUnauthenticated)

	_, err = f.workOrders.CreateWorkOrder(f.ctx, tech, in)
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)

	_, err = f.workOrders.CreateWorkOrder(f.ctx, auditor, in)
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)

	_, err = f.workOrders.CreateWorkOrder(f.ctx, tech, CreateWorkOrderInput{BuildingID: uuid.New(), Title: "Paint", Deadline: f.today()})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.workOrders.CreateWorkOrder(f.ctx, tech, CreateWorkOrderInput{BuildingID: b1.ID, Title: "   ", Deadline: f.today()})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestTransitionStatus_AuditIsAtomic(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	wo, err := f.workOrders.CreateWorkOrder(f.ctx, f.admin, CreateWorkOrderInput{BuildingID: b.ID, Title: "Leak", Deadline: f.today()})
	require.NoError(t, err)

	_, err = f.workOrders.TransitionStatus(f.ctx, f.admin, wo.ID, models.WorkOrderStatusInProgress, " started ")
	require.NoError(t, err)
	logs := f.workOrderAudit(t, wo.ID)
	require.Equal(t, []models.WorkOrderAuditAction{models.WorkOrderAuditCreated, models.WorkOrderAuditStatusChanged}, auditActions(logs))
	payload := decodePayload(t, logs[1].Payload)
	assert.Equal(t, "OPEN", payload["from"])
	assert.Equal(t, "IN_PROGRESS", payload["to"])
	assert.Equal(t, "started", payload["note"])

	boom := errors.New("audit down")
	f.store.InjectAuditFailure(boom)
	_, err = f.workOrders.TransitionStatus(f.ctx, f.admin, wo.ID, models.WorkOrderStatusDone, "")
	require.ErrorIs(t, err, boom)
	f.store.InjectAuditFailure(nil)

	stored, err := f.store.WorkOrders().GetByID(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderStatusInProgress, stored.Status)
	assert.Len(t, f.workOrderAudit(t, wo.ID), 2)
}

func TestTransitionStatus_ApprovalNeedsCapability(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	tech := f.user(t, "tech")
	f.grant(t, tech, b, models.RoleTechnician, models.CapabilityOverride{})
	backoffice := f.user(t, "backoffice")
	f.grant(t, backoffice, b, models.RoleBackoffice, models.CapabilityOverride{})
	outsider := f.user(t, "outsider")
	wo := f.order(t, b, "Roof", models.PriorityHigh, 3)

	_, err := f.workOrders.TransitionStatus(f.ctx, tech, wo.ID, models.WorkOrderStatusApproved, "")
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)

	_, err = f.workOrders.TransitionStatus(f.ctx, outsider, wo.ID, models.WorkOrderStatusInProgress, "")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.workOrders.TransitionStatus(f.ctx, tech, wo.ID, models.WorkOrderStatusInProgress, "")
	require.NoError(t, err)

	_, err = f.workOrders.TransitionStatus(f.ctx, tech, wo.ID, "PAUSED", "")
	assert.ErrorIs(t, err, utils.ErrValidation)

	got, err := f.workOrders.TransitionStatus(f.ctx, backoffice, wo.ID, models.WorkOrderStatusRejected, "missing quote")
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderStatusRejected, got.Status)

	logs := f.workOrderAudit(t, wo.ID)
	require.NotEmpty(t, logs)
	assert.Equal(t, models.WorkOrderAuditApproval, logs[len(logs)-1].Action)
}

func TestApprovalRequests_FanOutAndCleanup(t *testing.T) {
	f := newFixtureWithOptions(t, NotificationOptions{EmailApprovals: true})
	b1 := f.building(t, "Maple")
	b2 := f.building(t, "Oak")

	submitter := f.user(t, "submitter")
	f.grant(t, submitter, b1, models.RoleTechnician, models.CapabilityOverride{Add: []models.Capability{models.CapApproveWorkOrders}})
	approver := f.user(t, "approver")
	f.grant(t, approver, b1, models.RoleBackoffice, models.CapabilityOverride{})
	globalAdmin := f.user(t, "global")
	f.grant(t, globalAdmin, nil, models.RoleAdministrator, models.CapabilityOverride{})
	elsewhere := f.user(t, "elsewhere")
	f.grant(t, elsewhere, b2, models.RoleBackoffice, models.CapabilityOverride{})
	inactive := &models.User{Username: "gone", Email: "gone@example.com"}
	require.NoError(t, f.store.Users().Create(f.ctx, inactive))
	f.grant(t, inactive, b1, models.RoleBackoffice, models.CapabilityOverride{})

	wo := f.order(t, b1, "New boiler", models.PriorityHigh, 10)
	got, err := f.workOrders.TransitionStatus(f.ctx, submitter, wo.ID, models.WorkOrderStatusAwaitingApproval, "")
	require.NoError(t, err)
	require.NotNil(t, got.AwaitingApprovalBy)
	assert.Equal(t, submitter.ID, *got.AwaitingApprovalBy)

	key := awaitingKey(wo.ID)
	assert.Equal(t, []string{key}, f.notificationKeys(t, approver, models.CategoryApproval))
	assert.Equal(t, []string{key}, f.notificationKeys(t, globalAdmin, models.CategoryApproval))
	assert.Empty(t, f.notificationKeys(t, submitter, models.CategoryApproval))
	assert.Empty(t, f.notificationKeys(t, elsewhere, models.CategoryApproval))
	assert.Empty(t, f.notificationKeys(t, inactive, models.CategoryApproval))

	n, err := f.store.Notifications().GetByKey(f.ctx, approver.ID, key)
	require.NoError(t, err)
	assert.Equal(t, models.LevelWarning, n.Level)
	assert.Contains(t, n.Body, "submitter user")

	sent := f.mail.Sent()
	require.Len(t, sent, 2)
	assert.ElementsMatch(t, []string{approver.Email, globalAdmin.Email}, []string{sent[0].ToEmail, sent[1].ToEmail})

	_, err = f.workOrders.TransitionStatus(f.ctx, approver, wo.ID, models.WorkOrderStatusApproved, "")
	require.NoError(t, err)
	assert.Empty(t, f.notificationKeys(t, approver, models.CategoryApproval))
	assert.Empty(t, f.notificationKeys(t, globalAdmin, models.CategoryApproval))
}

func TestArchiveWorkOrder_OnlyDoneAndIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	wo := f.order(t, b, "Windows", models.PriorityLow, 20)

	_, err := f.workOrders.ArchiveWorkOrder(f.ctx, f.admin, wo.ID)
	require.ErrorIs(t, err, utils.ErrNotArchivable)

	_, err = f.workOrders.TransitionStatus(f.ctx, f.admin, wo.ID, models.WorkOrderStatusDone, "")
	require.NoError(t, err)

	first, err := f.workOrders.ArchiveWorkOrder(f.ctx, f.admin, wo.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ArchivedAt)
	assert.True(t, first.ArchivedAt.Equal(day0))

	f.clock.AdvanceDays(1)
	second, err := f.workOrders.ArchiveWorkOrder(f.ctx, f.admin, wo.ID)
	require.NoError(t, err)
	require.NotNil(t, second.ArchivedAt)
	assert.True(t, second.ArchivedAt.Equal(*first.ArchivedAt))

	archived := 0
	for _, a := range auditActions(f.workOrderAudit(t, wo.ID)) {
		if a == models.WorkOrderAuditArchived {
			archived++
		}
	}
	assert.Equal(t, 1, archived)

	reopened, err := f.workOrders.TransitionStatus(f.ctx, f.admin, wo.ID, models.WorkOrderStatusInProgress, "")
	require.NoError(t, err)
	assert.Nil(t, reopened.ArchivedAt)
}

func TestMassAssign_CreatesOncePerBuilding(t *testing.T) {
	f := newFixture(t)
	b1 := f.building(t, "Maple")
	b2 := f.building(t, "Oak")
	b3 := f.building(t, "Pine")
	tech := f.user(t, "tech")
	f.grant(t, tech, b1, models.RoleTechnician, models.CapabilityOverride{})
	const title = "Check smoke detectors"

	res, err := f.workOrders.MassAssign(f.ctx, f.admin, MassAssignInput{BuildingIDs: []uuid.UUID{b1.ID, b2.ID, b1.ID}, Title: title})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Equal(t, []uuid.UUID{b1.ID}, res.Skipped, "a repeated selection counts as skipped")
	for _, wo := range res.Created {
		assert.Equal(t, models.PriorityLow, wo.Priority)
		assert.Equal(t, models.WorkOrderKindMassAssign, wo.Kind)
		assert.Equal(t, models.WorkOrderStatusOpen, wo.Status)
		assert.True(t, wo.MassAssigned)
		assert.True(t, wo.Deadline.Equal(f.today().AddDate(0, 0, 30)))
	}
	b1Order := res.Created[0]
	require.Equal(t, b1.ID, b1Order.BuildingID)
	assert.Equal(t, []string{massAssignKey(b1Order.ID)}, f.notificationKeys(t, tech, models.CategoryMassAssign))

	res, err = f.workOrders.MassAssign(f.ctx, f.admin, MassAssignInput{BuildingIDs: []uuid.UUID{b1.ID, b3.ID}, Title: title})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, b3.ID, res.Created[0].BuildingID)
	assert.Equal(t, []uuid.UUID{b1.ID}, res.Skipped)

	// a completed assignment no longer blocks a new one
	_, err = f.workOrders.TransitionStatus(f.ctx, f.admin, b1Order.ID, models.WorkOrderStatusDone, "")
	require.NoError(t, err)
	res, err = f.workOrders.MassAssign(f.ctx, f.admin, MassAssignInput{BuildingIDs: []uuid.UUID{b1.ID}, Title: title})
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
	assert.Empty(t, res.Skipped)
}

func TestMassAssign_Rejections(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	local := f.user(t, "local-admin")
	f.grant(t, local, b, models.RoleAdministrator, models.CapabilityOverride{})

	_, err := f.workOrders.MassAssign(f.ctx, local, MassAssignInput{BuildingIDs: []uuid.UUID{b.ID}, Title: "Paint"})
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)

	_, err = f.workOrders.MassAssign(f.ctx, f.admin, MassAssignInput{BuildingIDs: []uuid.UUID{b.ID}, Title: " "})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.workOrders.MassAssign(f.ctx, f.admin, MassAssignInput{Title: "Paint"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.workOrders.MassAssign(f.ctx, f.admin, MassAssignInput{BuildingIDs: []uuid.UUID{b.ID, uuid.New()}, Title: "Paint"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	n, err := f.store.WorkOrders().Count(f.ctx, repositories.NewWorkOrderQuery(repositories.ScopeAll()))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMassAssignCandidates_TechSupportOnly(t *testing.T) {
	f := newFixture(t)
	f.building(t, "Maple")
	pm := &models.Building{Name: "Managed", Role: models.BuildingRolePropertyManager}
	require.NoError(t, f.store.Buildings().Create(f.ctx, pm))

	list, err := f.workOrders.MassAssignCandidates(f.ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Maple", list[0].Name)
}

func TestUpdateWorkOrder_ReassignKeepsUnitConsistent(t *testing.T) {
	f := newFixture(t)
	b1 := f.building(t, "Maple")
	b2 := f.building(t, "Oak")
	u1 := &models.Unit{BuildingID: b1.ID, Number: "1"}
	u2 := &models.Unit{BuildingID: b2.ID, Number: "2"}
	require.NoError(t, f.store.Units().Create(f.ctx, u1))
	require.NoError(t, f.store.Units().Create(f.ctx, u2))

	wo, err := f.workOrders.CreateWorkOrder(f.ctx, f.admin, CreateWorkOrderInput{UnitID: &u1.ID, Title: "Door", Deadline: f.today()})
	require.NoError(t, err)

	moved, err := f.workOrders.UpdateWorkOrder(f.ctx, f.admin, wo.ID, UpdateWorkOrderInput{UnitID: &u2.ID})
	require.NoError(t, err)
	assert.Equal(t, b2.ID, moved.BuildingID)
	require.NotNil(t, moved.UnitID)
	assert.Equal(t, u2.ID, *moved.UnitID)

	back, err := f.workOrders.UpdateWorkOrder(f.ctx, f.admin, wo.ID, UpdateWorkOrderInput{BuildingID: &b1.ID})
	require.NoError(t, err)
	assert.Equal(t, b1.ID, back.BuildingID)
	assert.Nil(t, back.UnitID)

	title := "Front door"
	_, err = f.workOrders.UpdateWorkOrder(f.ctx, f.admin, wo.ID, UpdateWorkOrderInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, []models.WorkOrderAuditAction{
		models.WorkOrderAuditCreated,
		models.WorkOrderAuditReassigned,
		models.WorkOrderAuditReassigned,
	}, auditActions(f.workOrderAudit(t, wo.ID)))

	tech := f.user(t, "tech")
	f.grant(t, tech, b1, models.RoleTechnician, models.CapabilityOverride{})
	_, err = f.workOrders.UpdateWorkOrder(f.ctx, tech, wo.ID, UpdateWorkOrderInput{BuildingID: &b2.ID})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDeleteWorkOrder_RemovesItsNotifications(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	wo := f.order(t, b, "Gutter", models.PriorityHigh, 1)

	_, err := f.notifications.SyncWorkOrderDeadlines(f.ctx, f.admin, f.today())
	require.NoError(t, err)
	require.Equal(t, []string{deadlineKey(wo.ID)}, f.notificationKeys(t, f.admin, ""))

	require.NoError(t, f.workOrders.DeleteWorkOrder(f.ctx, f.admin, wo.ID))
	assert.Empty(t, f.notificationKeys(t, f.admin, ""))
	_, err = f.workOrders.GetWorkOrder(f.ctx, f.admin, wo.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestListWorkOrders_ScopedAndPaged(t *testing.T) {
	f := newFixture(t)
	b1 := f.building(t, "Maple")
	b2 := f.building(t, "Oak")
	tech := f.user(t, "tech")
	f.grant(t, tech, b1, models.RoleTechnician, models.CapabilityOverride{})
	f.order(t, b1, "Pipes", models.PriorityHigh, 2)
	f.order(t, b1, "Lights", models.PriorityLow, 4)
	f.order(t, b2, "Fence", models.PriorityHigh, 1)

	page, err := f.workOrders.ListWorkOrders(f.ctx, tech, ListWorkOrdersInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "Pipes", page.Results[0].Title)

	page, err = f.workOrders.ListWorkOrders(f.ctx, f.admin, ListWorkOrdersInput{Priorities: []models.WorkOrderPriority{models.PriorityHigh}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Fence", page.Results[0].Title)

	page, err = f.workOrders.ListWorkOrders(f.ctx, f.admin, ListWorkOrdersInput{BuildingID: &b2.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = f.workOrders.ListWorkOrders(f.ctx, tech, ListWorkOrdersInput{Search: "fence"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestWorkOrderMutations_NeedCreateCapability(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	auditor := f.user(t, "auditor")
	f.grant(t, auditor, nil, models.RoleAuditor, models.CapabilityOverride{})
	wo := f.order(t, b, "Boiler", models.PriorityHigh, 5)

	_, err := f.workOrders.GetWorkOrder(f.ctx, auditor, wo.ID)
	require.NoError(t, err, "auditors can read every order")

	_, err = f.workOrders.TransitionStatus(f.ctx, auditor, wo.ID, models.WorkOrderStatusDone, "")
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)
	title := "Renamed"
	_, err = f.workOrders.UpdateWorkOrder(f.ctx, auditor, wo.ID, UpdateWorkOrderInput{Title: &title})
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)
	assert.ErrorIs(t, f.workOrders.DeleteWorkOrder(f.ctx, auditor, wo.ID), utils.ErrPermissionDenied)

	_, err = f.workOrders.TransitionStatus(f.ctx, f.admin, wo.ID, models.WorkOrderStatusDone, "")
	require.NoError(t, err)
	_, err = f.workOrders.ArchiveWorkOrder(f.ctx, auditor, wo.ID)
	assert.ErrorIs(t, err, utils.ErrPermissionDenied)

	stored, err := f.store.WorkOrders().GetByID(f.ctx, wo.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Boiler", stored.Title)
	assert.Nil(t, stored.ArchivedAt)

	tech := f.user(t, "tech")
	f.grant(t, tech, b, models.RoleTechnician, models.CapabilityOverride{})
	_, err = f.workOrders.ArchiveWorkOrder(f.ctx, tech, wo.ID)
	require.NoError(t, err)
	require.NoError(t, f.workOrders.DeleteWorkOrder(f.ctx, tech, wo.ID))
}

func TestMassAssign_TechSupportBuildingsOnly(t *testing.T) {
	f := newFixture(t)
	b := f.building(t, "Maple")
	pm := &models.Building{Name: "Managed", Role: models.BuildingRolePropertyManager}
	require.NoError(t, f.store.Buildings().Create(f.ctx, pm))

	_, err := f.workOrders.MassAssign(f.ctx, f.admin, MassAssignInput{BuildingIDs: []uuid.UUID{b.ID, pm.ID}, Title: "Paint"})
	var vErr *utils.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "buildings", vErr.Field)

	n, err := f.store.WorkOrders().Count(f.ctx, repositories.NewWorkOrderQuery(repositories.ScopeAll()))
	require.NoError(t, err)
	assert.Zero(t, n)
}
