package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Mecho90/BuildingManagement-sub000/internal/cache"
	"github.com/Mecho90/BuildingManagement-sub000/internal/mailer"
	"github.com/Mecho90/BuildingManagement-sub000/internal/metrics"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories/memory"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

// testClock is a settable clock shared by the store and the services.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) AdvanceDays(n int) { c.Advance(time.Duration(n) * 24 * time.Hour) }

var day0 = time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	clock *testClock
	store *memory.Store
	mail  *recordingMailer

	metrics       *metrics.Metrics
	visibility    *VisibilityService
	audit         *AuditService
	notifications *NotificationService
	workOrders    *WorkOrderService
	memberships   *MembershipService
	buildings     *BuildingService
	units         *UnitService
	job           *NotificationSyncJob

	admin *models.User
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithOptions(t, NotificationOptions{})
}

func newFixtureWithOptions(t *testing.T, opts NotificationOptions) *fixture {
	t.Helper()
	clock := &testClock{now: day0}
	store := memory.NewStore(clock)
	m := metrics.New()
	mail := &recordingMailer{}

	f := &fixture{ctx: context.Background(), clock: clock, store: store, mail: mail, metrics: m}
	f.visibility = NewVisibilityService(store)
	f.audit = NewAuditService(store, f.visibility)
	f.notifications = NewNotificationService(store, f.visibility, cache.NewMemoryLabelCache(cache.DefaultLabelTTL, clock), mail, opts, clock, m)
	f.workOrders = NewWorkOrderService(store, f.visibility, f.audit, f.notifications, clock, m)
	f.memberships = NewMembershipService(store, f.audit)
	f.buildings = NewBuildingService(store, f.visibility)
	f.units = NewUnitService(store, f.visibility)
	f.job = NewNotificationSyncJob(store, f.notifications, clock, m)

	f.admin = &models.User{Username: "admin", FullName: "Ada Admin", Email: "admin@example.com", IsActive: true, IsStaff: true}
	require.NoError(t, store.Users().Create(f.ctx, f.admin))
	return f
}

func (f *fixture) today() time.Time { return utils.Today(f.clock) }

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, FullName: username + " user", Email: username + "@example.com", IsActive: true}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return u
}

func (f *fixture) building(t *testing.T, name string) *models.Building {
	t.Helper()
	b := &models.Building{Name: name, Address: name + " street 1", Role: models.BuildingRoleTechSupport}
	require.NoError(t, f.store.Buildings().Create(f.ctx, b))
	return b
}

func (f *fixture) grant(t *testing.T, u *models.User, b *models.Building, role models.MembershipRole, override models.CapabilityOverride) *models.BuildingMembership {
	t.Helper()
	m := &models.BuildingMembership{UserID: u.ID, Role: role, CapabilitiesOverride: override}
	if b != nil {
		id := b.ID
		m.BuildingID = &id
	}
	require.NoError(t, f.store.Memberships().Create(f.ctx, m))
	return m
}

func (f *fixture) order(t *testing.T, b *models.Building, title string, p models.WorkOrderPriority, dueInDays int) *models.WorkOrder {
	t.Helper()
	wo := &models.WorkOrder{
		BuildingID: b.ID,
		Title:      title,
		Status:     models.WorkOrderStatusOpen,
		Priority:   p,
		Kind:       models.WorkOrderKindMaintenance,
		Deadline:   f.today().AddDate(0, 0, dueInDays),
	}
	require.NoError(t, f.store.WorkOrders().Create(f.ctx, wo))
	return wo
}

func (f *fixture) notificationKeys(t *testing.T, u *models.User, category string) []string {
	t.Helper()
	rows, err := f.store.Notifications().ListByUser(f.ctx, u.ID, category)
	require.NoError(t, err)
	keys := make([]string, 0, len(rows))
	for _, n := range rows {
		keys = append(keys, n.Key)
	}
	return keys
}

func (f *fixture) workOrderAudit(t *testing.T, id uuid.UUID) []*models.WorkOrderAuditLog {
	t.Helper()
	logs, err := f.store.Audit().ListWorkOrderLogs(f.ctx, id)
	require.NoError(t, err)
	return logs
}

func auditActions(logs []*models.WorkOrderAuditLog) []models.WorkOrderAuditAction {
	out := make([]models.WorkOrderAuditAction, len(logs))
	for i, l := range logs {
		out[i] = l.Action
	}
	return out
}

func decodePayload(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message{}, m.sent...)
}
