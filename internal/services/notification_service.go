package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mecho90/BuildingManagement-sub000/internal/authz"
	"github.com/Mecho90/BuildingManagement-sub000/internal/cache"
	"github.com/Mecho90/BuildingManagement-sub000/internal/constants"
	"github.com/Mecho90/BuildingManagement-sub000/internal/i18n"
	"github.com/Mecho90/BuildingManagement-sub000/internal/mailer"
	"github.com/Mecho90/BuildingManagement-sub000/internal/metrics"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type NotificationOptions struct {
	Language       string
	EmailApprovals bool
}

type NotificationService struct {
	store      repositories.Store
	visibility *VisibilityService
	labels     cache.LabelCache
	mail       mailer.Mailer
	loc        *i18n.Localizer
	opts       NotificationOptions
	clock      utils.Clock
	metrics    *metrics.Metrics
}

func NewNotificationService(
	store repositories.Store,
	visibility *VisibilityService,
	labels cache.LabelCache,
	mail mailer.Mailer,
	opts NotificationOptions,
	clock utils.Clock,
	m *metrics.Metrics,
) *NotificationService {
	if mail == nil {
		mail = mailer.NoopMailer{}
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &NotificationService{
		store:      store,
		visibility: visibility,
		labels:     labels,
		mail:       mail,
		loc:        i18n.New(opts.Language),
		opts:       opts,
		clock:      clock,
		metrics:    m,
	}
}

/* ---------- upsert ---------- */

type upsertOptions struct {
	// skipAcknowledged leaves acknowledged rows untouched.
	skipAcknowledged bool
	// pinSnooze, when set, is the snooze date of new rows and replaces a
	// missing or elapsed snooze on existing ones. Future snoozes survive.
	pinSnooze *time.Time
}

// upsert reconciles one user's rows for payloads: a locked bulk read, one bulk
// insert and one bulk update of the rows that actually changed.
func (s *NotificationService) upsert(
	ctx context.Context,
	tx repositories.Store,
	userID uuid.UUID,
	payloads []models.NotificationPayload,
	opts upsertOptions,
) (inserted, updated int, err error) {
	if len(payloads) == 0 {
		return 0, 0, nil
	}
	keys := make([]string, len(payloads))
	for i, p := range payloads {
		keys[i] = p.Key
	}
	rows, err := tx.Notifications().LockByKeys(ctx, userID, keys)
	if err != nil {
		return 0, 0, fmt.Errorf("lock notifications: %w", err)
	}
	existing := make(map[string]*models.Notification, len(rows))
	for _, n := range rows {
		existing[n.Key] = n
	}

	var toInsert, toUpdate []*models.Notification
	for _, p := range payloads {
		n, ok := existing[p.Key]
		if !ok {
			n = &models.Notification{UserID: userID, Key: p.Key}
			p.Apply(n)
			if opts.pinSnooze != nil {
				d := *opts.pinSnooze
				n.SnoozedUntil = &d
			}
			toInsert = append(toInsert, n)
			existing[p.Key] = n
			continue
		}
		if opts.skipAcknowledged && n.IsAcknowledged() {
			continue
		}
		changed := p.Apply(n)
		if pin := opts.pinSnooze; pin != nil {
			if n.SnoozedUntil == nil || !n.SnoozedUntil.After(*pin) {
				if n.SnoozedUntil == nil || !n.SnoozedUntil.Equal(*pin) {
					d := *pin
					n.SnoozedUntil = &d
					changed = true
				}
			}
		}
		if changed {
			toUpdate = append(toUpdate, n)
		}
	}

	if len(toInsert) > 0 {
		if err := tx.Notifications().InsertMany(ctx, toInsert); err != nil {
			return 0, 0, fmt.Errorf("insert notifications: %w", err)
		}
	}
	if len(toUpdate) > 0 {
		if err := tx.Notifications().UpdateMany(ctx, toUpdate); err != nil {
			return 0, 0, fmt.Errorf("update notifications: %w", err)
		}
	}
	return len(toInsert), len(toUpdate), nil
}

func (s *NotificationService) countWrites(category string, inserted, updated int) {
	s.metrics.CountUpserted(category, "insert", inserted)
	s.metrics.CountUpserted(category, "update", updated)
}

/* ---------- periodic sync ---------- */

func deadlineKey(id uuid.UUID) string   { return constants.NotificationKeyDeadline + id.String() }
func massAssignKey(id uuid.UUID) string { return constants.NotificationKeyMassAssign + id.String() }
func awaitingKey(id uuid.UUID) string   { return constants.NotificationKeyAwaiting + id.String() }

func (s *NotificationService) buildingName(b *models.Building) string {
	if b == nil {
		return s.loc.BuildingPlaceholder()
	}
	return b.Name
}

// deadlinePayloads applies the per-priority windows and caps to candidates,
// which must already be ordered by deadline ascending then id descending.
func (s *NotificationService) deadlinePayloads(
	candidates []*models.WorkOrder,
	buildings map[uuid.UUID]*models.Building,
	ownerLabels map[uuid.UUID]string,
	today time.Time,
) []models.NotificationPayload {
	perPriority := map[models.WorkOrderPriority]int{}
	out := []models.NotificationPayload{}
	for _, wo := range candidates {
		window, ok := constants.DeadlineWindowDays[wo.Priority]
		if !ok {
			continue
		}
		daysLeft := utils.DaysBetween(today, wo.Deadline)
		if daysLeft > window || perPriority[wo.Priority] >= constants.DeadlineAlertsPerPriority {
			continue
		}
		perPriority[wo.Priority]++

		b := buildings[wo.BuildingID]
		owner := ""
		if b != nil && b.OwnerID != nil {
			owner = ownerLabels[*b.OwnerID]
		}
		out = append(out, models.NotificationPayload{
			Key:      deadlineKey(wo.ID),
			Category: models.CategoryDeadline,
			Level:    models.LevelForPriority(wo.Priority),
			Title:    wo.Title,
			Body:     s.loc.DeadlineBody(wo.Priority, wo.Title, s.buildingName(b), daysLeft, wo.Deadline, owner),
		})
	}
	return out
}

// SyncWorkOrderDeadlines rebuilds the user's deadline alerts for today and
// returns the ones active on that date.
func (s *NotificationService) SyncWorkOrderDeadlines(ctx context.Context, user *models.User, today time.Time) ([]*models.Notification, error) {
	if !user.IsAuthenticated() {
		return []*models.Notification{}, nil
	}
	today = utils.DateOnly(today)

	q, err := s.visibility.VisibleWorkOrders(ctx, user)
	if err != nil {
		return nil, err
	}
	q = q.Archived(false).
		WithStatuses(models.DeadlineAlertStatuses...).
		DeadlineBetween(today, today.AddDate(0, 0, constants.DeadlineHorizonDays)).
		OrderBy(repositories.WorkOrderOrderDeadline)
	candidates, err := s.store.WorkOrders().List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list deadline candidates: %w", err)
	}

	buildingIDs := make([]uuid.UUID, 0, len(candidates))
	for _, wo := range candidates {
		buildingIDs = append(buildingIDs, wo.BuildingID)
	}
	buildings, err := buildingsByID(ctx, s.store, buildingIDs)
	if err != nil {
		return nil, err
	}

	ownerLabels := map[uuid.UUID]string{}
	if authz.IsPrivileged(user) {
		var ownerIDs []uuid.UUID
		for _, b := range buildings {
			if b.OwnerID != nil {
				ownerIDs = append(ownerIDs, *b.OwnerID)
			}
		}
		ownerLabels, err = cache.OwnerLabels(ctx, s.labels, s.store.Users(), uniqueIDs(ownerIDs))
		if err != nil {
			return nil, err
		}
	}

	payloads := s.deadlinePayloads(candidates, buildings, ownerLabels, today)
	keep := make([]string, len(payloads))
	for i, p := range payloads {
		keep[i] = p.Key
	}

	var inserted, updated int
	var stale int64
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		var err error
		inserted, updated, err = s.upsert(ctx, tx, user.ID, payloads, upsertOptions{pinSnooze: &today})
		if err != nil {
			return err
		}
		stale, err = tx.Notifications().DeleteStale(ctx, user.ID, models.CategoryDeadline, keep)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sync deadlines for %s: %w", user.ID, err)
	}
	s.countWrites(models.CategoryDeadline, inserted, updated)
	s.metrics.CountDeleted("stale", stale)

	return s.activeIn(ctx, user, today, models.CategoryDeadline)
}

// SyncRecentMassAssign keeps one alert per mass-assigned order created in the
// last week, newest first. Acknowledged alerts are kept but never rewritten.
func (s *NotificationService) SyncRecentMassAssign(ctx context.Context, user *models.User, today time.Time) ([]*models.Notification, error) {
	if !user.IsAuthenticated() {
		return []*models.Notification{}, nil
	}
	today = utils.DateOnly(today)

	q, err := s.visibility.VisibleWorkOrders(ctx, user)
	if err != nil {
		return nil, err
	}
	since := s.clock.Now().AddDate(0, 0, -constants.MassAssignRecentDays)
	q = q.MassAssigned(true).
		CreatedSince(since).
		OrderBy(repositories.WorkOrderOrderCreated).
		Page(constants.MassAssignRecentLimit, 0)
	orders, err := s.store.WorkOrders().List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list recent mass assignments: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, wo := range orders {
		ids = append(ids, wo.BuildingID)
	}
	buildings, err := buildingsByID(ctx, s.store, ids)
	if err != nil {
		return nil, err
	}

	payloads := make([]models.NotificationPayload, 0, len(orders))
	keep := make([]string, 0, len(orders))
	for _, wo := range orders {
		p := s.massAssignPayload(wo, buildings[wo.BuildingID])
		payloads = append(payloads, p)
		keep = append(keep, p.Key)
	}

	var inserted, updated int
	var stale int64
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		var err error
		inserted, updated, err = s.upsert(ctx, tx, user.ID, payloads, upsertOptions{skipAcknowledged: true})
		if err != nil {
			return err
		}
		stale, err = tx.Notifications().DeleteStale(ctx, user.ID, models.CategoryMassAssign, keep)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sync mass assignments for %s: %w", user.ID, err)
	}
	s.countWrites(models.CategoryMassAssign, inserted, updated)
	s.metrics.CountDeleted("stale", stale)

	return s.activeIn(ctx, user, today, models.CategoryMassAssign)
}

func (s *NotificationService) massAssignPayload(wo *models.WorkOrder, b *models.Building) models.NotificationPayload {
	return models.NotificationPayload{
		Key:      massAssignKey(wo.ID),
		Category: models.CategoryMassAssign,
		Level:    models.LevelInfo,
		Title:    wo.Title,
		Body:     s.loc.MassAssignBody(wo.Title, s.buildingName(b), wo.Deadline),
	}
}

/* ---------- fan-out ---------- */

// ComputeRecipients lists active users holding c on buildingID through a
// global or building-scoped membership.
func (s *NotificationService) ComputeRecipients(ctx context.Context, buildingID uuid.UUID, c models.Capability) ([]*models.User, error) {
	rows, err := s.store.Memberships().ListForBuilding(ctx, buildingID)
	if err != nil {
		return nil, fmt.Errorf("list memberships for %s: %w", buildingID, err)
	}
	return s.activeUsers(ctx, authz.UsersWithCapability(rows, buildingID, c))
}

func (s *NotificationService) technicians(ctx context.Context, buildingID uuid.UUID) ([]*models.User, error) {
	rows, err := s.store.Memberships().ListForBuilding(ctx, buildingID)
	if err != nil {
		return nil, fmt.Errorf("list memberships for %s: %w", buildingID, err)
	}
	return s.activeUsers(ctx, authz.UsersWithRole(rows, buildingID, models.RoleTechnician))
}

func (s *NotificationService) activeUsers(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	users, err := s.store.Users().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b *models.User) int { return slices.Index(ids, a.ID) - slices.Index(ids, b.ID) })
	return out, nil
}

// NotifyApprovers alerts every approver of the order's building except the
// submitter. It returns the users that were notified.
func (s *NotificationService) NotifyApprovers(ctx context.Context, wo *models.WorkOrder, submitter *models.User) ([]*models.User, error) {
	recipients, err := s.ComputeRecipients(ctx, wo.BuildingID, models.CapApproveWorkOrders)
	if err != nil {
		return nil, err
	}
	if submitter != nil {
		recipients = slices.DeleteFunc(recipients, func(u *models.User) bool { return u.ID == submitter.ID })
	}
	if len(recipients) == 0 {
		return recipients, nil
	}

	b, err := s.store.Buildings().GetByID(ctx, wo.BuildingID)
	if err != nil {
		return nil, err
	}
	payload := models.NotificationPayload{
		Key:      awaitingKey(wo.ID),
		Category: models.CategoryApproval,
		Level:    models.LevelWarning,
		Title:    s.loc.ApprovalTitle(wo.Title),
		Body:     s.loc.ApprovalBody(submitter.DisplayName(), wo.Title, s.buildingName(b), wo.Deadline),
	}
	if err := s.fanOut(ctx, recipients, payload); err != nil {
		return nil, err
	}

	if s.opts.EmailApprovals {
		for _, u := range recipients {
			s.sendEmail(ctx, u, s.loc.ApprovalMailSubject(), payload.Body)
		}
	}
	return recipients, nil
}

// NotifyTechnicians alerts the building's technicians about a new
// mass-assigned order.
func (s *NotificationService) NotifyTechnicians(ctx context.Context, wo *models.WorkOrder) ([]*models.User, error) {
	recipients, err := s.technicians(ctx, wo.BuildingID)
	if err != nil || len(recipients) == 0 {
		return recipients, err
	}
	b, err := s.store.Buildings().GetByID(ctx, wo.BuildingID)
	if err != nil {
		return nil, err
	}
	if err := s.fanOut(ctx, recipients, s.massAssignPayload(wo, b)); err != nil {
		return nil, err
	}
	return recipients, nil
}

func (s *NotificationService) fanOut(ctx context.Context, recipients []*models.User, payload models.NotificationPayload) error {
	var inserted, updated int
	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		for _, u := range recipients {
			ins, upd, err := s.upsert(ctx, tx, u.ID, []models.NotificationPayload{payload}, upsertOptions{skipAcknowledged: true})
			if err != nil {
				return err
			}
			inserted += ins
			updated += upd
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fan out %s: %w", payload.Key, err)
	}
	s.countWrites(payload.Category, inserted, updated)
	return nil
}

func (s *NotificationService) sendEmail(ctx context.Context, to *models.User, subject, body string) {
	err := s.mail.Send(ctx, mailer.Message{
		ToName:  to.DisplayName(),
		ToEmail: to.Email,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		s.metrics.CountEmail("failed")
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"user_id": to.ID,
			"subject": subject,
		}).Warn("approval e-mail not sent")
		return
	}
	s.metrics.CountEmail("sent")
}

// ClearApprovalRequests removes the approval alerts of an order for everyone.
func (s *NotificationService) ClearApprovalRequests(ctx context.Context, tx repositories.Store, workOrderID uuid.UUID) (int64, error) {
	n, err := tx.Notifications().DeleteByKey(ctx, awaitingKey(workOrderID))
	if err != nil {
		return 0, fmt.Errorf("clear approval requests for %s: %w", workOrderID, err)
	}
	s.metrics.CountDeleted("approval_resolved", n)
	return n, nil
}

/* ---------- user actions ---------- */

// Acknowledge stamps the user's unacknowledged rows among keys and returns
// how many changed.
func (s *NotificationService) Acknowledge(ctx context.Context, user *models.User, keys []string) (int, error) {
	if !user.IsAuthenticated() {
		return 0, utils.ErrUnauthenticated
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.store.Notifications().Acknowledge(ctx, user.ID, keys, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("acknowledge: %w", err)
	}
	return int(n), nil
}

// Snooze hides the notification until target. A nil target clears the snooze.
func (s *NotificationService) Snooze(ctx context.Context, user *models.User, key string, target *time.Time, today time.Time) (*models.Notification, error) {
	if !user.IsAuthenticated() {
		return nil, utils.ErrUnauthenticated
	}
	if target != nil {
		d := utils.DateOnly(*target)
		if d.Before(utils.DateOnly(today)) {
			return nil, utils.ErrSnoozeInPast
		}
		target = &d
	}
	n, err := s.store.Notifications().GetByKey(ctx, user.ID, key)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%q: %w", key, utils.ErrNotificationNotFound)
	}
	if err := s.store.Notifications().SetSnooze(ctx, n.ID, target); err != nil {
		return nil, fmt.Errorf("snooze %q: %w", key, err)
	}
	n.SnoozedUntil = target
	return n, nil
}

// MarkSeen sets first_seen_at on rows that have never been shown.
func (s *NotificationService) MarkSeen(ctx context.Context, user *models.User, keys []string) (int, error) {
	if !user.IsAuthenticated() {
		return 0, utils.ErrUnauthenticated
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.store.Notifications().MarkSeen(ctx, user.ID, keys, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return int(n), nil
}

// PruneAcknowledged deletes rows acknowledged more than olderThan ago; zero
// means the default retention.
func (s *NotificationService) PruneAcknowledged(ctx context.Context, user *models.User, olderThan time.Duration) (int64, error) {
	if !user.IsAuthenticated() {
		return 0, nil
	}
	if olderThan <= 0 {
		olderThan = constants.AcknowledgedRetentionDays * 24 * time.Hour
	}
	n, err := s.store.Notifications().PruneAcknowledged(ctx, user.ID, s.clock.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune acknowledged: %w", err)
	}
	s.metrics.CountDeleted("acknowledged", n)
	return n, nil
}

// Active returns every notification of the user that is active on today.
func (s *NotificationService) Active(ctx context.Context, user *models.User, today time.Time) ([]*models.Notification, error) {
	return s.activeIn(ctx, user, today, "")
}

func (s *NotificationService) activeIn(ctx context.Context, user *models.User, today time.Time, category string) ([]*models.Notification, error) {
	if !user.IsAuthenticated() {
		return []*models.Notification{}, nil
	}
	rows, err := s.store.Notifications().ListByUser(ctx, user.ID, category)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	on := utils.DateOnly(today)
	now := s.clock.Now()
	out := make([]*models.Notification, 0, len(rows))
	for _, n := range rows {
		if n.IsActive(on, now) {
			out = append(out, n)
		}
	}
	return out, nil
}
