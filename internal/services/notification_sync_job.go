package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mecho90/BuildingManagement-sub000/internal/metrics"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type SyncReport struct {
	Today           time.Time
	SnoozesCleared  int64
	ExpiredDeleted  int64
	UsersProcessed  int
	UsersFailed     int
	PrunedAcked     int64
	ActiveDeadlines int
}

// NotificationSyncJob is the daily housekeeping pass over every active user.
type NotificationSyncJob struct {
	store         repositories.Store
	notifications *NotificationService
	clock         utils.Clock
	metrics       *metrics.Metrics
}

func NewNotificationSyncJob(
	store repositories.Store,
	notifications *NotificationService,
	clock utils.Clock,
	m *metrics.Metrics,
) *NotificationSyncJob {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &NotificationSyncJob{store: store, notifications: notifications, clock: clock, metrics: m}
}

// Run clears elapsed snoozes and expired rows globally, then prunes and
// re-syncs each active user. One user's failure is logged and skipped.
func (j *NotificationSyncJob) Run(ctx context.Context, today time.Time) (*SyncReport, error) {
	started := time.Now()
	today = utils.DateOnly(today)
	report := &SyncReport{Today: today}
	log := utils.Logger.WithField("today", today.Format(time.DateOnly))
	log.Info("Syncing notifications")

	var err error
	report.SnoozesCleared, err = j.store.Notifications().ClearElapsedSnoozes(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("clear snoozes: %w", err)
	}
	report.ExpiredDeleted, err = j.store.Notifications().DeleteExpired(ctx, j.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("delete expired: %w", err)
	}
	j.metrics.CountDeleted("expired", report.ExpiredDeleted)

	users, err := j.store.Users().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	log.WithField("users", len(users)).Info("Processing notifications for active users")

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		pruned, err := j.notifications.PruneAcknowledged(ctx, u, 0)
		if err == nil {
			report.PrunedAcked += pruned
			var active int
			active, err = j.syncUser(ctx, u, today)
			report.ActiveDeadlines += active
		}
		if err != nil {
			report.UsersFailed++
			j.metrics.CountSyncRun("failed")
			log.WithError(err).WithField("user_id", u.ID).Error("notification sync failed for user")
			continue
		}
		report.UsersProcessed++
		j.metrics.CountSyncRun("ok")
	}

	j.metrics.ObserveSyncDuration(time.Since(started).Seconds())
	log.WithFields(logrus.Fields{
		"processed":       report.UsersProcessed,
		"failed":          report.UsersFailed,
		"snoozes_cleared": report.SnoozesCleared,
		"expired_deleted": report.ExpiredDeleted,
	}).Info("Notification sync finished")
	return report, nil
}

func (j *NotificationSyncJob) syncUser(ctx context.Context, u *models.User, today time.Time) (int, error) {
	active, err := j.notifications.SyncWorkOrderDeadlines(ctx, u, today)
	if err != nil {
		return 0, err
	}
	if _, err := j.notifications.SyncRecentMassAssign(ctx, u, today); err != nil {
		return len(active), err
	}
	return len(active), nil
}

// Prune only removes old acknowledged rows and expired ones.
func (j *NotificationSyncJob) Prune(ctx context.Context) (int64, error) {
	expired, err := j.store.Notifications().DeleteExpired(ctx, j.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	j.metrics.CountDeleted("expired", expired)
	users, err := j.store.Users().ListActive(ctx)
	if err != nil {
		return expired, fmt.Errorf("list active users: %w", err)
	}
	total := expired
	for _, u := range users {
		n, err := j.notifications.PruneAcknowledged(ctx, u, 0)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
