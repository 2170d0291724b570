package main

import (
	"context"

	"github.com/Mecho90/BuildingManagement-sub000/internal/app"
	"github.com/Mecho90/BuildingManagement-sub000/internal/cache"
	"github.com/Mecho90/BuildingManagement-sub000/internal/config"
	"github.com/Mecho90/BuildingManagement-sub000/internal/mailer"
	"github.com/Mecho90/BuildingManagement-sub000/internal/metrics"
	"github.com/Mecho90/BuildingManagement-sub000/internal/services"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type serviceSet struct {
	metrics       *metrics.Metrics
	clock         utils.Clock
	visibility    *services.VisibilityService
	audit         *services.AuditService
	notifications *services.NotificationService
	workOrders    *services.WorkOrderService
	memberships   *services.MembershipService
	buildings     *services.BuildingService
	units         *services.UnitService
	syncJob       *services.NotificationSyncJob

	closers []func() error
}

// bootstrap loads config, connects to the database and builds every service.
// The caller owns the returned cleanup.
func bootstrap(ctx context.Context) (*config.Config, *app.App, *serviceSet, error) {
	cfg := config.LoadConfig()
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, application, newServiceSet(ctx, cfg, application), nil
}

func newServiceSet(ctx context.Context, cfg *config.Config, application *app.App) *serviceSet {
	s := &serviceSet{metrics: metrics.New(), clock: utils.SystemClock{}}
	store := application.Store

	var labels cache.LabelCache = cache.NewMemoryLabelCache(cache.DefaultLabelTTL, s.clock)
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisLabelCache(ctx, cfg.RedisURL, cache.DefaultLabelTTL)
		if err != nil {
			utils.Logger.WithError(err).Warn("Redis unavailable; falling back to in-process label cache")
		} else {
			labels = rc
			s.closers = append(s.closers, rc.Close)
			utils.Logger.Info("Using Redis label cache")
		}
	}

	var mail mailer.Mailer = mailer.NoopMailer{}
	if cfg.SendGridAPIKey != "" {
		mail = mailer.NewSendGridMailer(cfg.SendGridAPIKey, cfg.AppName, cfg.SendGridFromEmail, cfg.LDFlag_SendgridSandboxMode)
	} else if cfg.LDFlag_EmailApprovalRequests {
		utils.Logger.Warn("email_approval_requests is on but SENDGRID_API_KEY is not set; approval emails are dropped")
	}

	s.visibility = services.NewVisibilityService(store)
	s.audit = services.NewAuditService(store, s.visibility)
	s.notifications = services.NewNotificationService(store, s.visibility, labels, mail, services.NotificationOptions{
		Language:       cfg.DefaultLanguage,
		EmailApprovals: cfg.LDFlag_EmailApprovalRequests,
	}, s.clock, s.metrics)
	s.workOrders = services.NewWorkOrderService(store, s.visibility, s.audit, s.notifications, s.clock, s.metrics)
	s.memberships = services.NewMembershipService(store, s.audit)
	s.buildings = services.NewBuildingService(store, s.visibility)
	s.units = services.NewUnitService(store, s.visibility)
	s.syncJob = services.NewNotificationSyncJob(store, s.notifications, s.clock, s.metrics)
	return s
}

func (s *serviceSet) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			utils.Logger.WithError(err).Warn("close failed")
		}
	}
}
