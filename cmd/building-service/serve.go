package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/Mecho90/BuildingManagement-sub000/internal/constants"
	"github.com/Mecho90/BuildingManagement-sub000/internal/controllers"
	"github.com/Mecho90/BuildingManagement-sub000/internal/middleware"
	"github.com/Mecho90/BuildingManagement-sub000/internal/routes"
	"github.com/Mecho90/BuildingManagement-sub000/internal/seeding"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

const corsLowSecurityOriginLocalhost = "http://localhost:3000"

func serveCmd() *cobra.Command {
	var noCron bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled notification sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), !noCron)
		},
	}
	cmd.Flags().BoolVar(&noCron, "no-cron", false, "do not schedule the daily notification sync in this process")
	return cmd
}

func serve(parent context.Context, withCron bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, application, svc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer application.Close()
	defer svc.Close()

	if err := application.Migrate(ctx); err != nil {
		return err
	}
	if cfg.LDFlag_SeedDbWithTestData {
		if err := seeding.SeedAll(ctx, application.Store, svc.clock); err != nil {
			utils.Logger.WithError(err).Error("Failed to seed test data")
		}
	}

	router := mux.NewRouter()
	router.Use(middleware.MetricsMiddleware(svc.metrics))
	router.Handle(routes.Metrics, svc.metrics.Handler()).Methods(http.MethodGet)
	routes.Register(router, routes.Controllers{
		Health:        controllers.NewHealthController(application.DB),
		Buildings:     controllers.NewBuildingsController(svc.buildings, svc.units),
		WorkOrders:    controllers.NewWorkOrdersController(svc.workOrders, svc.audit),
		Notifications: controllers.NewNotificationsController(svc.notifications, svc.clock),
		Memberships:   controllers.NewMembershipsController(svc.memberships, svc.audit),
	}, middleware.AuthMiddleware(cfg.RSAPublicKey, application.Store.Users()))

	if withCron {
		c := cron.New(cron.WithLocation(time.UTC))
		_, err := c.AddFunc(cfg.NotificationSyncCron, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), constants.NotificationSyncJobTimeout)
			defer cancel()
			utils.Logger.Info("Starting notification sync cron job...")
			if _, err := svc.syncJob.Run(jobCtx, utils.Today(svc.clock)); err != nil {
				utils.Logger.WithError(err).Error("Notification sync failed")
			}
		})
		if err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
		utils.Logger.Infof("Scheduled notification sync (%s)", cfg.NotificationSyncCron)
	}

	allowedOrigins := []string{}
	if cfg.AppUrl != "" {
		allowedOrigins = append(allowedOrigins, cfg.AppUrl)
	}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, corsLowSecurityOriginLocalhost)
	}
	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      co.Handler(router),
		ReadTimeout:  constants.ServerReadTimeout,
		WriteTimeout: constants.ServerWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
