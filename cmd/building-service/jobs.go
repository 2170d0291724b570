package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mecho90/BuildingManagement-sub000/internal/app"
	"github.com/Mecho90/BuildingManagement-sub000/internal/config"
	"github.com/Mecho90/BuildingManagement-sub000/internal/seeding"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

// syncNotificationsCmd runs the daily sync once, for external schedulers.
func syncNotificationsCmd() *cobra.Command {
	var todayFlag string
	cmd := &cobra.Command{
		Use:   "sync-notifications",
		Short: "Run the notification sync for every active user and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, application, svc, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer application.Close()
			defer svc.Close()

			today := utils.Today(svc.clock)
			if todayFlag != "" {
				if today, err = utils.ParseDate(todayFlag); err != nil {
					return err
				}
			}
			report, err := svc.syncJob.Run(ctx, today)
			if err != nil {
				return err
			}
			utils.Logger.WithFields(logrus.Fields{
				"today":            report.Today.Format("2006-01-02"),
				"users_processed":  report.UsersProcessed,
				"users_failed":     report.UsersFailed,
				"snoozes_cleared":  report.SnoozesCleared,
				"expired_deleted":  report.ExpiredDeleted,
				"pruned_acked":     report.PrunedAcked,
				"active_deadlines": report.ActiveDeadlines,
			}).Info("Notification sync finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&todayFlag, "today", "", "reference date (YYYY-MM-DD); defaults to the current UTC date")
	return cmd
}

func pruneNotificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune-notifications",
		Short: "Delete expired and long-acknowledged notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, application, svc, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer application.Close()
			defer svc.Close()

			n, err := svc.syncJob.Prune(ctx)
			if err != nil {
				return err
			}
			utils.Logger.Infof("Pruned %d notifications", n)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Migrate(ctx)
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo users, buildings, memberships and work orders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return seeding.SeedAll(ctx, a.Store, utils.SystemClock{})
			})
		},
	}
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	application, err := app.NewApp(ctx, config.LoadConfig())
	if err != nil {
		return err
	}
	defer application.Close()
	return fn(ctx, application)
}
