package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Mecho90/BuildingManagement-sub000/internal/config"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:   "building-service",
	Short: "Building, unit and work-order management API",
	Long: `building-service serves the buildings API and runs its maintenance jobs.
Configuration is read from the environment (ENV, DB_URL, JWT_PUBLIC_KEY_BASE64, ...).`,
	SilenceUsage: true,
}

func main() {
	utils.InitLogger(config.AppName)

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(syncNotificationsCmd())
	rootCmd.AddCommand(pruneNotificationsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		utils.Logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
