// cmd/menu-service/root.go
package main

import (
	"fmt"

	"canteen-menu/internal/common/config"
	"canteen-menu/internal/common/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     *config.Config
	zapLog  *zap.Logger
	log     logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "menu-service",
	Short: "Canteen menu acquisition service",
	Long: `menu-service keeps the canteen's daily menus up to date.

It fetches the weekly menu from the configured source, stores one record per
day and serves the stored menus over HTTP.

Example usage:
  menu-service serve              # HTTP API plus the weekday scheduler
  menu-service fetch              # one acquisition run, then exit
  menu-service migrate            # apply database migrations
  menu-service seed               # store a sample menu for today
  menu-service sources            # list the available menu sources`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLog != nil {
			_ = zapLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
	rootCmd.AddCommand(serveCmd, fetchCmd, migrateCmd, seedCmd, sourcesCmd)
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)
	log = logger.NewZapAdapter(zapLog)
	return nil
}
