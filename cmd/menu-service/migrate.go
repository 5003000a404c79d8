// cmd/menu-service/migrate.go
package main

import (
	"context"
	"fmt"

	"canteen-menu/internal/common/config"
	"canteen-menu/internal/storage"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the daily_menus table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver != config.DriverPostgres {
			return fmt.Errorf("migrate needs database.driver %q, got %q", config.DriverPostgres, cfg.Database.Driver)
		}

		ctx := context.Background()
		a := &app{cfg: cfg, log: log}
		if err := a.connectPostgres(ctx); err != nil {
			return err
		}
		defer a.close()

		return storage.Migrate(ctx, a.pg.DB, func(name string) {
			log.Info("migration applied", map[string]interface{}{"file": name})
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", name)
		})
	},
}
