// cmd/menu-service/sources.go
package main

import (
	"encoding/json"

	"canteen-menu/pkg/registry"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the menu sources fetcher.source can name",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"configured": cfg.Fetcher.Source,
			"sources":    registry.Default().Sources(),
		})
	},
}
