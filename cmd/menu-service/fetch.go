// cmd/menu-service/fetch.go
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"canteen-menu/internal/common/observability"
	"canteen-menu/internal/pipeline"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one acquisition and store the week's menus",
	Long: `Run the pipeline once: fetch the weekly menu from the configured source,
store every day in one transaction and print the run result as JSON.

The exit code is non-zero when the run fails; the diagnostic has already
been logged and sent to the configured notification channels.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("source", "", "override fetcher.source for this run")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if source, _ := cmd.Flags().GetString("source"); source != "" {
		cfg.Fetcher.Source = source
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	runner, err := a.runner(ctx, observability.NewNoop())
	if err != nil {
		return err
	}

	res, err := runner.Run(context.WithoutCancel(ctx), pipeline.TriggerCLI)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
