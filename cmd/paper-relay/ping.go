// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-relay/internal/dispatch"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the workflow webhook accepts requests",
	Long: `Ping posts {"query": "ping"} to the configured workflow endpoint and
reports whether it answered with HTTP 200. Note that a ping is a real
trigger: the workflow may log a row for it.`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	url := cfg.Workflow.Endpoint()
	client := dispatch.NewClient(cfg.Workflow.HTTPConfig)
	if err := client.Ping(ctx, url, cfg.Workflow.PingTimeout); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Connected to %s\n", url)
	return nil
}
