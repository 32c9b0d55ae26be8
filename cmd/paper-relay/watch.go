// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-relay/internal/logging"
	"github.com/pdiddy/paper-relay/internal/sanitize"
	"github.com/pdiddy/paper-relay/pkg/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print each new row the workflow writes to the search log",
	Long: `Watch polls the search log and prints the newest entry whenever it
changes, flagging corrupted query metadata. Use it to observe the workflow
writing results while a search runs elsewhere. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "poll interval (default from config, 1s)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.Poll.Interval
	}

	ctx, stop := signalContext()
	defer stop()

	log := logging.Named("watch")
	fmt.Fprintf(os.Stderr, "Watching %s every %s\n", store.Path(), interval)
	err = store.Watch(ctx, interval, func(r types.SearchRecord) {
		view := sanitize.Inspect(r)
		status := "ok"
		if view.Corrupted {
			status = "CORRUPTED"
		}
		fmt.Fprintf(os.Stdout, "%-6d  %-9s  %-20s  q=%q  kw=%q  papers=%d\n",
			r.ID, status, r.CreatedAt, r.Query, r.SearchQuery, len(r.TopResults))
	}, func(err error) {
		log.Warn().Err(err).Msg("reading latest entry failed")
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
