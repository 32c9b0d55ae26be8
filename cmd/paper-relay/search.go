// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-relay/internal/dispatch"
	"github.com/pdiddy/paper-relay/internal/logging"
	"github.com/pdiddy/paper-relay/internal/reconcile"
	"github.com/pdiddy/paper-relay/internal/report"
	"github.com/pdiddy/paper-relay/internal/sanitize"
	"github.com/pdiddy/paper-relay/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Trigger a paper search and wait for its result in the search log",
	Long: `Search records the search log's current high-water mark, triggers the
workflow with the query, then polls the log for the first new row. The row
is shown as a table of papers. If no row appears within the poll budget
(25 attempts, one second apart, by default) the search reports a timeout.

Queries that are empty or look like serialized objects ("[object Object]",
"null") are rejected without contacting the workflow.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("attempts", 0, "poll attempts before giving up (default from config, 25)")
	searchCmd.Flags().Duration("interval", 0, "sleep before each poll attempt (default from config, 1s)")
	searchCmd.Flags().Bool("json", false, "output the outcome as JSON")
	searchCmd.Flags().BoolP("verbose", "v", false, "show links and snippets")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if !sanitize.ValidQuery(query) {
		return fmt.Errorf("blocked query %q: type a fresh search", query)
	}

	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if n, _ := cmd.Flags().GetInt("attempts"); n > 0 {
		cfg.Poll.Attempts = n
	}
	if d, _ := cmd.Flags().GetDuration("interval"); d > 0 {
		cfg.Poll.Interval = d
	}

	client := dispatch.NewClient(cfg.Workflow.HTTPConfig)
	rec := reconcile.New(store, client, func() types.RelayConfig { return cfg }, *logging.Named("reconcile"))

	ctx, stop := signalContext()
	defer stop()

	fmt.Fprintf(os.Stderr, "Searching: %s (waiting up to %s)\n", strings.TrimSpace(query), cfg.Poll.Budget())
	out, err := rec.Run(ctx, query)
	if err != nil {
		var de *dispatch.Error
		if errors.As(err, &de) && de.StatusCode != 0 {
			return fmt.Errorf("workflow connection error (%d)", de.StatusCode)
		}
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return report.WriteJSON(os.Stdout, searchResult(out))
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	return report.WriteOutcome(os.Stdout, out, report.Options{Verbose: verbose})
}

// searchOutput is the JSON form of a finished search.
type searchOutput struct {
	reconcile.Outcome
	View *sanitize.RecordView `json:"view,omitempty"`
}

func searchResult(out reconcile.Outcome) searchOutput {
	res := searchOutput{Outcome: out}
	if out.Matched() {
		view := sanitize.Inspect(*out.Record)
		res.View = &view
	}
	return res
}
