// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-relay/internal/history"
	"github.com/pdiddy/paper-relay/internal/report"
	"github.com/pdiddy/paper-relay/internal/sanitize"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the search log (list, show, delete, clear, clean, export)",
	Long: `History manages the shared search_history log the workflow writes into.
Entries are never edited; they can be listed, removed one at a time,
cleared, swept of corrupted rows, or exported.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List search log entries, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		views := make([]sanitize.RecordView, 0, len(records))
		for _, r := range records {
			views = append(views, sanitize.Inspect(r))
		}
		return report.WriteJSON(os.Stdout, views)
	}
	return report.WriteHistory(os.Stdout, records)
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one search log entry and its papers",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), id)
	if err != nil {
		return err
	}
	view := sanitize.Inspect(*rec)
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return report.WriteJSON(os.Stdout, view)
	}
	return report.WriteRecord(os.Stdout, view, report.Options{Verbose: true})
}

// --- delete subcommand ---

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete search log entries by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryDelete,
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, id := range ids {
		if err := store.Delete(context.Background(), id); err != nil {
			fmt.Fprintf(os.Stderr, "  %v\n", err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "Deleted entry %d\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d entr(ies) could not be deleted", failed)
	}
	return nil
}

// --- clear subcommand ---

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every search log entry",
	RunE:  runHistoryClear,
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirm(cmd, "Delete the entire search history?") {
		fmt.Fprintln(os.Stdout, "Aborted.")
		return nil
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.DeleteAll(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted %d entries\n", n)
	return nil
}

// --- clean subcommand ---

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove corrupted search log entries",
	Long: `Clean deletes entries whose query or keywords contain "object" (the
workflow serialized an object instead of text) or whose keyword string is
shorter than three characters. Use --dry-run to count without deleting.`,
	RunE: runHistoryClean,
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		n, err := store.CountCorrupted(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%d corrupted entries would be deleted\n", n)
		return nil
	}

	n, err := store.SweepCorrupted(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, history.SweepMessage(n))
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the search log to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = "history-export." + format
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), output); err != nil {
			return err
		}
	case "json":
		if err := store.ExportJSON(context.Background(), output); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	fmt.Printf("Exported to %s\n", output)
	return nil
}

// --- shared helpers ---

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return id, nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum entries to list (0 = all)")
	historyListCmd.Flags().Bool("json", false, "output entries as JSON")

	historyShowCmd.Flags().Bool("json", false, "output the entry as JSON")

	historyClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	historyCleanCmd.Flags().Bool("dry-run", false, "count corrupted entries without deleting")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().StringP("output", "o", "", "output file (default history-export.<format>)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyCleanCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
