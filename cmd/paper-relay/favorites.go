// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-relay/internal/history"
	"github.com/pdiddy/paper-relay/internal/report"
	"github.com/pdiddy/paper-relay/internal/sanitize"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage saved papers",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved papers",
	RunE:  runFavoritesList,
}

func runFavoritesList(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	favs, err := store.Favorites(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return report.WriteJSON(os.Stdout, favs)
	}
	return report.WriteFavorites(os.Stdout, favs)
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <entry-id> <rank>",
	Short: "Save a paper from a search log entry",
	Long: `Add saves the paper at position <rank> (starting at 1, as shown by
"history show") of search log entry <entry-id>.`,
	Args: cobra.ExactArgs(2),
	RunE: runFavoritesAdd,
}

func runFavoritesAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	rank, err := strconv.Atoi(args[1])
	if err != nil || rank < 1 {
		return fmt.Errorf("invalid rank %q", args[1])
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rank > len(rec.TopResults) {
		return fmt.Errorf("entry %d has %d papers", id, len(rec.TopResults))
	}

	query, _ := sanitize.Clean(rec.Query)
	favID, err := store.AddFavorite(ctx, history.FavoriteFromPaper(query, rec.TopResults[rank-1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Saved favorite %d: %s\n", favID, rec.TopResults[rank-1].Title)
	return nil
}

var favoritesDeleteCmd = &cobra.Command{
	Use:   "delete <favorite-id>",
	Short: "Remove a saved paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteFavorite(context.Background(), id); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Deleted favorite %d\n", id)
		return nil
	},
}

func init() {
	favoritesListCmd.Flags().Bool("json", false, "output favorites as JSON")

	favoritesCmd.AddCommand(favoritesListCmd)
	favoritesCmd.AddCommand(favoritesAddCmd)
	favoritesCmd.AddCommand(favoritesDeleteCmd)

	rootCmd.AddCommand(favoritesCmd)
}
