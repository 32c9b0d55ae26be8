// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-relay/internal/config"
	"github.com/pdiddy/paper-relay/internal/history"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the search log database and a default config file",
	Long: `Init creates the search_history and favorites tables (or upgrades an
existing database in place) and writes a paper-relay.yaml with default
settings unless one already exists.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("config-out", config.FileName+".yaml", "where to write the default config file")
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	initCmd.Flags().Bool("skip-config", false, "only create the database")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("initializing search log %s: %w", cfg.Store.Path, err)
	}
	defer store.Close()

	v, err := store.SchemaVersion(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Search log ready at %s (schema v%d)\n", store.Path(), v)

	if skip, _ := cmd.Flags().GetBool("skip-config"); skip {
		return nil
	}
	out, _ := cmd.Flags().GetString("config-out")
	force, _ := cmd.Flags().GetBool("force")
	if err := config.WriteDefault(out, force); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", out)
	return nil
}
