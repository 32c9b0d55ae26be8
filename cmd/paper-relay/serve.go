// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-relay/internal/config"
	"github.com/pdiddy/paper-relay/internal/dispatch"
	"github.com/pdiddy/paper-relay/internal/logging"
	"github.com/pdiddy/paper-relay/internal/memoryapi"
	"github.com/pdiddy/paper-relay/internal/reconcile"
	"github.com/pdiddy/paper-relay/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the memory log API the workflow writes results through",
	Long: `Serve exposes the search log over HTTP:

  POST /log_search   the workflow logs a finished search
  GET  /history      recent entries (?limit=10)
  GET  /healthz      liveness
  POST /search       run a search and wait for its result

Each /search run uses the latest valid configuration. Edits to the config
file take effect without a restart; an edit that fails validation is logged
and ignored.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	_ = viper.BindPFlag(config.KeyServerAddr, serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	log := logging.Named("reconcile")
	live := config.NewLive(viper.GetViper(), cfg)
	live.OnError = func(err error) {
		log.Warn().Err(err).Msg("config reload failed, keeping previous config")
	}
	live.OnReload = func(types.RelayConfig) {
		log.Info().Msg("config reloaded")
	}
	live.Watch()

	client := dispatch.NewClient(cfg.Workflow.HTTPConfig)
	session := reconcile.NewSession(reconcile.New(store, client, live.Current, *log))

	srv := memoryapi.New(store, session, memoryapi.Options{
		Logger:      *logging.Named("http"),
		Slow:        cfg.Server.Slow,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	ctx, stop := signalContext()
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
