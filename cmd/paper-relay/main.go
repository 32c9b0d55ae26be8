// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-relay CLI.
// paper-relay triggers the paper-search workflow and recovers its result
// from the shared search log by anchor-based polling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-relay/internal/config"
	"github.com/pdiddy/paper-relay/internal/history"
	"github.com/pdiddy/paper-relay/internal/logging"
	"github.com/pdiddy/paper-relay/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// configErr holds a config file read failure from initConfig; commands
// report it from PersistentPreRunE.
var configErr error

// rootCmd is the base command for the paper-relay CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-relay",
	Short: "Run paper searches through an asynchronous workflow and recover the results",
	Long: `paper-relay hands research queries to an external search workflow (an n8n
webhook) and recovers each result from the shared SQLite search log the
workflow writes into. It also manages that log: listing, deleting, sweeping
corrupted entries, exporting, and serving the HTTP endpoint the workflow
logs through.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		logging.Init(logging.FromConfig(types.LogConfig{
			Level:  viper.GetString(config.KeyLogLevel),
			Format: viper.GetString(config.KeyLogFormat),
			Caller: viper.GetBool(config.KeyLogCaller),
		}))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./paper-relay.yaml or ~/.config/paper-relay/paper-relay.yaml)")
	flags.String("db", "", "path to the shared search log database (default memory.db)")
	flags.String("log-level", "", "diagnostic log level: trace, debug, info, warn, error")
	flags.Bool("test-mode", false, "trigger the workflow's test webhook instead of production")
	flags.String("workflow-url", "", "override the workflow webhook URL")

	_ = viper.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
	_ = viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyWorkflowUseTest, flags.Lookup("test-mode"))
	_ = viper.BindPFlag(config.KeyWorkflowOverride, flags.Lookup("workflow-url"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	used, err := config.Setup(viper.GetViper(), cfgFile)
	if err != nil {
		configErr = err
		return
	}
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}

// loadConfig returns the validated process configuration.
func loadConfig() (types.RelayConfig, error) {
	return config.Load(viper.GetViper())
}

// openStore loads the configuration and opens the search log.
func openStore() (*history.Store, types.RelayConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, types.RelayConfig{}, err
	}
	store, err := history.Open(cfg.Store)
	if err != nil {
		return nil, types.RelayConfig{}, fmt.Errorf("opening search log %s: %w", cfg.Store.Path, err)
	}
	return store, cfg, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
