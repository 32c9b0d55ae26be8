// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads and validates the relay configuration from viper.
// Values come from paper-relay.yaml, PAPER_RELAY_* environment variables,
// and command-line flags bound by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-relay/pkg/types"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// PAPER_RELAY_WORKFLOW_URL.
	EnvPrefix = "PAPER_RELAY"

	// FileName is the config file name without extension.
	FileName = "paper-relay"
)

// Keys.
const (
	KeyDBPath              = "db_path"
	KeyStoreBusyTimeout    = "store.busy_timeout"
	KeyWorkflowURL         = "workflow.url"
	KeyWorkflowTestURL     = "workflow.test_url"
	KeyWorkflowUseTest     = "workflow.use_test"
	KeyWorkflowOverride    = "workflow.override"
	KeyWorkflowTimeout     = "workflow.timeout"
	KeyWorkflowPingTimeout = "workflow.ping_timeout"
	KeyWorkflowUserAgent   = "workflow.user_agent"
	KeyPollAttempts        = "poll.attempts"
	KeyPollInterval        = "poll.interval"
	KeyServerAddr          = "server.addr"
	KeyServerSlow          = "server.slow"
	KeyServerCORSOrigins   = "server.cors_origins"
	KeyLogLevel            = "log.level"
	KeyLogFormat           = "log.format"
	KeyLogCaller           = "log.caller"
)

// Defaults.
const (
	DefaultDBPath      = "memory.db"
	DefaultWorkflowURL = "http://localhost:5678/webhook/paper-search"
	DefaultTestURL     = "http://localhost:5678/webhook-test/paper-search"
	DefaultServerAddr  = ":8000"
	DefaultUserAgent   = "paper-relay/0.1"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPath, DefaultDBPath)
	v.SetDefault(KeyStoreBusyTimeout, 20*time.Second)
	v.SetDefault(KeyWorkflowURL, DefaultWorkflowURL)
	v.SetDefault(KeyWorkflowTestURL, DefaultTestURL)
	v.SetDefault(KeyWorkflowUseTest, false)
	v.SetDefault(KeyWorkflowOverride, "")
	v.SetDefault(KeyWorkflowTimeout, 90*time.Second)
	v.SetDefault(KeyWorkflowPingTimeout, 5*time.Second)
	v.SetDefault(KeyWorkflowUserAgent, DefaultUserAgent)
	v.SetDefault(KeyPollAttempts, 25)
	v.SetDefault(KeyPollInterval, time.Second)
	v.SetDefault(KeyServerAddr, DefaultServerAddr)
	v.SetDefault(KeyServerSlow, 2*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyLogCaller, false)
}

// Setup points v at the config file and environment. An explicit cfgFile
// wins; otherwise paper-relay.yaml is searched for in the working
// directory and ~/.config/paper-relay/. A missing file is not an error.
// It returns the file used, if any.
func Setup(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		if cfgFile == "" && errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load builds a RelayConfig from v and validates it.
func Load(v *viper.Viper) (types.RelayConfig, error) {
	cfg := types.RelayConfig{
		Workflow: types.WorkflowConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration(KeyWorkflowTimeout),
				UserAgent: v.GetString(KeyWorkflowUserAgent),
			},
			URL:         strings.TrimSpace(v.GetString(KeyWorkflowURL)),
			TestURL:     strings.TrimSpace(v.GetString(KeyWorkflowTestURL)),
			UseTest:     v.GetBool(KeyWorkflowUseTest),
			Override:    strings.TrimSpace(v.GetString(KeyWorkflowOverride)),
			PingTimeout: v.GetDuration(KeyWorkflowPingTimeout),
		},
		Poll: types.PollConfig{
			Attempts: v.GetInt(KeyPollAttempts),
			Interval: v.GetDuration(KeyPollInterval),
		},
		Store: types.StoreConfig{
			Path:        v.GetString(KeyDBPath),
			BusyTimeout: v.GetDuration(KeyStoreBusyTimeout),
		},
		Server: types.ServerConfig{
			Addr:        v.GetString(KeyServerAddr),
			Slow:        v.GetDuration(KeyServerSlow),
			CORSOrigins: v.GetStringSlice(KeyServerCORSOrigins),
		},
		Log: types.LogConfig{
			Level:  strings.ToLower(v.GetString(KeyLogLevel)),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
			Caller: v.GetBool(KeyLogCaller),
		},
	}
	if err := Validate(cfg); err != nil {
		return types.RelayConfig{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags. The returned error lists
// every failing field.
func Validate(cfg types.RelayConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "RelayConfig.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return fmt.Sprintf("%s %q is not a URL", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// fileConfig is the on-disk layout written by WriteDefault.
type fileConfig struct {
	DBPath   string         `yaml:"db_path"`
	Workflow map[string]any `yaml:"workflow"`
	Poll     map[string]any `yaml:"poll"`
	Store    map[string]any `yaml:"store"`
	Server   map[string]any `yaml:"server"`
	Log      map[string]any `yaml:"log"`
}

// DefaultYAML renders the default configuration as a config file.
func DefaultYAML() ([]byte, error) {
	fc := fileConfig{
		DBPath: DefaultDBPath,
		Workflow: map[string]any{
			"url":          DefaultWorkflowURL,
			"test_url":     DefaultTestURL,
			"use_test":     false,
			"timeout":      "90s",
			"ping_timeout": "5s",
		},
		Poll:   map[string]any{"attempts": 25, "interval": "1s"},
		Store:  map[string]any{"busy_timeout": "20s"},
		Server: map[string]any{"addr": DefaultServerAddr, "slow": "2s"},
		Log:    map[string]any{"level": "info", "format": "console", "caller": false},
	}
	out, err := yaml.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	return out, nil
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := DefaultYAML()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
