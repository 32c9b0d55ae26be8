// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-relay/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// WorkflowConfig holds the trigger endpoints of the external search workflow.
type WorkflowConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the production webhook URL.
	URL string `json:"url" yaml:"url" validate:"required,url"`

	// TestURL is the webhook URL used while the workflow is in test mode.
	TestURL string `json:"test_url" yaml:"test_url" validate:"omitempty,url"`

	// UseTest selects TestURL instead of URL.
	UseTest bool `json:"use_test" yaml:"use_test"`

	// Override replaces both URLs when set (e.g. a workflow running in Docker).
	Override string `json:"override,omitempty" yaml:"override,omitempty" validate:"omitempty,url"`

	// PingTimeout bounds the connection check request (default 5s).
	PingTimeout time.Duration `json:"ping_timeout" yaml:"ping_timeout" validate:"gt=0"`
}

// Endpoint returns the URL a trigger call should use: the override when
// set, else the test URL in test mode, else the production URL.
func (c WorkflowConfig) Endpoint() string {
	switch {
	case c.Override != "":
		return c.Override
	case c.UseTest && c.TestURL != "":
		return c.TestURL
	default:
		return c.URL
	}
}

// PollConfig bounds the wait for the workflow's row to appear in the log.
type PollConfig struct {
	// Attempts is the number of store reads before giving up (default 25).
	Attempts int `json:"attempts" yaml:"attempts" validate:"min=1"`

	// Interval is the sleep before each read (default 1s).
	Interval time.Duration `json:"interval" yaml:"interval" validate:"gt=0"`
}

// Budget returns the total time the poll loop may block.
func (c PollConfig) Budget() time.Duration {
	return time.Duration(c.Attempts) * c.Interval
}

// StoreConfig locates the shared SQLite log.
type StoreConfig struct {
	// Path is the SQLite database file (default "memory.db").
	Path string `json:"path" yaml:"path" validate:"required"`

	// BusyTimeout is how long a read waits on a lock held by the workflow
	// writer before failing (default 20s).
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout" validate:"gte=0"`
}

// ServerConfig holds settings for the memory log API.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr" validate:"required"`

	// Slow marks requests taking at least this long as warnings in the access log.
	Slow time.Duration `json:"slow" yaml:"slow"`

	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS headers.
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty" validate:"omitempty,dive,required"`
}

// LogConfig selects the diagnostic log level and format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error off disabled"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=console json"`

	// Caller adds the source file and line to every entry.
	Caller bool `json:"caller" yaml:"caller"`
}

// RelayConfig is the process-wide configuration. It is read once per
// reconciliation run.
type RelayConfig struct {
	Workflow WorkflowConfig `json:"workflow" yaml:"workflow"`
	Poll     PollConfig     `json:"poll" yaml:"poll"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Log      LogConfig      `json:"log" yaml:"log"`
}
