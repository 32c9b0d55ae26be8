// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging provides the process-wide zerolog logger.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-relay/pkg/types"
)

// Options configures the root logger.
type Options struct {
	Level      string
	Format     string
	Component  string
	Writer     io.Writer
	WithCaller bool
}

// FromConfig builds Options from the log section of the relay config.
func FromConfig(cfg types.LogConfig) Options {
	return Options{
		Level:      cfg.Level,
		Format:     cfg.Format,
		WithCaller: cfg.Caller,
	}
}

// Logger is the project-wide logging type.
type Logger = zerolog.Logger

var root atomic.Pointer[zerolog.Logger]

// Get returns the root logger, initializing it with defaults on first use.
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(Options{})
	return root.Load()
}

// Init builds the root logger from opt and replaces any previous one.
// Diagnostics go to stderr unless opt.Writer is set; stdout is reserved
// for command output.
func Init(opt Options) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if !strings.EqualFold(opt.Format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp()
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}
	log := ctx.Logger()
	if opt.WithCaller {
		log = log.With().Caller().Logger()
	}
	root.Store(&log)
}

// ParseLevel maps a level name to a zerolog level. Unknown names map to
// info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Named returns a child of the root logger with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

type (
	reqIDKey  struct{}
	loggerKey struct{}
)

// WithRequestID annotates ctx with a request id picked up by C.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, reqIDKey{}, requestID)
}

// WithLogger makes l the base logger C returns for ctx.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// C returns the logger for ctx: the one set by WithLogger, or the root,
// with a req_id field when ctx carries a request id.
func C(ctx context.Context) *Logger {
	l, ok := ctx.Value(loggerKey{}).(*Logger)
	if !ok {
		l = Get()
	}
	id, _ := ctx.Value(reqIDKey{}).(string)
	if id == "" {
		return l
	}
	ll := l.With().Str("req_id", id).Logger()
	return &ll
}
