// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile recovers the result of an asynchronous workflow run
// from the shared search log.
//
// The workflow never answers a trigger with its result. Instead it appends
// a row to search_history some time later. Before dispatching, the
// reconciler records the log's highest id (the anchor); afterwards it polls
// for the oldest row with an id above the anchor. Rows at or below the
// anchor predate the request and are never considered.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-relay/internal/dispatch"
	"github.com/pdiddy/paper-relay/internal/sanitize"
	"github.com/pdiddy/paper-relay/pkg/types"
)

const (
	// DefaultAttempts is the number of poll attempts per run.
	DefaultAttempts = 25

	// DefaultInterval is the sleep before each poll attempt.
	DefaultInterval = time.Second
)

var (
	// ErrInvalidQuery is returned when a query is empty or corrupted.
	// Nothing is dispatched.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrStoreUnavailable is returned when the anchor cannot be read.
	// Nothing is dispatched.
	ErrStoreUnavailable = errors.New("search log unavailable")
)

// Status is the terminal state of a run that did not fail.
type Status string

const (
	StatusMatched Status = "matched"
	StatusTimeout Status = "timeout"
)

// Outcome describes a finished run.
type Outcome struct {
	Status    Status              `json:"status"`
	Record    *types.SearchRecord `json:"record,omitempty"`
	Anchor    int64               `json:"anchor"`
	RequestID string              `json:"request_id"`
	Attempts  int                 `json:"attempts"`
}

// Matched reports whether a record was found.
func (o Outcome) Matched() bool { return o.Status == StatusMatched && o.Record != nil }

// LogReader is the read side of the search log the reconciler depends on.
type LogReader interface {
	MaxID(ctx context.Context) (int64, error)
	FirstAfter(ctx context.Context, anchor int64, requestID string) (*types.SearchRecord, error)
}

// Trigger starts a workflow run.
type Trigger interface {
	Trigger(ctx context.Context, url string, req dispatch.Request) (dispatch.Ack, error)
}

// Reconciler runs the anchor, dispatch, and poll protocol.
type Reconciler struct {
	Log      LogReader
	Workflow Trigger
	Logger   zerolog.Logger

	// Config returns the current configuration. It is called once per Run.
	Config func() types.RelayConfig

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	// Now stamps dispatched requests.
	Now func() time.Time
}

// New returns a Reconciler reading log, triggering workflow, and taking
// its settings from config.
func New(log LogReader, workflow Trigger, config func() types.RelayConfig, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		Log:      log,
		Workflow: workflow,
		Logger:   logger,
		Config:   config,
		Sleep:    sleepContext,
		Now:      time.Now,
	}
}

// Anchor returns the log's highest id, or 0 when the log is empty or
// cannot be read.
func (r *Reconciler) Anchor(ctx context.Context) int64 {
	id, err := r.Log.MaxID(ctx)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("reading anchor failed, using 0")
		return 0
	}
	return id
}

// Dispatch triggers the workflow at the configured endpoint. Failures are
// *dispatch.Error and are not retried.
func (r *Reconciler) Dispatch(ctx context.Context, query, requestID string, timestamp time.Time) (dispatch.Ack, error) {
	return r.dispatchTo(ctx, r.config().Workflow.Endpoint(), query, requestID, timestamp)
}

func (r *Reconciler) dispatchTo(ctx context.Context, url, query, requestID string, timestamp time.Time) (dispatch.Ack, error) {
	req := dispatch.NewRequest(query, requestID, timestamp)
	ack, err := r.Workflow.Trigger(ctx, url, req)
	if err != nil {
		r.Logger.Error().Err(err).Str("url", url).Str("request_id", requestID).Msg("dispatch failed")
		return dispatch.Ack{}, err
	}
	r.Logger.Debug().Str("url", url).Str("request_id", requestID).Int("status", ack.StatusCode).Msg("dispatched")
	return ack, nil
}

// PollForResult waits for the oldest record with id > anchor. It makes up
// to maxAttempts reads, sleeping interval before each one. Store errors
// count as a miss. It returns (nil, false, nil) when the attempts run out;
// the only error is ctx's.
func (r *Reconciler) PollForResult(ctx context.Context, anchor int64, requestID string, maxAttempts int, interval time.Duration) (*types.SearchRecord, bool, error) {
	rec, _, err := r.poll(ctx, anchor, requestID, maxAttempts, interval)
	if err != nil {
		return nil, false, err
	}
	return rec, rec != nil, nil
}

func (r *Reconciler) poll(ctx context.Context, anchor int64, requestID string, maxAttempts int, interval time.Duration) (*types.SearchRecord, int, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := r.sleep(ctx, interval); err != nil {
			return nil, attempt - 1, err
		}

		rec, err := r.Log.FirstAfter(ctx, anchor, requestID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, attempt, ctx.Err()
			}
			r.Logger.Warn().Err(err).Int("attempt", attempt).Int64("anchor", anchor).Msg("poll read failed")
			continue
		}
		if rec != nil {
			if rec.ID <= anchor {
				// A reader that ignores the anchor is a bug; never hand it on.
				r.Logger.Error().Int64("id", rec.ID).Int64("anchor", anchor).Msg("log returned a record at or below the anchor")
				continue
			}
			r.Logger.Debug().Int64("id", rec.ID).Int("attempt", attempt).Msg("record matched")
			return rec, attempt, nil
		}
		r.Logger.Trace().Int("attempt", attempt).Int64("anchor", anchor).Msg("no new record yet")
	}
	return nil, maxAttempts, nil
}

// Run submits query and waits for its record. A timeout is reported as
// StatusTimeout, not as an error. Errors are ErrInvalidQuery,
// ErrStoreUnavailable, *dispatch.Error, or ctx's error.
func (r *Reconciler) Run(ctx context.Context, query string) (Outcome, error) {
	if !sanitize.ValidQuery(query) {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidQuery, query)
	}
	query = strings.TrimSpace(query)
	cfg := r.config()

	anchor, err := r.Log.MaxID(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: reading anchor: %w", ErrStoreUnavailable, err)
	}

	out := Outcome{Anchor: anchor, RequestID: dispatch.NewRequestID()}
	log := r.Logger.With().Str("request_id", out.RequestID).Int64("anchor", anchor).Logger()
	log.Info().Str("query", query).Msg("dispatching search")

	if _, err := r.dispatchTo(ctx, cfg.Workflow.Endpoint(), query, out.RequestID, r.now()); err != nil {
		return out, err
	}

	rec, attempts, err := r.poll(ctx, anchor, out.RequestID, cfg.Poll.Attempts, cfg.Poll.Interval)
	out.Attempts = attempts
	if err != nil {
		log.Info().Err(err).Int("attempts", attempts).Msg("run abandoned")
		return out, err
	}
	if rec == nil {
		out.Status = StatusTimeout
		log.Warn().Int("attempts", attempts).Msg("no result before timeout")
		return out, nil
	}
	out.Status = StatusMatched
	out.Record = rec
	log.Info().Int64("id", rec.ID).Int("attempts", attempts).Msg("result reconciled")
	return out, nil
}

// config returns the current settings with poll defaults filled in.
func (r *Reconciler) config() types.RelayConfig {
	var cfg types.RelayConfig
	if r.Config != nil {
		cfg = r.Config()
	}
	if cfg.Poll.Attempts <= 0 {
		cfg.Poll.Attempts = DefaultAttempts
	}
	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = DefaultInterval
	}
	return cfg
}

func (r *Reconciler) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
