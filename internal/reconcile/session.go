// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Session.Submit when a newer submission
// replaced the run before it finished.
var ErrSuperseded = errors.New("superseded by a newer query")

// Session serializes runs for one interactive caller. Submitting a new
// query cancels interest in the previous one: its context is canceled and
// whatever it produces is discarded.
type Session struct {
	r *Reconciler

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSession returns a Session over r.
func NewSession(r *Reconciler) *Session {
	return &Session{r: r}
}

// Submit runs query, superseding any run already in flight.
func (s *Session) Submit(ctx context.Context, query string) (Outcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	out, err := s.r.Run(runCtx, query)

	s.mu.Lock()
	current := s.gen == gen
	if current {
		s.cancel = nil
	}
	s.mu.Unlock()

	if !current {
		return Outcome{}, ErrSuperseded
	}
	return out, err
}

// Cancel abandons the run in flight, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
