// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"time"

	"github.com/pdiddy/paper-relay/pkg/types"
)

// Watch polls the log every interval and calls fn whenever the newest row
// changes. Lock contention is skipped silently; other read errors go to
// onErr (which may be nil) and watching continues. Watch returns when ctx
// is done.
func (s *Store) Watch(ctx context.Context, interval time.Duration, fn func(types.SearchRecord), onErr func(error)) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastID := int64(-1)
	for {
		latest, err := s.Latest(ctx)
		switch {
		case err != nil && IsBusy(err):
		case err != nil:
			if onErr != nil && ctx.Err() == nil {
				onErr(err)
			}
		case latest != nil && latest.ID != lastID:
			lastID = latest.ID
			fn(*latest)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
