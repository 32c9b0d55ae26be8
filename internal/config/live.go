// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-relay/pkg/types"
)

// Live holds the latest valid configuration for a long-running process.
// Readers only touch the snapshot; v is read again solely on the viper
// watcher goroutine, since viper is not safe for concurrent use.
type Live struct {
	v   *viper.Viper
	cur atomic.Pointer[types.RelayConfig]

	// OnError is called when a reloaded configuration fails validation.
	// The previous snapshot stays in effect.
	OnError func(error)

	// OnReload is called after a new snapshot is stored.
	OnReload func(types.RelayConfig)
}

// NewLive returns a Live serving initial until v's file changes.
func NewLive(v *viper.Viper, initial types.RelayConfig) *Live {
	l := &Live{v: v}
	l.cur.Store(&initial)
	return l
}

// Current returns the latest valid snapshot. It is safe for concurrent use.
func (l *Live) Current() types.RelayConfig {
	return *l.cur.Load()
}

// Reload rebuilds the snapshot from v. An invalid configuration leaves the
// previous snapshot in place and is returned. Callers must not run it
// concurrently with anything else that uses v.
func (l *Live) Reload() error {
	cfg, err := Load(l.v)
	if err != nil {
		if l.OnError != nil {
			l.OnError(err)
		}
		return err
	}
	l.cur.Store(&cfg)
	if l.OnReload != nil {
		l.OnReload(cfg)
	}
	return nil
}

// Watch reloads the snapshot whenever v's config file changes. It does
// nothing when v has no config file.
func (l *Live) Watch() {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(fsnotify.Event) {
		_ = l.Reload()
	})
	l.v.WatchConfig()
}
