// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-relay/pkg/types"
)

func writePollConfig(t *testing.T, path string, attempts int) {
	t.Helper()
	body := fmt.Sprintf("poll:\n  attempts: %d\n  interval: 1s\n", attempts)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func setupLive(t *testing.T, attempts int) (*viper.Viper, string, *Live) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper-relay.yaml")
	writePollConfig(t, path, attempts)

	v := viper.New()
	_, err := Setup(v, path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	return v, path, NewLive(v, cfg)
}

func TestLive_ReloadKeepsPreviousOnInvalid(t *testing.T) {
	v, path, live := setupLive(t, 3)
	var failures []error
	live.OnError = func(err error) { failures = append(failures, err) }

	writePollConfig(t, path, 0)
	require.NoError(t, v.ReadInConfig())
	err := live.Reload()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Len(t, failures, 1)
	assert.Equal(t, 3, live.Current().Poll.Attempts)

	writePollConfig(t, path, 7)
	require.NoError(t, v.ReadInConfig())
	var reloaded types.RelayConfig
	live.OnReload = func(cfg types.RelayConfig) { reloaded = cfg }
	require.NoError(t, live.Reload())
	assert.Equal(t, 7, live.Current().Poll.Attempts)
	assert.Equal(t, 7, reloaded.Poll.Attempts)
}

// TestLive_WatchWithConcurrentReaders rewrites the watched file while
// readers poll the snapshot. Run under -race it checks that readers never
// touch viper.
func TestLive_WatchWithConcurrentReaders(t *testing.T) {
	_, path, live := setupLive(t, 1)
	live.Watch()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				cfg := live.Current()
				assert.GreaterOrEqual(t, cfg.Poll.Attempts, 1)
			}
		}()
	}

	const last = 21
	for i := 2; i <= last; i++ {
		writePollConfig(t, path, i)
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return live.Current().Poll.Attempts == last
	}, 5*time.Second, 20*time.Millisecond)

	close(stop)
	wg.Wait()
}

func TestLive_WatchWithoutFileIsNoop(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	live := NewLive(v, cfg)
	live.Watch()
	assert.Equal(t, cfg, live.Current())
}
