package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaroute/internal/observability"
)

const minimalRouteTableYAML = `
apiVersion: avaroute.io/v1
kind: RouteTable
metadata:
  name: watched
spec:
  routes:
    - name: home
      path: /
`

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.yaml")
	writeConfig(t, path, minimalRouteTableYAML)

	w, err := NewWatcher(path, func(*RouteTable) {},
		WithDebounceDelay(10*time.Millisecond),
		WithLogger(observability.NopLogger()),
		WithErrorCallback(func(error) {}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	assert.Equal(t, path, w.path)
	assert.Equal(t, 10*time.Millisecond, w.debounceDelay)
	assert.NotNil(t, w.errorCallback)
	assert.Nil(t, w.GetLastConfig())
}

func TestWatcher_StartInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.yaml")
	writeConfig(t, path, "kind: Gateway\n")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	assert.Error(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop())
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.yaml")
	writeConfig(t, path, minimalRouteTableYAML)

	reloaded := make(chan *RouteTable, 4)
	failures := make(chan error, 4)

	w, err := NewWatcher(path,
		func(table *RouteTable) { reloaded <- table },
		WithDebounceDelay(50*time.Millisecond),
		WithErrorCallback(func(err error) { failures <- err }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })
	require.NotNil(t, w.GetLastConfig())
	assert.Equal(t, "watched", w.GetLastConfig().Metadata.Name)

	updated := strings.Replace(minimalRouteTableYAML, "name: watched", "name: updated", 1)
	writeConfig(t, path, updated)

	select {
	case table := <-reloaded:
		assert.Equal(t, "updated", table.Metadata.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.Equal(t, "updated", w.GetLastConfig().Metadata.Name)

	writeConfig(t, path, "kind: Gateway\n")

	select {
	case err := <-failures:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
	assert.Equal(t, "updated", w.GetLastConfig().Metadata.Name)
}

func TestWatcher_ForceReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.yaml")
	writeConfig(t, path, minimalRouteTableYAML)

	var got *RouteTable
	w, err := NewWatcher(path, func(table *RouteTable) { got = table })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	require.NoError(t, w.ForceReload())
	require.NotNil(t, got)
	assert.Same(t, got, w.GetLastConfig())

	writeConfig(t, path, "spec: [")
	assert.Error(t, w.ForceReload())
	assert.Same(t, got, w.GetLastConfig())
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.yaml")
	writeConfig(t, path, minimalRouteTableYAML)

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
