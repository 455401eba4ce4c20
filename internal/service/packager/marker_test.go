package packager

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
)

// TestAcquireMarker creates the marker with our pid and removes it on release.
func TestAcquireMarker(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	m, err := acquireMarker(ctx, dir, time.Hour)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, MarkerFilename))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	_, err = acquireMarker(ctx, dir, time.Hour)
	require.ErrorIs(t, err, build.ErrAlreadyRunning)

	m.release(ctx)

	_, err = os.Stat(filepath.Join(dir, MarkerFilename))
	require.ErrorIs(t, err, os.ErrNotExist)

	// Releasing twice or releasing nothing is harmless.
	m.release(ctx)

	var none *marker
	none.release(ctx)
}

// TestAcquireMarker_Stale reclaims an old marker.
func TestAcquireMarker_Stale(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, MarkerFilename)
	require.NoError(t, os.WriteFile(path, []byte("1\n"), 0o644))

	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))

	m, err := acquireMarker(context.Background(), dir, time.Second)
	require.NoError(t, err)

	defer m.release(context.Background())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), info.ModTime(), time.Minute)
}

// TestAcquireMarker_MissingDir reports a filesystem error.
func TestAcquireMarker_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := acquireMarker(context.Background(), filepath.Join(t.TempDir(), "absent"), time.Hour)
	require.Error(t, err)
	require.True(t, build.IsKind(err, build.KindFileSystem))
}
