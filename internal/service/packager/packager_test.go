package packager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/windsurf-appimage/internal/config"
)

// TestNewRunner_Directories resolves overrides against the working directory.
func TestNewRunner_Directories(t *testing.T) {
	t.Parallel()

	work := t.TempDir()

	r, err := newRunner(&Options{Config: config.Default(), WorkDir: work})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(work, "windsurf.AppDir"), r.appDir)
	require.Equal(t, filepath.Join(work, "dist"), r.distDir)
	require.Equal(t, work, r.searchRoot)

	abs := t.TempDir()

	r, err = newRunner(&Options{Config: config.Default(), WorkDir: work, DistDir: "out", SearchRoot: abs})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(work, "out"), r.distDir)
	require.Equal(t, abs, r.searchRoot)
	require.Zero(t, r.downloadHTTP.Timeout)
	require.Equal(t, config.DefaultRequestTimeout, r.metadataHTTP.Timeout)
}

// TestNewRunner_InvalidConfig rejects settings before any work starts.
func TestNewRunner_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Product.AppDir = ".."

	_, err := newRunner(&Options{Config: cfg, WorkDir: t.TempDir()})
	require.Error(t, err)
}

// TestUpdateInformation keeps the flag value even without a repository.
func TestUpdateInformation(t *testing.T) {
	t.Parallel()

	r, err := newRunner(&Options{Config: config.Default(), WorkDir: t.TempDir()})
	require.NoError(t, err)

	info, err := r.updateInformation(t.Context())
	require.NoError(t, err)
	require.Equal(t, "gh-releases-zsync||latest|Windsurf*.AppImage.zsync", info)

	r.repository = "octo/windsurf-appimage"

	info, err = r.updateInformation(t.Context())
	require.NoError(t, err)
	require.Equal(t, "gh-releases-zsync|octo|windsurf-appimage|latest|Windsurf*.AppImage.zsync", info)

	r.repository = "broken"

	_, err = r.updateInformation(t.Context())
	require.Error(t, err)
}
