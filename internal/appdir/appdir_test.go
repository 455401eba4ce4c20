package appdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/windsurf-appimage/internal/archive"
	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/testutil"
)

func writeAssets(t *testing.T, dir string) *Assets {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "windsurf.desktop"), []byte("[Desktop Entry]\nName=Windsurf\n"), 0o644))
	// Deliberately not executable in the source tree.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AppRun"), []byte("#!/bin/sh\nexec \"$APPDIR/Windsurf/windsurf\" \"$@\"\n"), 0o644))

	return &Assets{
		SourceDir:   dir,
		DesktopFile: "windsurf.desktop",
		Launcher:    "AppRun",
		IconSource:  "Windsurf/resources/app/resources/linux/code.png",
		IconName:    "windsurf.png",
	}
}

// TestReset wipes previous contents.
func TestReset(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "windsurf.AppDir")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stale"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale", "file"), []byte("old"), 0o644))

	require.NoError(t, Reset(context.Background(), dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, DirMode, info.Mode().Perm())
}

// TestExtractThenOverlay_LauncherExecutable checks that extraction followed by the
// overlay always leaves an executable launcher next to the desktop entry and icon.
func TestExtractThenOverlay_LauncherExecutable(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	assets := writeAssets(t, work)
	appDir := filepath.Join(work, "windsurf.AppDir")
	archivePath := filepath.Join(work, "windsurf.tar.gz")

	testutil.WriteTarGz(t, archivePath, testutil.WindsurfEntries(`{}`))

	ctx := context.Background()
	require.NoError(t, Reset(ctx, appDir))
	require.NoError(t, archive.ExtractTarGz(ctx, archivePath, appDir))
	require.NoError(t, Overlay(ctx, appDir, assets))

	info, err := os.Stat(filepath.Join(appDir, "AppRun"))
	require.NoError(t, err)
	require.Equal(t, LauncherMode, info.Mode().Perm())

	icon, err := os.ReadFile(filepath.Join(appDir, "windsurf.png"))
	require.NoError(t, err)
	require.Equal(t, "\x89PNG fake icon", string(icon))

	_, err = os.Stat(filepath.Join(appDir, "windsurf.desktop"))
	require.NoError(t, err)
}

// TestOverlay_MissingIcon reports a filesystem error when the unpacked tree has no icon.
func TestOverlay_MissingIcon(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	assets := writeAssets(t, work)
	appDir := filepath.Join(work, "windsurf.AppDir")

	require.NoError(t, Reset(context.Background(), appDir))

	err := Overlay(context.Background(), appDir, assets)
	require.Error(t, err)
	require.True(t, build.IsKind(err, build.KindFileSystem))
}

// TestLauncherExecutableProperty tests the property that any valid archive
// carrying the icon yields an executable launcher after extraction and overlay.
func TestLauncherExecutableProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("launcher is executable", prop.ForAll(
		func(names []string, mode int64) bool {
			work := t.TempDir()
			assets := writeAssets(t, work)
			appDir := filepath.Join(work, "windsurf.AppDir")
			archivePath := filepath.Join(work, "windsurf.tar.gz")

			entries := testutil.WindsurfEntries(`{}`)
			for _, name := range names {
				entries = append(entries, testutil.TarEntry{
					Name: "Windsurf/extra/" + name,
					Body: name,
					Mode: mode,
				})
			}

			testutil.WriteTarGz(t, archivePath, entries)

			ctx := context.Background()
			if Reset(ctx, appDir) != nil ||
				archive.ExtractTarGz(ctx, archivePath, appDir) != nil ||
				Overlay(ctx, appDir, assets) != nil {
				return false
			}

			info, err := os.Stat(filepath.Join(appDir, assets.Launcher))

			return err == nil && info.Mode().Perm() == LauncherMode
		},
		gen.SliceOf(gen.Identifier()),
		gen.Int64Range(0o400, 0o777),
	))

	properties.TestingRun(t)
}
