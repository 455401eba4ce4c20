// Package appdir prepares the AppDir tree the packaging tool consumes:
// a freshly wiped directory holding the unpacked application plus the
// desktop entry, launcher script and icon at its root.
package appdir

import (
	"context"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/logger"
)

const (
	// DirMode is the AppDir root mode expected by the packaging tool.
	DirMode os.FileMode = 0o755
	// LauncherMode makes the launcher script executable.
	LauncherMode os.FileMode = 0o755
)

// Assets names the files laid over the unpacked tree.
type Assets struct {
	// SourceDir holds DesktopFile and Launcher.
	SourceDir string
	// DesktopFile is the desktop entry file name.
	DesktopFile string
	// Launcher is the launcher script file name, AppRun for AppImages.
	Launcher string
	// IconSource is the icon path relative to the AppDir.
	IconSource string
	// IconName is the icon file name at the AppDir root.
	IconName string
}

// Reset removes dir with all its contents and creates it again, empty.
func Reset(ctx context.Context, dir string) error {
	logger.InfoKV(ctx, "Wiping working directory", "path", dir)

	if err := os.RemoveAll(dir); err != nil {
		return build.FileSystemError("wipe working directory", dir, err)
	}

	if err := os.MkdirAll(dir, DirMode); err != nil {
		return build.FileSystemError("create working directory", dir, err)
	}

	// MkdirAll applies the umask.
	if err := os.Chmod(dir, DirMode); err != nil {
		return build.FileSystemError("set working directory mode", dir, err)
	}

	return nil
}

// Overlay copies the desktop entry, the launcher and the icon into dir.
// The launcher always ends up with LauncherMode.
func Overlay(ctx context.Context, dir string, assets *Assets) error {
	files := []struct {
		src, dst string
	}{
		{
			src: filepath.Join(assets.SourceDir, assets.DesktopFile),
			dst: filepath.Join(dir, assets.DesktopFile),
		},
		{
			src: filepath.Join(assets.SourceDir, assets.Launcher),
			dst: filepath.Join(dir, assets.Launcher),
		},
		{
			src: filepath.Join(dir, assets.IconSource),
			dst: filepath.Join(dir, assets.IconName),
		},
	}

	for _, f := range files {
		if _, err := os.Stat(f.src); err != nil {
			return build.FileSystemError("find asset", f.src, err)
		}

		if err := copy.Copy(f.src, f.dst); err != nil {
			return build.FileSystemError("copy asset", f.src, err)
		}

		logger.DebugKV(ctx, "Copied asset", "from", f.src, "to", f.dst)
	}

	launcher := filepath.Join(dir, assets.Launcher)
	if err := os.Chmod(launcher, LauncherMode); err != nil {
		return build.FileSystemError("make launcher executable", launcher, err)
	}

	logger.InfoKV(ctx, "Static assets copied", "dir", dir)

	return nil
}
