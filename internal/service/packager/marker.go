package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/logger"
)

const (
	// MarkerFilename marks that a packaging run is using the working directory right now.
	MarkerFilename = ".windsurf-appimage.lock"

	// toolProcessName is the installed packaging tool's executable name.
	toolProcessName = "appimagetool"
)

// marker guards the working directory against parallel runs.
type marker struct {
	path string
}

// acquireMarker creates the marker in dir. A marker younger than lifetime means
// another run is active; an older one is reclaimed after killing leftover tools.
func acquireMarker(ctx context.Context, dir string, lifetime time.Duration) (*marker, error) {
	path := filepath.Join(dir, MarkerFilename)

	logger.Debug(ctx, "Checking for the presence of a run marker")

	fileInfo, err := os.Stat(path)

	switch {
	case err == nil:
		if time.Since(fileInfo.ModTime()) <= lifetime {
			return nil, build.FileSystemError("acquire run marker", path, build.ErrAlreadyRunning)
		}

		logger.WarnKV(ctx, "The run marker is too old, attempting cleanup", "path", path, "age", time.Since(fileInfo.ModTime()))

		if err = terminateProcessByName(toolProcessName); err != nil {
			return nil, build.FileSystemError("terminate stale packaging tool", path, err)
		}

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, build.FileSystemError("remove stale run marker", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		logger.Debug(ctx, "Run marker not found, continuing")
	default:
		return nil, build.FileSystemError("inspect run marker", path, err)
	}

	//nolint:gosec // G304: the marker lives in the working directory chosen by the caller.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, build.FileSystemError("acquire run marker", path, build.ErrAlreadyRunning)
	}

	if err != nil {
		return nil, build.FileSystemError("create run marker", path, err)
	}

	_, err = file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)

		return nil, build.FileSystemError("write run marker", path, err)
	}

	return &marker{path: path}, nil
}

// release removes the marker; a nil marker is a no-op.
func (m *marker) release(ctx context.Context) {
	if m == nil {
		return
	}

	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run marker", "path", m.path, "error", err)
	}
}

// terminateProcessByName kills every other process with the given executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID || process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}

	return nil
}
