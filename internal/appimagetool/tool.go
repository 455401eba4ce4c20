package appimagetool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/logger"
)

const (
	// ExecutableMode is applied to the installed tool.
	ExecutableMode os.FileMode = 0o755

	// ExtractFlag makes an AppImage unpack itself into ExtractedDir.
	ExtractFlag = "--appimage-extract"

	// ExtractedDir is created by ExtractFlag in the working directory.
	ExtractedDir = "squashfs-root"

	// EntryPoint is the unpacked tool's launcher.
	EntryPoint = "AppRun"

	// EnvExtractAndRun lets an AppImage run without mounting itself.
	EnvExtractAndRun = "APPIMAGE_EXTRACT_AND_RUN"

	// maxStderrTail is how much tool stderr is kept for error reports.
	maxStderrTail = 4 << 10
)

var errMissingEntryPoint = errors.New("unpacked tool has no AppRun")

// ToolURL substitutes the machine name into template.
func ToolURL(template, machine string) string {
	return strings.ReplaceAll(template, "{arch}", machine)
}

// Install copies the downloaded tool at src to dst and makes it executable.
// An existing dst is replaced atomically.
func Install(ctx context.Context, src, dst string) error {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return build.FileSystemError("read downloaded tool", src, err)
	}

	if _, err = os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		var file *os.File

		//nolint:gosec // G304: dst is chosen by this program.
		if file, err = os.Create(dst); err != nil {
			return build.FileSystemError("create tool", dst, err)
		}

		_ = file.Close()
	}

	options := goupdate.Options{
		TargetPath: dst,
		TargetMode: ExecutableMode,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return build.FileSystemError("install tool", dst, err)
	}

	for _, oldFileName := range []string{dst + ".old", filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".old")} {
		if _, err = os.Stat(oldFileName); err == nil {
			_ = os.Remove(oldFileName)
		}
	}

	// The umask may have stripped bits from TargetMode.
	if err = os.Chmod(dst, ExecutableMode); err != nil {
		return build.FileSystemError("chmod tool", dst, err)
	}

	logger.DebugKV(ctx, "Packaging tool installed", "path", dst)

	return nil
}

// Extract unpacks the tool inside dir and returns the path of its AppRun.
func Extract(ctx context.Context, toolPath, dir string, timeout time.Duration) (string, error) {
	absTool, err := filepath.Abs(toolPath)
	if err != nil {
		return "", build.FileSystemError("resolve tool path", toolPath, err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stderr := &tailBuffer{limit: maxStderrTail}

	//nolint:gosec // G204: the tool path is produced by Install.
	cmd := exec.CommandContext(ctx, absTool, ExtractFlag)
	cmd.Dir = dir
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr

	if err = cmd.Run(); err != nil {
		return "", build.BuildError("extract tool", toolPath, withStderr(err, stderr))
	}

	entryPoint := filepath.Join(dir, ExtractedDir, EntryPoint)
	if _, err = os.Stat(entryPoint); err != nil {
		return "", build.BuildError("extract tool", entryPoint, errMissingEntryPoint)
	}

	logger.DebugKV(ctx, "Packaging tool unpacked", "entry_point", entryPoint)

	return entryPoint, nil
}

// Tool runs an unpacked packaging tool.
type Tool struct {
	// EntryPoint is the AppRun returned by Extract.
	EntryPoint string
	// Compression is passed to --comp.
	Compression string
	// ExtractAndRun exports EnvExtractAndRun=1 to the tool.
	ExtractAndRun bool
	// Timeout bounds one build; zero means no limit.
	Timeout time.Duration
	// Stdout and Stderr receive the tool's output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Args returns the command line for building sourceDir into output.
func (t *Tool) Args(sourceDir, updateInfo, output string) []string {
	return []string{"-n", "--comp", t.Compression, sourceDir, "--updateinformation", updateInfo, output}
}

// Build packages sourceDir into output, running inside workDir.
// A relative sourceDir is taken relative to workDir.
// A non-zero exit is reported as a build error wrapping *exec.ExitError.
func (t *Tool) Build(ctx context.Context, workDir, sourceDir, updateInfo, output string) error {
	if !filepath.IsAbs(sourceDir) {
		sourceDir = filepath.Join(workDir, sourceDir)
	}

	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return build.FileSystemError("resolve source directory", sourceDir, err)
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	stderr := &tailBuffer{limit: maxStderrTail}

	//nolint:gosec // G204: arguments come from configuration and this run's paths.
	cmd := exec.CommandContext(ctx, t.EntryPoint, t.Args(absSource, updateInfo, output)...)
	cmd.Dir = workDir
	cmd.Stdout = orDiscard(t.Stdout)
	cmd.Stderr = io.MultiWriter(orDiscard(t.Stderr), stderr)

	cmd.Env = os.Environ()
	if t.ExtractAndRun {
		cmd.Env = append(cmd.Env, EnvExtractAndRun+"=1")
	}

	logger.InfoKV(ctx, "Running packaging tool", "output", output, "update_information", updateInfo)

	if err = cmd.Run(); err != nil {
		return build.BuildError("run packaging tool", output, withStderr(err, stderr))
	}

	return nil
}

// withStderr attaches the exit code and the captured stderr to err.
func withStderr(err error, stderr *tailBuffer) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("exit code %d: %w: %s", exitErr.ExitCode(), err, strings.TrimSpace(stderr.String()))
	}

	return err
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if overflow := len(b.buf) - b.limit; overflow > 0 {
		b.buf = b.buf[overflow:]
	}

	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
