package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/logger"
)

// Downloader fetches large files with progress reporting.
type Downloader struct {
	// HTTP carries the required headers; its own Timeout should be zero
	// so that Timeout below bounds the whole transfer instead.
	HTTP *http.Client
	// Out receives the progress line, usually os.Stdout.
	Out io.Writer
	// Timeout bounds a whole download, zero means no bound.
	Timeout time.Duration
}

// ToTemp downloads url into a new temporary file whose name ends with suffix
// and returns its path. The caller owns the file; on failure nothing is left behind.
func (d *Downloader) ToTemp(ctx context.Context, url, suffix, label string) (string, error) {
	tmp, err := os.CreateTemp("", "windsurf-appimage-*"+suffix)
	if err != nil {
		return "", build.FileSystemError("create temporary file", os.TempDir(), err)
	}

	path := tmp.Name()

	if err = d.write(ctx, url, tmp, label); err != nil {
		_ = tmp.Close()
		_ = os.Remove(path)

		return "", err
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(path)

		return "", build.FileSystemError("close temporary file", path, err)
	}

	return path, nil
}

// Download streams url into dst, creating or truncating it.
func (d *Downloader) Download(ctx context.Context, url, dst, label string) error {
	//nolint:gosec // G304: destination is chosen by the pipeline, not by remote input.
	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return build.FileSystemError("create download destination", dst, err)
	}

	if err = d.write(ctx, url, out, label); err != nil {
		_ = out.Close()

		return err
	}

	if err = out.Close(); err != nil {
		return build.FileSystemError("close download destination", dst, err)
	}

	return nil
}

// write performs the request and copies the body into out, flushing it to disk.
func (d *Downloader) write(ctx context.Context, url string, out *os.File, label string) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return build.NetworkError("build download request", url, err)
	}

	logger.InfoKV(ctx, "Downloading", "what", label, "url", url)

	resp, err := d.HTTP.Do(req)
	if err != nil {
		return build.NetworkError("download", url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return build.NetworkError("download", url, fmt.Errorf("%s: %w", resp.Status, build.ErrUnexpectedStatus))
	}

	printer := NewConsolePrinter(d.output(), label)
	progress := NewProgress(resp.ContentLength, printer.Print)

	if _, err = io.Copy(io.MultiWriter(out, progress), resp.Body); err != nil {
		return build.NetworkError("download", url, err)
	}

	if resp.ContentLength > 0 && progress.Written() != resp.ContentLength {
		return build.NetworkError("download", url,
			fmt.Errorf("received %d of %d bytes: %w", progress.Written(), resp.ContentLength, io.ErrUnexpectedEOF))
	}

	if resp.ContentLength <= 0 {
		// Length was unknown, report completion once.
		printer.Print(100)
	}

	if err = out.Sync(); err != nil {
		return build.FileSystemError("sync download", out.Name(), err)
	}

	logger.InfoKV(ctx, "Downloaded", "what", label, "bytes", progress.Written())

	return nil
}

func (d *Downloader) output() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}

	return d.Out
}
