package productjson

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
)

// maxPatchSize caps a remote patch document.
const maxPatchSize = 4 << 20

// Fetcher downloads patch documents.
type Fetcher struct {
	// HTTP carries the required headers and timeouts.
	HTTP *http.Client
}

// Fetch downloads and decodes the patch at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Patch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, build.NetworkError("build patch request", url, err)
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, build.NetworkError("fetch patch", url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, build.NetworkError("fetch patch", url, fmt.Errorf("%s: %w", resp.Status, build.ErrUnexpectedStatus))
	}

	patch, err := DecodePatch(io.LimitReader(resp.Body, maxPatchSize))
	if err != nil {
		return nil, build.ParseError("decode patch", url, err)
	}

	return patch, nil
}
