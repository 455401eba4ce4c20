package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	semver "github.com/hashicorp/go-version"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/logger"
)

// maxMetadataSize caps the version endpoint response.
const maxMetadataSize = 1 << 20

var (
	errMissingField = errors.New("field is missing")
	errNotAString   = errors.New("field is not a non-empty string")
)

// Client fetches version metadata from the endpoint.
type Client struct {
	// HTTP carries the required headers and timeouts.
	HTTP *http.Client
	// Endpoint returns a JSON object describing the latest release.
	Endpoint string
	// URLField names the archive URL field.
	URLField string
	// VersionField names the version field.
	VersionField string
}

// FetchLatest returns the latest upstream version and its archive URL.
// CurrentVersion of the result is left empty.
func (c *Client) FetchLatest(ctx context.Context) (*build.VersionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, http.NoBody)
	if err != nil {
		return nil, build.NetworkError("build version request", c.Endpoint, err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, build.NetworkError("fetch latest version", c.Endpoint, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, build.NetworkError("fetch latest version", c.Endpoint,
			fmt.Errorf("%s: %w", resp.Status, build.ErrUnexpectedStatus))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataSize))
	if err != nil {
		return nil, build.NetworkError("read latest version", c.Endpoint, err)
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(body, &fields); err != nil {
		return nil, build.ParseError("decode latest version", c.Endpoint, err)
	}

	downloadURL, err := stringField(fields, c.URLField)
	if err != nil {
		return nil, build.ParseError("decode latest version", c.Endpoint, err)
	}

	latest, err := stringField(fields, c.VersionField)
	if err != nil {
		return nil, build.ParseError("decode latest version", c.Endpoint, err)
	}

	logger.InfoKV(ctx, "Fetched latest upstream version", "version", latest, "url", downloadURL)

	return &build.VersionInfo{
		LatestVersion: latest,
		DownloadURL:   downloadURL,
	}, nil
}

// stringField extracts a non-empty string value from a decoded JSON object.
func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, errMissingField)
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil || value == "" {
		return "", fmt.Errorf("%q: %w", name, errNotAString)
	}

	return value, nil
}

// NeedsUpdate compares versions as exact strings. When both sides are
// semantic versions and the remote one is older, a warning is logged; the
// decision stays the same.
func NeedsUpdate(ctx context.Context, current, latest string) bool {
	if current == latest {
		logger.InfoKV(ctx, "No update needed", "version", current)
		return false
	}

	currentVersion, currentErr := semver.NewVersion(current)
	latestVersion, latestErr := semver.NewVersion(latest)

	if currentErr == nil && latestErr == nil && latestVersion.LessThan(currentVersion) {
		logger.WarnKV(ctx, "Upstream version is older than the current one, packaging anyway",
			"current", current, "latest", latest)
	}

	logger.InfoKV(ctx, "Update needed", "current", current, "latest", latest)

	return true
}
