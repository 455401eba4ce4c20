// Package ci talks to the GitHub Actions runner: it exports variables for
// later workflow steps and derives the update information embedded in the AppImage.
package ci

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Variables exported after a successful build.
const (
	EnvUpdateNeeded = "APP_UPDATE_NEEDED"
	EnvVersion      = "VERSION"
)

// Variables read from the runner environment.
const (
	EnvGitHubEnv        = "GITHUB_ENV"
	EnvGitHubRepository = "GITHUB_REPOSITORY"
)

var (
	// ErrInvalidRepository is returned when the repository is not in owner/name form.
	ErrInvalidRepository = errors.New("repository must look like owner/name")
	// ErrInvalidValue is returned for values that would break the env file format.
	ErrInvalidValue = errors.New("value contains a line break")
)

// Pair is one exported variable.
type Pair struct {
	Key   string
	Value string
}

// BuildResult returns the variables announcing a new build of version.
func BuildResult(version string) []Pair {
	return []Pair{
		{Key: EnvUpdateNeeded, Value: "true"},
		{Key: EnvVersion, Value: version},
	}
}

// AppendEnv appends KEY=value lines to the env file at path.
// An empty path means the run is not on a runner and nothing is written.
func AppendEnv(path string, pairs []Pair) error {
	if path == "" {
		return nil
	}

	var b strings.Builder

	for _, pair := range pairs {
		if strings.ContainsAny(pair.Key+pair.Value, "\r\n") || strings.Contains(pair.Key, "=") {
			return fmt.Errorf("%s: %w", pair.Key, ErrInvalidValue)
		}

		b.WriteString(pair.Key)
		b.WriteByte('=')
		b.WriteString(pair.Value)
		b.WriteByte('\n')
	}

	//nolint:gosec // G302,G304: the runner owns this file and expects it world-readable.
	file, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open env file: %w", err)
	}

	if _, err = file.WriteString(b.String()); err != nil {
		_ = file.Close()

		return fmt.Errorf("write env file: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close env file: %w", err)
	}

	return nil
}

// UpdateInformation fills template with the repository and product name.
// The repository owner/name pair becomes owner|name; an empty repository
// leaves that part empty, as GitHub Actions does outside a repository.
func UpdateInformation(template, repository, product string) (string, error) {
	repository = strings.TrimSpace(repository)

	var pair string

	if repository != "" {
		owner, name, ok := strings.Cut(repository, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return "", fmt.Errorf("%q: %w", repository, ErrInvalidRepository)
		}

		pair = owner + "|" + name
	}

	replacer := strings.NewReplacer(
		"{repository}", pair,
		"{product}", product,
	)

	return replacer.Replace(template), nil
}
