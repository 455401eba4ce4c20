package gittag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/oshokin/windsurf-appimage/internal/logger"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 10 * time.Second

// errEmptyTag is returned when git succeeds but prints nothing.
var errEmptyTag = errors.New("git printed an empty tag")

// Resolver reads the latest tag of the repository in Dir.
type Resolver struct {
	// Dir is the working directory git runs in.
	Dir string
	// Fallback is returned when no tag can be read.
	Fallback string
	// Timeout bounds the git invocation.
	Timeout time.Duration
	// GitBinary overrides the git executable, "git" when empty.
	GitBinary string
}

// Resolve returns the most recent tag or the fallback. It never fails:
// a missing repository, missing tags or a missing git binary all yield the fallback.
func (r *Resolver) Resolve(ctx context.Context) string {
	tag, err := r.describe(ctx)
	if err != nil {
		logger.WarnKV(ctx, "No git tags found, using fallback version",
			"fallback", r.Fallback, "reason", err)

		return r.Fallback
	}

	logger.InfoKV(ctx, "Resolved current version from git", "tag", tag)

	return tag
}

// describe runs git describe --tags --abbrev=0.
func (r *Resolver) describe(ctx context.Context) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := r.GitBinary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(cmdCtx, binary, "describe", "--tags", "--abbrev=0")
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}

		return "", err
	}

	tag := strings.TrimSpace(stdout.String())
	if tag == "" {
		return "", errEmptyTag
	}

	return tag, nil
}
