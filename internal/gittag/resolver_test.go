package gittag

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/windsurf-appimage/internal/testutil"
)

// TestResolve_NotARepository falls back when the directory is not a git repository.
func TestResolve_NotARepository(t *testing.T) {
	t.Parallel()

	r := &Resolver{Dir: t.TempDir(), Fallback: "0.0.0"}
	require.Equal(t, "0.0.0", r.Resolve(context.Background()))
}

// TestResolve_MissingBinary falls back when git cannot be started.
func TestResolve_MissingBinary(t *testing.T) {
	t.Parallel()

	r := &Resolver{Dir: t.TempDir(), Fallback: "0.0.0", GitBinary: "git-does-not-exist"}
	require.Equal(t, "0.0.0", r.Resolve(context.Background()))
}

// TestResolve_Tagged reads the latest tag of a freshly created repository.
func TestResolve_Tagged(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	dir := t.TempDir()
	testutil.InitTaggedRepo(t, dir, "1.0.0")

	r := &Resolver{Dir: dir, Fallback: "0.0.0"}
	require.Equal(t, "1.0.0", r.Resolve(context.Background()))
}

// TestResolve_NoTags falls back for a repository without tags.
func TestResolve_NoTags(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	dir := t.TempDir()
	testutil.InitTaggedRepo(t, dir, "")

	r := &Resolver{Dir: dir, Fallback: "0.0.0"}
	require.Equal(t, "0.0.0", r.Resolve(context.Background()))
}
