// Package testutil holds fixtures shared by package and integration tests.
package testutil

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// InitTaggedRepo creates a git repository with one empty commit in dir and
// tags it when tag is not empty.
func InitTaggedRepo(t testing.TB, dir, tag string) {
	t.Helper()

	run := func(args ...string) {
		t.Helper()

		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(cmd.Environ(),
			"GIT_AUTHOR_NAME=packager", "GIT_AUTHOR_EMAIL=packager@example.com",
			"GIT_COMMITTER_NAME=packager", "GIT_COMMITTER_EMAIL=packager@example.com",
			"GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1",
		)

		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	run("init", "-q")
	run("commit", "-q", "--allow-empty", "-m", "init")

	if tag != "" {
		run("tag", tag)
	}
}
