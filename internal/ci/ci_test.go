package ci

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const updateTemplate = "gh-releases-zsync|{repository}|latest|{product}*.AppImage.zsync"

// TestAppendEnv appends without touching existing lines.
func TestAppendEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "github_env")
	require.NoError(t, os.WriteFile(path, []byte("EXISTING=1\n"), 0o644))

	require.NoError(t, AppendEnv(path, BuildResult("1.2.3")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "EXISTING=1\nAPP_UPDATE_NEEDED=true\nVERSION=1.2.3\n", string(data))
}

// TestAppendEnv_EmptyPath does nothing outside a runner.
func TestAppendEnv_EmptyPath(t *testing.T) {
	t.Parallel()

	require.NoError(t, AppendEnv("", BuildResult("1.2.3")))
}

// TestAppendEnv_RejectsLineBreaks keeps the file parseable.
func TestAppendEnv_RejectsLineBreaks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "github_env")

	err := AppendEnv(path, []Pair{{Key: "VERSION", Value: "1.0\nEVIL=1"}})
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestUpdateInformation covers valid and malformed repositories.
func TestUpdateInformation(t *testing.T) {
	t.Parallel()

	info, err := UpdateInformation(updateTemplate, "octo/windsurf-appimage", "Windsurf")
	require.NoError(t, err)
	require.Equal(t, "gh-releases-zsync|octo|windsurf-appimage|latest|Windsurf*.AppImage.zsync", info)

	info, err = UpdateInformation(updateTemplate, "", "Windsurf")
	require.NoError(t, err)
	require.Equal(t, "gh-releases-zsync||latest|Windsurf*.AppImage.zsync", info)

	for _, repository := range []string{"octo", "/repo", "octo/", "a/b/c"} {
		_, err = UpdateInformation(updateTemplate, repository, "Windsurf")
		require.ErrorIs(t, err, ErrInvalidRepository, repository)
	}
}
