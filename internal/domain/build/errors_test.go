package build

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestErrorWrapUnwrap checks that errors.Is and errors.As see through Error.
func TestErrorWrapUnwrap(t *testing.T) {
	t.Parallel()

	root := errors.New("connection refused")
	err := fmt.Errorf("fetch latest version: %w", NetworkError("GET", "https://example.com", root))

	require.ErrorIs(t, err, root)
	require.True(t, IsKind(err, KindNetwork))
	require.False(t, IsKind(err, KindParse))
	require.Contains(t, err.Error(), "network error (https://example.com): connection refused")

	var be *Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, "GET", be.Op)
}

// TestIsKindPlainError verifies that unclassified errors match no kind.
func TestIsKindPlainError(t *testing.T) {
	t.Parallel()

	require.False(t, IsKind(errors.New("plain"), KindBuild))
	require.False(t, IsKind(nil, KindBuild))
}

// TestArtifactFileName checks the artifact naming scheme.
func TestArtifactFileName(t *testing.T) {
	t.Parallel()

	a := &Artifact{Name: "Windsurf", Version: "1.1.0", Machine: "x86_64"}
	require.Equal(t, "Windsurf-1.1.0-x86_64.AppImage", a.FileName())
}
