package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// FakePackagingTool imitates the AppImage packaging tool.
// With --appimage-extract it unpacks an AppRun that writes "appimage" to its
// last argument and records all arguments and APPIMAGE_EXTRACT_AND_RUN next to it.
// Any other invocation fails with exit code 3.
const FakePackagingTool = `#!/bin/sh
if [ "$1" != "--appimage-extract" ]; then
	echo "unexpected invocation" >&2
	exit 3
fi
mkdir -p squashfs-root
cat > squashfs-root/AppRun <<'EOS'
#!/bin/sh
for last; do :; done
echo "$@" > "$last.args"
echo "extract_and_run=$APPIMAGE_EXTRACT_AND_RUN" >> "$last.args"
printf 'appimage' > "$last"
printf 'zsync' > "$last.zsync"
EOS
chmod 755 squashfs-root/AppRun
`

// FailingPackagingTool unpacks an AppRun that always exits with code 7.
const FailingPackagingTool = `#!/bin/sh
mkdir -p squashfs-root
printf '#!/bin/sh\necho "mksquashfs failed" >&2\nexit 7\n' > squashfs-root/AppRun
chmod 755 squashfs-root/AppRun
`

// WriteExecutable writes an executable script and returns its path.
func WriteExecutable(t testing.TB, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	//nolint:gosec // G306: the script must be executable.
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))

	return path
}
