package archive

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/testutil"
)

// TestExtractTarGz_Tree unpacks files, directories and confined links with their modes.
func TestExtractTarGz_Tree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "windsurf.tar.gz")
	target := filepath.Join(dir, "windsurf.AppDir")

	entries := append(testutil.WindsurfEntries(`{"nameShort":"Windsurf"}`),
		testutil.TarEntry{Name: "Windsurf/suid-helper", Body: "x", Mode: 0o4755},
		testutil.TarEntry{Name: "Windsurf/hard", Typeflag: tar.TypeLink, Linkname: "Windsurf/windsurf"},
		testutil.TarEntry{Name: "Windsurf/fifo", Typeflag: tar.TypeFifo},
	)
	testutil.WriteTarGz(t, archivePath, entries)

	require.NoError(t, ExtractTarGz(context.Background(), archivePath, target))

	info, err := os.Stat(filepath.Join(target, "Windsurf/windsurf"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	linkTarget, err := os.Readlink(filepath.Join(target, "Windsurf/bin/windsurf"))
	require.NoError(t, err)
	require.Equal(t, "../windsurf", linkTarget)

	contents, err := os.ReadFile(filepath.Join(target, "Windsurf/bin/windsurf"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "echo windsurf")

	info, err = os.Stat(filepath.Join(target, "Windsurf/suid-helper"))
	require.NoError(t, err)
	require.Zero(t, info.Mode()&(os.ModeSetuid|os.ModeSetgid|os.ModeSticky))
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	hard, err := os.ReadFile(filepath.Join(target, "Windsurf/hard"))
	require.NoError(t, err)
	require.Contains(t, string(hard), "echo windsurf")

	_, err = os.Lstat(filepath.Join(target, "Windsurf/fifo"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtractTarGz_Unsafe rejects entries and links leaving the target directory.
func TestExtractTarGz_Unsafe(t *testing.T) {
	t.Parallel()

	symlink := func(name, linkname string) testutil.TarEntry {
		return testutil.TarEntry{Name: name, Typeflag: tar.TypeSymlink, Linkname: linkname}
	}

	cases := map[string][]testutil.TarEntry{
		"parent traversal":     {{Name: "../escape.txt", Body: "x"}},
		"nested traversal":     {{Name: "Windsurf/../../escape.txt", Body: "x"}},
		"absolute symlink":     {symlink("Windsurf/passwd", "/etc/passwd")},
		"relative symlink out": {symlink("Windsurf/up", "../../outside")},
		"hard link out":        {{Name: "Windsurf/hard", Typeflag: tar.TypeLink, Linkname: "../outside"}},
		"absolute hard link":   {{Name: "Windsurf/hard", Typeflag: tar.TypeLink, Linkname: "/etc/passwd"}},
		"empty symlink target": {symlink("Windsurf/empty", "")},

		"symlink chain": {
			{Name: "deep/", Typeflag: tar.TypeDir, Mode: 0o755},
			symlink("deep/x", ".."),
			symlink("deep/x/y", "../.."),
			{Name: "h", Typeflag: tar.TypeLink, Linkname: "y/secret.txt"},
		},
		"up through a link to root": {
			symlink("self", "."),
			symlink("escape", "self/../secret.txt"),
		},
		"up through a link created later": {
			symlink("escape", "self/../secret.txt"),
			symlink("self", "."),
		},
	}

	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			archivePath := filepath.Join(dir, "evil.tar.gz")
			target := filepath.Join(dir, "out")

			require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("outside"), 0o600))
			testutil.WriteTarGz(t, archivePath, entries)

			err := ExtractTarGz(context.Background(), archivePath, target)
			require.Error(t, err)
			require.True(t, build.IsKind(err, build.KindExtraction), err.Error())
			require.ErrorIs(t, err, build.ErrUnsafePath)

			_, err = os.Stat(filepath.Join(dir, "escape.txt"))
			require.ErrorIs(t, err, os.ErrNotExist)

			_, err = os.Lstat(filepath.Join(target, "h"))
			require.ErrorIs(t, err, os.ErrNotExist)

			_, err = os.Lstat(filepath.Join(target, "escape"))
			require.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

// TestExtractTarGz_LinksThroughLinks allows chains that stay inside the target.
func TestExtractTarGz_LinksThroughLinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "windsurf.tar.gz")
	target := filepath.Join(dir, "windsurf.AppDir")

	testutil.WriteTarGz(t, archivePath, []testutil.TarEntry{
		{Name: "Windsurf/lib/libfoo.so.1", Body: "lib"},
		{Name: "Windsurf/current", Typeflag: tar.TypeSymlink, Linkname: "lib"},
		{Name: "Windsurf/current/libfoo.so", Typeflag: tar.TypeSymlink, Linkname: "libfoo.so.1"},
		{Name: "Windsurf/hard", Typeflag: tar.TypeLink, Linkname: "Windsurf/current/libfoo.so.1"},
	})

	require.NoError(t, ExtractTarGz(context.Background(), archivePath, target))

	data, err := os.ReadFile(filepath.Join(target, "Windsurf", "lib", "libfoo.so"))
	require.NoError(t, err)
	require.Equal(t, "lib", string(data))

	data, err = os.ReadFile(filepath.Join(target, "Windsurf", "hard"))
	require.NoError(t, err)
	require.Equal(t, "lib", string(data))
}

// TestExtractTarGz_Corrupt reports an extraction error for non-gzip and truncated input.
func TestExtractTarGz_Corrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.tar.gz")
	require.NoError(t, os.WriteFile(plain, []byte("definitely not gzip"), 0o600))

	err := ExtractTarGz(context.Background(), plain, filepath.Join(dir, "a"))
	require.True(t, build.IsKind(err, build.KindExtraction))

	valid := testutil.TarGz(t, testutil.WindsurfEntries("{}"))
	truncated := filepath.Join(dir, "truncated.tar.gz")
	require.NoError(t, os.WriteFile(truncated, valid[:len(valid)/2], 0o600))

	err = ExtractTarGz(context.Background(), truncated, filepath.Join(dir, "b"))
	require.Error(t, err)
	require.True(t, build.IsKind(err, build.KindExtraction), err.Error())
}

// TestScopedPath checks the confinement helper directly.
func TestScopedPath(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "work", "app")

	got, err := ScopedPath(root, "Windsurf/./windsurf")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "Windsurf", "windsurf"), got)

	got, err = ScopedPath(root, ".")
	require.NoError(t, err)
	require.Equal(t, root, got)

	_, err = ScopedPath(root, "../app-trick/file")
	require.ErrorIs(t, err, build.ErrUnsafePath)

	_, err = ScopedPath(root, "/etc/passwd")
	require.ErrorIs(t, err, build.ErrUnsafePath)
}
