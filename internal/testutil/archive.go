package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TarEntry describes one archive member. Typeflag defaults to a regular file.
type TarEntry struct {
	Name     string
	Body     string
	Mode     int64
	Typeflag byte
	Linkname string
}

// TarGz builds a gzip-compressed tar archive in memory.
func TarGz(t testing.TB, entries []TarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer

	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	for _, e := range entries {
		header := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Typeflag: e.Typeflag,
			Linkname: e.Linkname,
		}

		if header.Typeflag == 0 {
			header.Typeflag = tar.TypeReg
		}

		if header.Mode == 0 {
			header.Mode = 0o644
		}

		if header.Typeflag == tar.TypeReg {
			header.Size = int64(len(e.Body))
		}

		require.NoError(t, tw.WriteHeader(header))

		if header.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	return buf.Bytes()
}

// WriteTarGz writes TarGz(entries) to path.
func WriteTarGz(t testing.TB, path string, entries []TarEntry) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, TarGz(t, entries), 0o600))
}

// WindsurfEntries is a minimal upstream tree: the editor binary, its icon and
// its product.json.
func WindsurfEntries(productJSON string) []TarEntry {
	return []TarEntry{
		{Name: "Windsurf/", Typeflag: tar.TypeDir, Mode: 0o755},
		{Name: "Windsurf/windsurf", Body: "#!/bin/sh\necho windsurf\n", Mode: 0o755},
		{Name: "Windsurf/bin/windsurf", Typeflag: tar.TypeSymlink, Linkname: "../windsurf"},
		{Name: "Windsurf/resources/app/resources/linux/code.png", Body: "\x89PNG fake icon"},
		{Name: "Windsurf/resources/app/product.json", Body: productJSON},
	}
}
