// Package archive unpacks gzip-compressed tar archives into a directory
// without letting any entry, symlink or hard link reach outside of it.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/logger"
)

const (
	// dirPermissions is ORed into directory modes so extraction can write into them.
	dirPermissions os.FileMode = 0o700
	// parentPermissions is used for parent directories missing from the archive.
	parentPermissions os.FileMode = 0o755
)

// link is a symlink or hard link created after all regular files exist.
type link struct {
	target   string
	linkname string
	hard     bool
}

// ExtractTarGz unpacks archivePath into targetDir, creating it when needed.
// Setuid, setgid and sticky bits are dropped. Device nodes and FIFOs are skipped.
func ExtractTarGz(ctx context.Context, archivePath, targetDir string) error {
	//nolint:gosec // G304: archive path comes from the pipeline's own temporary file.
	file, err := os.Open(archivePath)
	if err != nil {
		return build.FileSystemError("open archive", archivePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return build.ExtractionError("open gzip stream", archivePath, err)
	}

	defer func() {
		_ = gzr.Close()
	}()

	root, err := filepath.Abs(targetDir)
	if err != nil {
		return build.FileSystemError("resolve target directory", targetDir, err)
	}

	if err = os.MkdirAll(root, parentPermissions); err != nil {
		return build.FileSystemError("create target directory", root, err)
	}

	links, files, err := extractEntries(ctx, tar.NewReader(gzr), root)
	if err != nil {
		return err
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return build.FileSystemError("resolve target directory", root, err)
	}

	for _, l := range links {
		if err = createLink(realRoot, l); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Extracted archive", "path", archivePath, "target", root,
		"files", files, "links", len(links))

	return nil
}

// extractEntries writes directories and regular files, collecting links for a second pass.
func extractEntries(ctx context.Context, tr *tar.Reader, root string) ([]link, int, error) {
	var (
		links []link
		files int
	)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return links, files, nil
		}

		if err != nil {
			return nil, files, build.ExtractionError("read tar header", root, err)
		}

		target, err := ScopedPath(root, header.Name)
		if err != nil {
			return nil, files, build.ExtractionError("resolve entry", header.Name, err)
		}

		perm := os.FileMode(header.Mode).Perm() //nolint:gosec // G115: tar modes fit in 32 bits.

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, perm|dirPermissions); err != nil {
				return nil, files, build.FileSystemError("create directory", target, err)
			}

		case tar.TypeReg:
			if err = writeFile(tr, target, perm, header.Size); err != nil {
				return nil, files, err
			}

			files++

		case tar.TypeSymlink:
			if err = checkSymlink(root, target, header.Linkname); err != nil {
				return nil, files, build.ExtractionError("check symlink", header.Name, err)
			}

			links = append(links, link{target: target, linkname: header.Linkname})

		case tar.TypeLink:
			source, err := ScopedPath(root, header.Linkname)
			if err != nil {
				return nil, files, build.ExtractionError("check hard link", header.Name, err)
			}

			links = append(links, link{target: target, linkname: source, hard: true})

		default:
			logger.DebugKV(ctx, "Skipping unsupported tar entry",
				"name", header.Name, "type", string(header.Typeflag))
		}
	}
}

// writeFile creates target with perm and copies exactly size bytes into it.
func writeFile(r io.Reader, target string, perm os.FileMode, size int64) error {
	if err := os.MkdirAll(filepath.Dir(target), parentPermissions); err != nil {
		return build.FileSystemError("create parent directory", target, err)
	}

	// A later entry replaces an earlier one instead of writing through it.
	if err := removeExisting(target); err != nil {
		return err
	}

	//nolint:gosec // G304: target is confined to the extraction root by ScopedPath.
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return build.FileSystemError("create file", target, err)
	}

	if _, err = io.CopyN(out, r, size); err != nil {
		_ = out.Close()

		return build.ExtractionError("write file", target, err)
	}

	if err = out.Close(); err != nil {
		return build.FileSystemError("close file", target, err)
	}

	// OpenFile applies the umask; restore the archived mode.
	if err = os.Chmod(target, perm); err != nil {
		return build.FileSystemError("set file mode", target, err)
	}

	return nil
}

// createLink creates a symlink or hard link, replacing whatever is at its path.
// Paths are resolved through the links already on disk, so a chain of links
// that each look confined cannot lead outside realRoot.
func createLink(realRoot string, l link) error {
	dir, err := confinedDir(realRoot, filepath.Dir(l.target))
	if err != nil {
		return err
	}

	target := filepath.Join(dir, filepath.Base(l.target))

	if l.hard {
		source, evalErr := filepath.EvalSymlinks(l.linkname)
		if evalErr != nil {
			return build.ExtractionError("resolve hard link source", l.linkname, evalErr)
		}

		if !within(realRoot, source) {
			return build.ExtractionError("check hard link", l.target,
				fmt.Errorf("%s -> %s: %w", l.target, source, build.ErrUnsafePath))
		}

		if err = os.RemoveAll(target); err != nil {
			return build.FileSystemError("replace link", target, err)
		}

		if err = os.Link(source, target); err != nil {
			return build.ExtractionError("create hard link", target, err)
		}

		return nil
	}

	if err = checkResolvedSymlink(realRoot, dir, l.linkname); err != nil {
		return build.ExtractionError("check symlink", l.target, err)
	}

	if err = os.RemoveAll(target); err != nil {
		return build.FileSystemError("replace link", target, err)
	}

	if err = os.Symlink(l.linkname, target); err != nil {
		return build.FileSystemError("create symlink", target, err)
	}

	return nil
}

// confinedDir creates dir and returns its real path, failing when dir or its
// deepest existing ancestor resolves outside realRoot.
func confinedDir(realRoot, dir string) (string, error) {
	for existing := dir; ; {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			if !within(realRoot, resolved) {
				return "", build.ExtractionError("check link parent", dir,
					fmt.Errorf("%s resolves to %s: %w", existing, resolved, build.ErrUnsafePath))
			}

			break
		}

		if !errors.Is(err, os.ErrNotExist) {
			return "", build.FileSystemError("resolve link parent", existing, err)
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}

		existing = parent
	}

	if err := os.MkdirAll(dir, parentPermissions); err != nil {
		return "", build.FileSystemError("create parent directory", dir, err)
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", build.FileSystemError("resolve link parent", dir, err)
	}

	if !within(realRoot, resolved) {
		return "", build.ExtractionError("check link parent", dir,
			fmt.Errorf("%s resolves to %s: %w", dir, resolved, build.ErrUnsafePath))
	}

	return resolved, nil
}

// checkResolvedSymlink walks linkname from dir one component at a time,
// following links already on disk, and fails as soon as the walk leaves realRoot.
// Going up through a component that does not exist yet is rejected: a later
// entry could turn it into a link and change where ".." lands.
func checkResolvedSymlink(realRoot, dir, linkname string) error {
	current := dir
	missing := false

	for _, part := range strings.Split(filepath.ToSlash(linkname), "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if missing {
				return fmt.Errorf("%s: %w", linkname, build.ErrUnsafePath)
			}

			current = filepath.Dir(current)
		default:
			current = filepath.Join(current, part)

			resolved, err := filepath.EvalSymlinks(current)

			switch {
			case err == nil:
				current = resolved
			case errors.Is(err, os.ErrNotExist):
				missing = true
			default:
				return fmt.Errorf("resolve %s: %w", current, err)
			}
		}

		if !within(realRoot, current) {
			return fmt.Errorf("%s: %w", linkname, build.ErrUnsafePath)
		}
	}

	return nil
}

// removeExisting deletes a file or link at path; directories are kept.
func removeExisting(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return build.FileSystemError("inspect path", path, err)
	}

	if info.IsDir() {
		return nil
	}

	if err = os.Remove(path); err != nil {
		return build.FileSystemError("replace file", path, err)
	}

	return nil
}

// checkSymlink rejects absolute link targets and relative ones resolving outside root.
func checkSymlink(root, target, linkname string) error {
	if linkname == "" || filepath.IsAbs(linkname) {
		return fmt.Errorf("%s -> %q: %w", target, linkname, build.ErrUnsafePath)
	}

	resolved := filepath.Join(filepath.Dir(target), linkname)
	if !within(root, resolved) {
		return fmt.Errorf("%s -> %s: %w", target, linkname, build.ErrUnsafePath)
	}

	return nil
}

// ScopedPath joins name to root and fails when the result leaves root.
func ScopedPath(root, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%s: %w", name, build.ErrUnsafePath)
	}

	path := filepath.Join(root, name)
	if !within(root, path) {
		return "", fmt.Errorf("%s: %w", name, build.ErrUnsafePath)
	}

	return path, nil
}

// within reports whether the cleaned path equals root or lies below it.
func within(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)

	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
