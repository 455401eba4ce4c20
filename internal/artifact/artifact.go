package artifact

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/bmatcuk/doublestar"
	"github.com/otiai10/copy"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/logger"
)

// ZsyncSuffix is appended to the artifact name by the packaging tool
// when update information is embedded.
const ZsyncSuffix = ".zsync"

// DistDirMode is the mode of a freshly created dist directory.
const DistDirMode = 0o755

// Locate walks root and returns the shallowest file whose base name matches pattern.
// Directories whose absolute path is listed in skip are not descended into.
func Locate(ctx context.Context, root, pattern string, skip ...string) (string, error) {
	if _, err := doublestar.Match(pattern, ""); err != nil {
		return "", build.FileSystemError("match artifact", pattern, err)
	}

	skipped := make(map[string]struct{}, len(skip))

	for _, dir := range skip {
		if abs, err := filepath.Abs(dir); err == nil {
			skipped[abs] = struct{}{}
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", build.FileSystemError("resolve search root", root, err)
	}

	var matches []string

	err = filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}

			logger.DebugKV(ctx, "Skipping unreadable path", "path", path, "error", walkErr)

			return nil
		}

		if entry.IsDir() {
			if _, ok := skipped[path]; ok && path != absRoot {
				return filepath.SkipDir
			}

			return nil
		}

		if ok, _ := doublestar.Match(pattern, entry.Name()); ok {
			matches = append(matches, path)
		}

		return nil
	})
	if err != nil {
		return "", build.FileSystemError("search artifact", root, err)
	}

	if len(matches) == 0 {
		return "", build.FileSystemError("search artifact", filepath.Join(root, pattern), build.ErrArtifactNotFound)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return depth(matches[i]) < depth(matches[j])
	})

	if len(matches) > 1 {
		logger.WarnKV(ctx, "Several artifacts match, using the shallowest", "pattern", pattern, "matches", matches)
	}

	return matches[0], nil
}

// Move places src into dstDir under the same base name and returns the new path.
// A companion src+".zsync" is moved along when present.
func Move(ctx context.Context, src, dstDir string) (string, error) {
	if err := os.MkdirAll(dstDir, DistDirMode); err != nil {
		return "", build.FileSystemError("create dist directory", dstDir, err)
	}

	dst := filepath.Join(dstDir, filepath.Base(src))
	if err := moveFile(src, dst); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Artifact moved", "path", dst)

	zsync := src + ZsyncSuffix
	if _, err := os.Stat(zsync); err == nil {
		if err = moveFile(zsync, dst+ZsyncSuffix); err != nil {
			return "", err
		}

		logger.InfoKV(ctx, "Update metadata moved", "path", dst+ZsyncSuffix)
	}

	return dst, nil
}

// moveFile renames src to dst, copying across filesystems when rename cannot.
func moveFile(src, dst string) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	if !errors.Is(err, syscall.EXDEV) {
		return build.FileSystemError("move artifact", src, err)
	}

	if err = copy.Copy(src, dst); err != nil {
		return build.FileSystemError("copy artifact", src, err)
	}

	if err = os.Remove(src); err != nil {
		return build.FileSystemError("remove moved artifact", src, err)
	}

	return nil
}

func depth(path string) int {
	count := 0

	for _, r := range path {
		if r == filepath.Separator {
			count++
		}
	}

	return count
}
