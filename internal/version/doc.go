// Package version exposes build metadata of the windsurf-appimage binary.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. This is the version of the packager itself, not of the
// packaged application, which is tracked by git tags (see package gittag).
package version
