// Package appimagetool installs and drives the AppImage packaging tool.
//
// The tool is itself an AppImage. It is unpacked once with --appimage-extract
// so that it runs without FUSE, and the unpacked AppRun builds the final image.
package appimagetool
