// Package artifact finds the AppImage left behind by the packaging tool
// and moves it, together with its .zsync companion, into the dist directory.
package artifact
