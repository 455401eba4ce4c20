package build

import "fmt"

// VersionInfo describes the local and upstream versions of one run.
type VersionInfo struct {
	// CurrentVersion is the most recent local git tag or the fallback.
	CurrentVersion string
	// LatestVersion is the upstream version reported by the endpoint.
	LatestVersion string
	// DownloadURL is the upstream archive location.
	DownloadURL string
}

// Artifact is the package file produced by the packaging tool.
type Artifact struct {
	// Name is the product name, e.g. "Windsurf".
	Name string
	// Version is the packaged upstream version.
	Version string
	// Machine is the kernel machine name, e.g. "x86_64".
	Machine string
	// Path is the current location of the file, empty until located.
	Path string
}

// FileName returns <Name>-<Version>-<Machine>.AppImage.
func (a *Artifact) FileName() string {
	return fmt.Sprintf("%s-%s-%s.AppImage", a.Name, a.Version, a.Machine)
}
