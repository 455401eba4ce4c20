// Package build holds the values a packaging run passes between steps
// (VersionInfo, Artifact) and the error taxonomy every step reports with.
package build
