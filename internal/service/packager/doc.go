// Package packager runs the packaging pipeline: it compares the tagged local
// version with the upstream release and, when they differ, turns the upstream
// tar.gz into an AppImage in the dist directory.
//
// The pipeline is linear. The only branch is the early exit when the versions
// match, taken before anything on disk is touched.
package packager
