// Package gittag resolves the version the repository was last released at:
// the most recent git tag reachable from HEAD.
package gittag
