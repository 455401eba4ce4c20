// Package upstream queries the remote version endpoint and decides whether
// the upstream release differs from the last packaged one.
package upstream
