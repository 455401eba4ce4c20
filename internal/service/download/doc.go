// Package download streams remote files to disk while printing the
// percentage completed on a single console line.
package download
