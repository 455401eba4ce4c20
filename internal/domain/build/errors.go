package build

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the pipeline steps.
var (
	// ErrArtifactNotFound is returned when the packaging tool left no file matching the artifact name.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrAlreadyRunning is returned when another packaging run holds the working directory.
	ErrAlreadyRunning = errors.New("another packaging run is in progress")
	// ErrUnexpectedStatus is returned for non-2xx HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected http status")
	// ErrUnsafePath is returned for archive entries escaping the extraction directory.
	ErrUnsafePath = errors.New("path escapes target directory")
)

// Kind is a coarse-grained categorization for errors.
type Kind string

const (
	// KindNetwork covers DNS, connection, timeout and non-2xx failures.
	KindNetwork Kind = "network"
	// KindParse covers malformed JSON responses and documents.
	KindParse Kind = "parse"
	// KindExtraction covers corrupt or unsafe archives.
	KindExtraction Kind = "extraction"
	// KindFileSystem covers permission problems and missing paths.
	KindFileSystem Kind = "filesystem"
	// KindBuild covers the packaging tool exiting with a non-zero status.
	KindBuild Kind = "build"
)

// Error wraps an underlying error with the failed operation and its kind.
type Error struct {
	// Op names the failed operation, e.g. "download archive".
	Op string
	// Kind classifies the failure.
	Kind Kind
	// Path is an optional file path or URL the operation worked on.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (%s)", e.Path)
	}

	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}

	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// IsKind reports whether any error in the chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == kind
	}

	return false
}

// NetworkError wraps err as a network failure.
func NetworkError(op, path string, err error) error {
	return &Error{Op: op, Kind: KindNetwork, Path: path, Err: err}
}

// ParseError wraps err as a parse failure.
func ParseError(op, path string, err error) error {
	return &Error{Op: op, Kind: KindParse, Path: path, Err: err}
}

// ExtractionError wraps err as an extraction failure.
func ExtractionError(op, path string, err error) error {
	return &Error{Op: op, Kind: KindExtraction, Path: path, Err: err}
}

// FileSystemError wraps err as a filesystem failure.
func FileSystemError(op, path string, err error) error {
	return &Error{Op: op, Kind: KindFileSystem, Path: path, Err: err}
}

// BuildError wraps err as a packaging tool failure.
func BuildError(op, path string, err error) error {
	return &Error{Op: op, Kind: KindBuild, Path: path, Err: err}
}
