// Package builderr defines the failure kinds surfaced by the build pipeline.
//
// Every component returns *Error values whose Kind is one of the sentinels
// below, so callers can branch with errors.Is regardless of how many layers
// wrapped the failure.
package builderr

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds.
var (
	ErrCatalogFetch           = errors.New("catalog fetch failed")
	ErrDestinationUnavailable = errors.New("destination unavailable")
	ErrDownload               = errors.New("download failed")
	ErrTooManyRedirects       = errors.New("too many redirects")
	ErrExtraction             = errors.New("extraction failed")
	ErrMissingDependency      = errors.New("missing dependency")
	ErrBundling               = errors.New("bundling failed")
	ErrMissingPrerequisite    = errors.New("missing prerequisite")
	ErrIconConversion         = errors.New("icon conversion failed")
	ErrRename                 = errors.New("rename failed")
	ErrMetadata               = errors.New("metadata patch failed")
)

// Error carries a failure kind plus the context needed to diagnose it
// without re-running in debug mode.
type Error struct {
	Kind   error
	Op     string
	Path   string
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	} else {
		b.WriteString(e.Kind.Error())
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " %s", e.URL)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// parentKind lists kinds that are refinements of a broader one.
var parentKind = map[error]error{
	ErrTooManyRedirects:  ErrDownload,
	ErrMissingDependency: ErrBundling,
}

// Is reports whether target is this error's kind or the broader kind it
// refines.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	parent, ok := parentKind[e.Kind]
	return ok && target == parent
}

// New returns an Error of the given kind.
func New(kind error, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// WithPath returns an Error of the given kind annotated with a path.
func WithPath(kind error, op, path string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

// WithURL returns an Error of the given kind annotated with a URL.
func WithURL(kind error, op, url string, cause error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: cause}
}

// KindOf returns the failure kind of err, or nil when err does not carry one.
func KindOf(err error) error {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return nil
}
