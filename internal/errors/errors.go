// Package errors defines the typed error taxonomy shared by the build
// pipeline, the file watcher and the dev server. Errors carry a Kind so
// callers can branch on failure class without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// Kind classifies an error into one of the failure classes the tool
// reports to users.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound reports a missing source document or output path.
	KindNotFound
	// KindPermissionDenied reports an unwritable output location or an
	// unbindable privileged port.
	KindPermissionDenied
	// KindMalformedInput reports source content the transformer cannot
	// process at the document level.
	KindMalformedInput
	// KindPortInUse reports a bind failure on an already-bound port.
	KindPortInUse
	// KindWatchSubscription reports that the filesystem watch API could
	// not be initialized.
	KindWatchSubscription
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPermissionDenied:
		return "permission denied"
	case KindMalformedInput:
		return "malformed input"
	case KindPortInUse:
		return "port in use"
	case KindWatchSubscription:
		return "watch subscription failed"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carrying a Kind, the failing operation
// and the path (or address) it failed on.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target matches this error by Kind, so sentinel
// comparisons like errors.Is(err, &Error{Kind: KindNotFound}) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a typed error.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Newf creates a typed error from a formatted message.
func Newf(kind Kind, op, path, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err (or anything it wraps) has the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromFS maps a filesystem error returned by the os package onto the
// taxonomy, preserving the original error for unwrapping.
func FromFS(op, path string, err error) *Error {
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return New(KindNotFound, op, path, err)
	case stderrors.Is(err, fs.ErrPermission):
		return New(KindPermissionDenied, op, path, err)
	default:
		return New(KindUnknown, op, path, err)
	}
}

// FromBind maps a socket bind error onto the taxonomy. EADDRINUSE becomes
// KindPortInUse, EACCES becomes KindPermissionDenied.
func FromBind(op, addr string, err error) *Error {
	switch {
	case stderrors.Is(err, syscall.EADDRINUSE):
		return New(KindPortInUse, op, addr, err)
	case stderrors.Is(err, syscall.EACCES):
		return New(KindPermissionDenied, op, addr, err)
	default:
		return New(KindUnknown, op, addr, err)
	}
}
