// Package opensrcerr provides the tagged-union error type shared by every
// opensrc-mcp component. Every fallible operation in this module returns
// (T, error) built from New/Wrap here rather than an ad-hoc error string, so
// the MCP server can map a Kind to a stable textual reply without inspecting
// error chains built by unrelated packages.
package opensrcerr

import "fmt"

// Kind discriminates the error taxonomy from the specification's error
// handling design. Callers should prefer errors.As against *Error and
// switch on Kind rather than matching on Error() text.
type Kind string

const (
	KindUnsupportedPlatform      Kind = "UnsupportedPlatform"
	KindVectorExtensionMissing   Kind = "VectorExtensionMissing"
	KindVectorExtensionUnavail   Kind = "VectorExtensionNotAvailable"
	KindDatabaseError            Kind = "DatabaseError"
	KindSourceNotFound           Kind = "SourceNotFound"
	KindPathTraversal            Kind = "PathTraversal"
	KindFileReadError            Kind = "FileReadError"
	KindEmbedderNotReady         Kind = "EmbedderNotReady"
	KindEmbedError               Kind = "EmbedError"
	KindFetchError                Kind = "FetchError"
	KindCodeExecutionError       Kind = "CodeExecutionError"
	KindExecutionTimeout         Kind = "ExecutionTimeout"
	KindInvalidSpec              Kind = "InvalidSpec"
	KindInternal                 Kind = "Internal"
)

// Error is the single structured error type for the module. Op names the
// component/operation that raised it (e.g. "vectorstore.insertBatch") so log
// lines are greppable without parsing the message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches by Kind, mirroring the teacher's code-based Is() so
// errors.Is(err, opensrcerr.New(opensrcerr.KindPathTraversal, "", "")) works
// as a sentinel-style check without allocating a full message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error with no cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an Error from an underlying cause. Returns nil if err is nil,
// so call sites can write `return opensrcerr.Wrap(...)` unconditionally.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: err.Error(), Cause: err}
}

// KindOf extracts the Kind from err, or KindInternal if err is not (or does
// not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// as is a tiny local errors.As to avoid importing errors just for this.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
