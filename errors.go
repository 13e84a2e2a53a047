package fabpack

import (
	. "github.com/warpfork/go-errcat"
)

/*
	ErrorCategory is the grouping type for all errors raised by this
	module.  Every error returned from a public operation carries exactly
	one of the constants below as its errcat category; public operations
	enforce this with `RequireErrorHasCategory` on their way out.
*/
type ErrorCategory string

const (
	// ErrUsage means the operation was called wrong: unparsable arguments,
	// conflicting options, etc.  User error; retrying without change is
	// pointless.
	ErrUsage = ErrorCategory("fabpack-usage-error")

	// ErrNotFound means the source of the operation is missing or of the
	// wrong type: archiving a path that is not an existing directory, or
	// extracting a path that is not an existing file.
	ErrNotFound = ErrorCategory("fabpack-not-found")

	// ErrIO covers any read or write failure during traversal, archive
	// writing, or extraction.  The whole operation aborts; any bytes
	// already written must be treated as unusable.
	ErrIO = ErrorCategory("fabpack-io-error")

	// ErrPattern means an ignore-file line translated into a glob that
	// does not compile.
	ErrPattern = ErrorCategory("fabpack-pattern-error")

	// ErrCancelled means the call's context was cancelled part-way
	// through a walk or extraction.
	ErrCancelled = ErrorCategory("fabpack-cancelled")
)

// ExitCode is the process exit status the CLI maps results onto.
type ExitCode int

const (
	ExitSuccess   ExitCode = 0
	ExitError     ExitCode = 1 // any error without a more specific mapping
	ExitUsage     ExitCode = 2
	ExitNotFound  ExitCode = 4
	ExitIO        ExitCode = 5
	ExitPattern   ExitCode = 6
	ExitCancelled ExitCode = 7
)

// ExitCodeForError maps an error's category to the CLI exit status.
func ExitCodeForError(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	switch Category(err) {
	case ErrUsage:
		return ExitUsage
	case ErrNotFound:
		return ExitNotFound
	case ErrIO:
		return ExitIO
	case ErrPattern:
		return ExitPattern
	case ErrCancelled:
		return ExitCancelled
	default:
		return ExitError
	}
}
