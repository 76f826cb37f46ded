package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Exit codes following standard Unix conventions.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitUser indicates a user-related error (bad directory, invalid ids, etc.).
	ExitUser = 1

	// ExitSystem indicates a system-related error (I/O, permissions, locked files).
	ExitSystem = 2
)

// Sentinel errors for unlocker operations. Callers match them with errors.Is.
var (
	// ErrValidation indicates a pre-flight check failed. No filesystem
	// mutation has happened when this error is returned.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDirectory indicates the game directory does not exist,
	// is not a directory, or is not readable.
	ErrInvalidDirectory = errors.New("invalid game directory")

	// ErrNoTargetFound indicates no target binary for the technique exists
	// anywhere in the game tree. Fatal for that technique only; the caller
	// may retry with a different one.
	ErrNoTargetFound = errors.New("no target binary found")

	// ErrPermission indicates the operating system denied a file operation.
	// Game directories commonly require elevated privileges on the host OS.
	ErrPermission = errors.New("permission denied")

	// ErrFileInUse indicates the target binary is held open by a running
	// process (usually the game itself) and cannot be overwritten.
	ErrFileInUse = errors.New("file is in use")

	// ErrMissingBackup indicates an uninstall found no backup artifact for
	// an otherwise-expected location.
	ErrMissingBackup = errors.New("no backup found")

	// ErrPayloadMissing indicates the local directory of pre-fetched
	// replacement binaries is absent or lacks the required DLL.
	ErrPayloadMissing = errors.New("replacement binary not available")

	// ErrUnknownUnlocker indicates the requested unlocker type is not one
	// of the supported variants.
	ErrUnknownUnlocker = errors.New("unknown unlocker type")
)

// SuggestElevate is the hint attached to permission failures.
const SuggestElevate = "Retry with elevated privileges (run as administrator)"

// Re-exports from cockroachdb/errors so callers only import this package.
var (
	New    = errors.New
	Newf   = errors.Newf
	Wrap   = errors.Wrap
	Wrapf  = errors.Wrapf
	Is     = errors.Is
	As     = errors.As
	Mark   = errors.Mark
	Unwrap = errors.Unwrap
)

// ExitError wraps an error with an exit code and optional suggestion for
// the CLI. It supports unwrapping via errors.Unwrap.
type ExitError struct {
	Err        error
	Code       int
	Suggestion string
}

// NewExitError creates an ExitError with the given underlying error and code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// NewUserError creates an ExitError with ExitUser code and a suggestion.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitUser, Suggestion: suggestion}
}

// NewSystemError creates an ExitError with ExitSystem code and a suggestion.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitSystem, Suggestion: suggestion}
}

// Error returns the message of the underlying error.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}
