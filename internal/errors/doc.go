// Package errors defines the error taxonomy for unlocker operations.
//
// Five failure families matter to callers:
//
//   - ErrValidation / ErrInvalidDirectory: pre-flight failures, fatal,
//     guaranteed zero mutation.
//   - ErrNoTargetFound: discovery found nothing for this technique; the
//     caller may retry with a different technique.
//   - Plain I/O errors: collected per location, never retried here.
//   - ErrPermission / ErrFileInUse: surfaced with an explicit
//     elevated-privileges hint, since game directories commonly require it.
//   - ErrMissingBackup: uninstall found nothing to restore.
//
// Per-location errors never escape an install/uninstall call; only the
// aggregate result crosses the component boundary, with detail going to
// the logger.
//
// [ExitError] carries an exit code and optional suggestion to the CLI:
//
//	var exitErr *errors.ExitError
//	if errors.As(err, &exitErr) {
//	    os.Exit(exitErr.Code)
//	}
package errors
