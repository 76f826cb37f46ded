// Package logging provides structured logging for the smd CLI built on
// log/slog.
//
// Two output formats are supported: a TTY-optimized text handler with
// color support, and JSON for machine consumption. Per-location install
// and uninstall detail is reported through these loggers; the engine
// itself only returns aggregate results.
package logging
