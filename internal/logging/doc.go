// Package logging assembles structured slog loggers and formatting helpers.
//
// It owns the console and JSON handlers, level parsing and the optional log
// file copy, and exposes context-aware helpers so stage code automatically
// tags records with run IDs, stage names, media paths and engines. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
