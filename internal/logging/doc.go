// Package logging assembles structured slog loggers and formatting helpers used
// across ocingest.
//
// It owns the console and JSON handlers, level and output plumbing, per-run log
// files, and context-aware helpers so stage code tags log lines with the
// meeting ID, stage, and correlation ID without repeating itself. Retention
// pruning keeps the log directory bounded.
package logging
