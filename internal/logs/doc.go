// Package logs reads ocingest's own log files for the `ocingest logs`
// command: the last lines of the shared log or a per-recording run log, and
// follow mode that polls for appended lines until the context ends.
//
// Reads are bounded: only the requested tail is held in memory, and follow
// mode resumes from a byte offset so each poll reads only new data.
package logs
