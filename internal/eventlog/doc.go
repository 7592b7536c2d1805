// Package eventlog parses a recording's append-only events.xml into typed
// events plus the meeting identity and metadata that accompany them.
//
// The log is treated as an unordered set: Parse keeps events in stored order,
// and consumers filter by Kind and sort by TimestampUTC themselves.
package eventlog
