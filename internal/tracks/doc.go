// Package tracks turns the media events of a recording into the ordered track
// list handed to Opencast.
//
// Candidates are gathered per source kind from the event log and the raw
// recording layout, skipping files that do not exist. The Validator then
// drops candidates that fail the ffprobe integrity check and normalizes the
// survivors, and Assemble applies the selection policy: one presenter track
// from the first valid webcam share, every other source as presentation
// tracks, all sorted stably by start time.
package tracks
