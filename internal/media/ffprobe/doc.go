// Package ffprobe wraps ffprobe JSON output and answers the questions the
// archive pipeline asks about media files.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: integrity check plus even-dimension and duration capability probes
//
// Inspect executes ffprobe and returns the parsed Result.
package ffprobe
