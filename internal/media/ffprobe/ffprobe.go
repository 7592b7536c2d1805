package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// probeArgs precede the input path on every ffprobe invocation.
var probeArgs = []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--"}

// Result is the subset of ffprobe's JSON report the prober reads.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one elementary stream of a recording.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format holds container metadata. ffprobe reports numbers as strings and
// uses "N/A" when a value is unknown.
type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// Inspect runs ffprobe on path and decodes its report.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe: no input path")
	}

	args := append(append([]string{}, probeArgs...), path)
	out, err := commandContext(ctx, binary, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(string(exitErr.Stderr)); msg != "" {
				return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, msg)
			}
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var result Result
	if err := json.Unmarshal(out, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: decode report: %w", path, err)
	}
	return result, nil
}

// VideoStreamCount counts video streams.
func (r Result) VideoStreamCount() int { return len(r.streamsOf("video")) }

// AudioStreamCount counts audio streams.
func (r Result) AudioStreamCount() int { return len(r.streamsOf("audio")) }

// PrimaryVideo returns the first video stream.
func (r Result) PrimaryVideo() (Stream, bool) {
	video := r.streamsOf("video")
	if len(video) == 0 {
		return Stream{}, false
	}
	return video[0], true
}

func (r Result) streamsOf(kind string) []Stream {
	var matched []Stream
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, kind) {
			matched = append(matched, s)
		}
	}
	return matched
}

// DurationSeconds is the container duration. Unknown durations read as 0 and
// unparsable ones as NaN.
func (r Result) DurationSeconds() float64 {
	return number(r.Format.Duration)
}

// SizeBytes is the container size, clamped to 0 when unknown or invalid.
func (r Result) SizeBytes() int64 {
	size := number(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func number(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
