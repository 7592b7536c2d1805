package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Verdict explains an integrity decision.
type Verdict struct {
	Valid  bool
	Reason string
}

// Prober answers integrity and capability questions about media files.
type Prober struct {
	binary  string
	inspect func(ctx context.Context, binary, path string) (Result, error)
}

// NewProber returns a Prober that shells out to the given ffprobe binary.
func NewProber(binary string) *Prober {
	return &Prober{binary: binary, inspect: Inspect}
}

// Check inspects path and reports whether it is an ingestible container.
// Missing, empty, unreadable, and corrupt files are invalid; none of these
// conditions is an error.
func (p *Prober) Check(ctx context.Context, path string) Verdict {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Verdict{Reason: "file is missing"}
	case err != nil:
		return Verdict{Reason: fmt.Sprintf("stat failed: %v", err)}
	case info.IsDir():
		return Verdict{Reason: "path is a directory"}
	case info.Size() == 0:
		return Verdict{Reason: "file is empty"}
	}

	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		return Verdict{Reason: err.Error()}
	}
	if result.VideoStreamCount() == 0 && result.AudioStreamCount() == 0 {
		return Verdict{Reason: "no audio or video streams"}
	}
	return Verdict{Valid: true}
}

// IsValidMedia reports whether path passes the integrity check.
func (p *Prober) IsValidMedia(ctx context.Context, path string) bool {
	return p.Check(ctx, path).Valid
}

// HasEvenDimensions reports whether the first video stream has an even width
// and height. Files without video have nothing to crop and report true.
func (p *Prober) HasEvenDimensions(ctx context.Context, path string) (bool, error) {
	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		return false, err
	}
	return evenDimensions(result), nil
}

// HasPositiveDuration reports whether the container declares a duration
// greater than zero.
func (p *Prober) HasPositiveDuration(ctx context.Context, path string) (bool, error) {
	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		return false, err
	}
	return positiveDuration(result), nil
}

// Capabilities answers both capability questions with a single probe.
func (p *Prober) Capabilities(ctx context.Context, path string) (even bool, positive bool, err error) {
	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		return false, false, err
	}
	return evenDimensions(result), positiveDuration(result), nil
}

func evenDimensions(result Result) bool {
	video, ok := result.PrimaryVideo()
	if !ok {
		return true
	}
	return video.Width%2 == 0 && video.Height%2 == 0
}

func positiveDuration(result Result) bool {
	return result.DurationSeconds() > 0
}
