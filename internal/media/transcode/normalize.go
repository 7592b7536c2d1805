package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"ocingest/internal/logging"
	"ocingest/internal/services"
)

var commandContext = exec.CommandContext

const evenCropFilter = "crop=trunc(iw/2)*2:trunc(ih/2)*2"

// Corrections is the set of fixes a file needs before ingest.
type Corrections struct {
	CropToEven    bool
	ForceDuration bool
}

// Empty reports whether no correction is needed.
func (c Corrections) Empty() bool { return !c.CropToEven && !c.ForceDuration }

func (c Corrections) String() string {
	var parts []string
	if c.CropToEven {
		parts = append(parts, "crop_to_even")
	}
	if c.ForceDuration {
		parts = append(parts, "force_duration")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// CapabilityProber answers the questions that decide which corrections apply.
type CapabilityProber interface {
	Capabilities(ctx context.Context, path string) (evenDimensions bool, positiveDuration bool, err error)
}

// Options configures a Normalizer.
type Options struct {
	FFmpeg    string
	FrameRate int
	// SourceRoot is the recording directory; outputs mirror paths relative to it.
	SourceRoot string
	// OutputRoot receives corrected files.
	OutputRoot string
	// Reuse returns an existing output without probing or re-encoding.
	Reuse bool
}

// Normalizer applies Corrections with ffmpeg.
type Normalizer struct {
	opts   Options
	prober CapabilityProber
	logger *slog.Logger
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(opts Options, prober CapabilityProber, logger *slog.Logger) *Normalizer {
	if strings.TrimSpace(opts.FFmpeg) == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	return &Normalizer{opts: opts, prober: prober, logger: logging.NewComponentLogger(logger, "transcode")}
}

// OutputPath returns where the corrected copy of path is written.
func (n *Normalizer) OutputPath(path string) string {
	rel, err := filepath.Rel(n.opts.SourceRoot, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	return filepath.Join(n.opts.OutputRoot, rel)
}

// Plan probes path and returns the corrections it needs.
func (n *Normalizer) Plan(ctx context.Context, path string) (Corrections, error) {
	if n.prober == nil {
		return Corrections{}, errors.New("transcode plan: no prober configured")
	}
	even, positive, err := n.prober.Capabilities(ctx, path)
	if err != nil {
		return Corrections{}, services.Wrap(services.ErrExternalTool, "transcode", "probe", path, err)
	}
	return Corrections{CropToEven: !even, ForceDuration: !positive}, nil
}

// Prepare returns an ingestible path for the file at path: a previously
// converted output when reuse is enabled, the original when no correction
// applies, or a freshly corrected copy.
func (n *Normalizer) Prepare(ctx context.Context, path string) (string, error) {
	if n.opts.Reuse {
		if output := n.OutputPath(path); fileExists(output) {
			n.logger.Info("converted file reused",
				logging.String("path", output),
				logging.String(logging.FieldEventType, "transcode_reused"),
			)
			return output, nil
		}
	}
	corrections, err := n.Plan(ctx, path)
	if err != nil {
		return "", err
	}
	return n.Normalize(ctx, path, corrections)
}

// Normalize applies corrections to path. Corrections run in a fixed order,
// crop then duration, each on the previous pass's output. Every pass writes
// a temporary file that is renamed over the output, so an interrupted run
// never leaves a truncated output that Reuse would accept.
func (n *Normalizer) Normalize(ctx context.Context, path string, corrections Corrections) (string, error) {
	if corrections.Empty() {
		n.logger.Debug("no correction needed", logging.String("path", path))
		return path, nil
	}
	output := n.OutputPath(path)
	if n.opts.Reuse && fileExists(output) {
		return output, nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", fmt.Errorf("create transcode directory: %w", err)
	}

	n.logger.Info("converting file",
		logging.String("path", path),
		logging.String("corrections", corrections.String()),
		logging.String(logging.FieldEventType, "transcode_started"),
	)

	input := path
	for _, pass := range n.passes(corrections) {
		tmp := filepath.Join(filepath.Dir(output), ".tmp-"+filepath.Base(output))
		args := append([]string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", input}, pass...)
		args = append(args, tmp)
		if err := run(ctx, n.opts.FFmpeg, args); err != nil {
			_ = os.Remove(tmp)
			return "", services.Wrap(services.ErrExternalTool, "transcode", "ffmpeg", path, err)
		}
		if err := os.Rename(tmp, output); err != nil {
			return "", fmt.Errorf("move converted file: %w", err)
		}
		input = output
	}
	return output, nil
}

func (n *Normalizer) passes(c Corrections) [][]string {
	var passes [][]string
	if c.CropToEven {
		passes = append(passes, []string{"-r", strconv.Itoa(n.opts.FrameRate), "-vf", evenCropFilter})
	}
	if c.ForceDuration {
		passes = append(passes, []string{"-c", "copy"})
	}
	return passes
}

func run(ctx context.Context, binary string, args []string) error {
	cmd := commandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if detail := strings.TrimSpace(string(output)); detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
