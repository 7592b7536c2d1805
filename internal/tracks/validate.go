package tracks

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ocingest/internal/logging"
	"ocingest/internal/media/ffprobe"
	"ocingest/internal/timeline"
)

// IntegrityChecker decides whether a file is an ingestible media container.
type IntegrityChecker interface {
	Check(ctx context.Context, path string) ffprobe.Verdict
}

// Preparer returns an ingestible path for a video file, converting it first
// when needed.
type Preparer interface {
	Prepare(ctx context.Context, path string) (string, error)
}

// Rejection reasons.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
	// ReasonExtraPresenter marks valid webcam shares beyond the first.
	ReasonExtraPresenter = "extra_presenter"
)

// Rejection records a candidate that did not become a track.
type Rejection struct {
	Candidate Candidate
	Reason    string
	Detail    string
}

// Result is the outcome of validating a batch of candidates.
type Result struct {
	Tracks   []Track
	Rejected []Rejection
}

// Validator screens candidates with an IntegrityChecker.
type Validator struct {
	checker  IntegrityChecker
	preparer Preparer
	workers  int
	logger   *slog.Logger
}

// NewValidator constructs a Validator running up to workers checks at once.
// A nil preparer leaves video paths untouched.
func NewValidator(checker IntegrityChecker, preparer Preparer, workers int, logger *slog.Logger) *Validator {
	if workers <= 0 {
		workers = 1
	}
	return &Validator{
		checker:  checker,
		preparer: preparer,
		workers:  workers,
		logger:   logging.NewComponentLogger(logger, "tracks"),
	}
}

type outcome struct {
	track     Track
	rejection *Rejection
}

// ValidateAndCollect checks every candidate and converts survivors to tracks
// of the given flavor with start times relative to bounds. Missing and invalid
// files are dropped; they never fail the batch. Webcam and desk-share files
// are passed through the Preparer after they validate; a converted file is
// checked again and dropped if it is broken, and a preparation failure fails
// the batch. Results keep candidate order.
func (v *Validator) ValidateAndCollect(ctx context.Context, candidates []Candidate, flavor Flavor, bounds timeline.Bounds) (Result, error) {
	outcomes := make([]outcome, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, candidate := range candidates {
		g.Go(func() error {
			res, err := v.validateOne(gctx, candidate, flavor, bounds)
			if err != nil {
				return err
			}
			outcomes[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var result Result
	for _, o := range outcomes {
		if o.rejection != nil {
			result.Rejected = append(result.Rejected, *o.rejection)
			continue
		}
		result.Tracks = append(result.Tracks, o.track)
	}
	return result, nil
}

func (v *Validator) validateOne(ctx context.Context, candidate Candidate, flavor Flavor, bounds timeline.Bounds) (outcome, error) {
	if !isFile(candidate.Path) {
		v.logger.Debug("track file missing", logging.String("path", candidate.Path))
		return outcome{rejection: &Rejection{Candidate: candidate, Reason: ReasonMissing}}, nil
	}
	if rejection := v.check(ctx, candidate, candidate.Path, ""); rejection != nil {
		return outcome{rejection: rejection}, nil
	}

	path := candidate.Path
	if v.preparer != nil && needsPreparation(candidate.Source) {
		prepared, err := v.preparer.Prepare(ctx, path)
		if err != nil {
			return outcome{}, err
		}
		if prepared != path {
			if rejection := v.check(ctx, candidate, prepared, "converted output: "); rejection != nil {
				return outcome{rejection: rejection}, nil
			}
		}
		path = prepared
	}
	return outcome{track: Track{
		Flavor:            flavor,
		Source:            candidate.Source,
		StartTimeMs:       bounds.Relative(candidate.TimestampMs),
		Path:              path,
		PresentationGroup: candidate.PresentationGroup,
	}}, nil
}

// check runs the integrity check on path and returns a rejection for the
// candidate when it fails.
func (v *Validator) check(ctx context.Context, candidate Candidate, path, detailPrefix string) *Rejection {
	verdict := v.checker.Check(ctx, path)
	if verdict.Valid {
		return nil
	}
	logging.WarnWithContext(v.logger, "track failed integrity check",
		"track_invalid",
		logging.String("path", path),
		logging.String("source", string(candidate.Source)),
		logging.String("reason", verdict.Reason),
		logging.String(logging.FieldErrorHint, "inspect the file with ffprobe; it will not be ingested"),
		logging.String(logging.FieldImpact, "track dropped from package"),
	)
	return &Rejection{Candidate: candidate, Reason: ReasonInvalid, Detail: detailPrefix + verdict.Reason}
}

func needsPreparation(source Source) bool {
	return source == SourceWebcam || source == SourceDeskShare
}
