package tracks

import (
	"context"
	"log/slog"

	"ocingest/internal/eventlog"
	"ocingest/internal/logging"
	"ocingest/internal/timeline"
)

// SlideRenderer turns a slide image into a video.
type SlideRenderer interface {
	RenderSlideToVideo(ctx context.Context, svgPath, presentation string) (string, error)
}

// Sources groups candidates by capture kind in collection order.
type Sources struct {
	Webcam    []Candidate
	Audio     []Candidate
	DeskShare []Candidate
	Slides    []Candidate
}

// Count returns the number of candidates across all kinds.
func (s Sources) Count() int {
	return len(s.Webcam) + len(s.Audio) + len(s.DeskShare) + len(s.Slides)
}

// Gather collects candidates for every source kind from the event log.
func Gather(log *eventlog.Log, layout Layout) Sources {
	return Sources{
		Webcam:    CollectTimestampedFiles(log.Events, eventlog.KindWebcamShareStarted, layout.WebcamDir()),
		Audio:     CollectTimestampedFiles(log.Events, eventlog.KindAudioStarted, layout.AudioDir()),
		DeskShare: CollectTimestampedFiles(log.Events, eventlog.KindDeskShareStarted, layout.DeskShareDir()),
		Slides: CollectSlidePresentationFiles(log.Events,
			[]eventlog.Kind{eventlog.KindPresentationShared, eventlog.KindSlideChanged},
			layout.PresentationDir()),
	}
}

// Assembler applies the selection policy to gathered sources.
type Assembler struct {
	validator *Validator
	slides    SlideRenderer
	logger    *slog.Logger
}

// NewAssembler constructs an Assembler. A nil slide renderer drops slide
// candidates, since still images cannot be ingested as tracks.
func NewAssembler(validator *Validator, slides SlideRenderer, logger *slog.Logger) *Assembler {
	return &Assembler{
		validator: validator,
		slides:    slides,
		logger:    logging.NewComponentLogger(logger, "tracks"),
	}
}

// RenderSlides replaces every slide candidate's path with a rendered video.
// Rendering is sequential because repeated slides share an output.
func (a *Assembler) RenderSlides(ctx context.Context, slides []Candidate) ([]Candidate, error) {
	if a.slides == nil {
		return nil, nil
	}
	out := make([]Candidate, 0, len(slides))
	for _, candidate := range slides {
		video, err := a.slides.RenderSlideToVideo(ctx, candidate.Path, candidate.PresentationGroup)
		if err != nil {
			return nil, err
		}
		candidate.Path = video
		out = append(out, candidate)
	}
	return out, nil
}

// Assemble validates sources and returns the ordered track list. Only the
// first valid webcam share becomes a presenter track; audio, desk-share, and
// slide videos become presentation tracks. An empty track list is not an
// error.
func (a *Assembler) Assemble(ctx context.Context, sources Sources, bounds timeline.Bounds) (Result, error) {
	var result Result

	slides, err := a.RenderSlides(ctx, sources.Slides)
	if err != nil {
		return Result{}, err
	}

	presenter, rejected, err := a.selectPresenter(ctx, sources.Webcam, bounds)
	if err != nil {
		return Result{}, err
	}
	result.Tracks = append(result.Tracks, presenter...)
	result.Rejected = append(result.Rejected, rejected...)

	for _, group := range [][]Candidate{sources.Audio, sources.DeskShare, slides} {
		batch, err := a.validator.ValidateAndCollect(ctx, group, FlavorPresentation, bounds)
		if err != nil {
			return Result{}, err
		}
		result.Tracks = append(result.Tracks, batch.Tracks...)
		result.Rejected = append(result.Rejected, batch.Rejected...)
	}

	SortByStart(result.Tracks)
	a.logger.Info("tracks assembled",
		logging.Int("tracks", len(result.Tracks)),
		logging.Int("rejected", len(result.Rejected)),
		logging.String(logging.FieldEventType, "tracks_assembled"),
	)
	return result, nil
}

// selectPresenter validates webcam shares in collection order and stops at the
// first valid one. Shares after it are not inspected.
func (a *Assembler) selectPresenter(ctx context.Context, webcams []Candidate, bounds timeline.Bounds) ([]Track, []Rejection, error) {
	var rejected []Rejection
	for i, candidate := range webcams {
		batch, err := a.validator.ValidateAndCollect(ctx, []Candidate{candidate}, FlavorPresenter, bounds)
		if err != nil {
			return nil, nil, err
		}
		rejected = append(rejected, batch.Rejected...)
		if len(batch.Tracks) == 0 {
			continue
		}
		for _, extra := range webcams[i+1:] {
			a.logger.Info("additional webcam share ignored",
				logging.String("path", extra.Path),
				logging.String(logging.FieldDecisionType, "presenter_selection"),
			)
			rejected = append(rejected, Rejection{Candidate: extra, Reason: ReasonExtraPresenter})
		}
		return batch.Tracks, rejected, nil
	}
	return nil, rejected, nil
}
