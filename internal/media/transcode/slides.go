package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"ocingest/internal/logging"
	"ocingest/internal/services"
)

// Rasterizer converts a vector slide into a PNG.
type Rasterizer interface {
	Rasterize(ctx context.Context, svgPath, pngPath string) error
}

// BuiltinRasterizer renders SVG in-process. It only draws paths and basic
// shapes, so slides that need anything else are rejected.
type BuiltinRasterizer struct{}

// ErrUnsupportedSlide marks a slide the builtin rasterizer cannot draw.
var ErrUnsupportedSlide = errors.New("slide uses unsupported svg elements")

// unsupportedElements are dropped silently by oksvg; converted presentations
// draw their glyphs and bitmaps with them.
var unsupportedElements = map[string]bool{
	"use": true, "image": true, "text": true, "tspan": true,
	"textPath": true, "pattern": true, "foreignObject": true,
}

// Rasterize draws the SVG at its viewBox size onto a white background.
func (BuiltinRasterizer) Rasterize(ctx context.Context, svgPath, pngPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		return fmt.Errorf("open slide: %w", err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("parse slide %s: %w", svgPath, err)
	}
	if root := doc.Root(); root != nil {
		if tags := unsupportedIn(root); len(tags) > 0 {
			return fmt.Errorf("%w: %s uses %s", ErrUnsupportedSlide, filepath.Base(svgPath), strings.Join(tags, ", "))
		}
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return fmt.Errorf("parse slide %s: %w", svgPath, err)
	}
	width, height := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if width <= 0 || height <= 0 {
		return fmt.Errorf("slide %s has no usable viewBox", svgPath)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1)

	out, err := os.Create(pngPath)
	if err != nil {
		return fmt.Errorf("create raster: %w", err)
	}
	if err := png.Encode(out, canvas); err != nil {
		out.Close()
		return fmt.Errorf("encode raster: %w", err)
	}
	return out.Close()
}

func unsupportedIn(root *etree.Element) []string {
	seen := map[string]bool{}
	var tags []string
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		if unsupportedElements[el.Tag] && !seen[el.Tag] {
			seen[el.Tag] = true
			tags = append(tags, el.Tag)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	return tags
}

// ImageMagickRasterizer shells out to ImageMagick's convert.
type ImageMagickRasterizer struct {
	Binary string
}

// Rasterize runs `convert <svg> <png>`.
func (r ImageMagickRasterizer) Rasterize(ctx context.Context, svgPath, pngPath string) error {
	binary := strings.TrimSpace(r.Binary)
	if binary == "" {
		binary = "convert"
	}
	return run(ctx, binary, []string{svgPath, pngPath})
}

// SlideRenderer turns slides into videos under a scratch directory.
type SlideRenderer struct {
	ffmpeg     string
	frameRate  int
	outputRoot string
	rasterizer Rasterizer
	logger     *slog.Logger
}

// NewSlideRenderer constructs a SlideRenderer writing beneath outputRoot.
func NewSlideRenderer(ffmpeg string, frameRate int, outputRoot string, rasterizer Rasterizer, logger *slog.Logger) *SlideRenderer {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	if frameRate <= 0 {
		frameRate = 30
	}
	if rasterizer == nil {
		rasterizer = ImageMagickRasterizer{}
	}
	return &SlideRenderer{
		ffmpeg:     ffmpeg,
		frameRate:  frameRate,
		outputRoot: outputRoot,
		rasterizer: rasterizer,
		logger:     logging.NewComponentLogger(logger, "slides"),
	}
}

// VideoPath returns the video location for a slide of a presentation.
func (r *SlideRenderer) VideoPath(svgPath, presentation string) string {
	name := strings.TrimSuffix(filepath.Base(svgPath), filepath.Ext(svgPath)) + ".mp4"
	return filepath.Join(r.outputRoot, presentation, "svgs", name)
}

// RenderSlideToVideo rasterizes the slide and encodes it at a fixed frame rate
// with even dimensions. An existing video is reused.
func (r *SlideRenderer) RenderSlideToVideo(ctx context.Context, svgPath, presentation string) (string, error) {
	video := r.VideoPath(svgPath, presentation)
	if fileExists(video) {
		return video, nil
	}
	if err := os.MkdirAll(filepath.Dir(video), 0o755); err != nil {
		return "", fmt.Errorf("create slide directory: %w", err)
	}

	raster := strings.TrimSuffix(video, ".mp4") + ".png"
	if err := r.rasterizer.Rasterize(ctx, svgPath, raster); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "slides", "rasterize", svgPath, err)
	}

	args := []string{
		"-loglevel", "quiet", "-nostdin", "-nostats", "-y",
		"-r", strconv.Itoa(r.frameRate),
		"-i", raster,
		"-vf", evenCropFilter,
		video,
	}
	if err := run(ctx, r.ffmpeg, args); err != nil {
		_ = os.Remove(video)
		return "", services.Wrap(services.ErrExternalTool, "slides", "encode", svgPath, err)
	}
	r.logger.Debug("slide rendered", logging.String("path", video))
	return video, nil
}
