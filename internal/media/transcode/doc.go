// Package transcode prepares media files for ingest with ffmpeg.
//
// Normalizer applies the two corrections a recorded video may need (crop to
// even dimensions, remux to repair a missing duration) into a scratch tree
// that mirrors the recording layout. SlideRenderer turns an SVG slide into a
// short fixed-framerate video through a PNG raster.
package transcode
