// Package services defines shared utilities consumed by the archive pipeline
// stages and the Opencast integration.
//
// Key responsibilities:
//   - Context helpers that stamp meeting IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry the
//     stage and operation that produced them, and Outcome to classify a
//     finished run.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
