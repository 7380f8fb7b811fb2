// Package pipeline runs the packmap phases in sequence.
//
// A Pipeline executes Steps over a shared *Run: extraction, cache write or
// cache read, snapshot persistence, aggregation, rendering and the run log.
// Each phase only starts once the previous one has produced its full output.
//
// Extraction is the only phase that fans out. The Extractor fetches each
// framework page with errgroup under a concurrency limit, keeps results in
// registry order, and turns per-framework failures into ExtractionFailure
// values so the remaining frameworks still produce data.
package pipeline
