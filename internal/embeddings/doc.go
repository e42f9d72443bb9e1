// Package embeddings turns task descriptions into vectors for semantic
// deduplication.
//
// Providers are FastEmbed (local ONNX models, cgo builds only) and TEI (a
// text-embeddings-inference HTTP service). The "disabled" provider reports
// ErrNotConfigured so callers can fall back to lexical comparison.
//
// NewProvider wraps real backends in Instrumented, which emits an
// "embeddings.embed" span and duration, batch size and error metrics, and
// then in an LRU cache keyed by text when CacheSize is set.
package embeddings
