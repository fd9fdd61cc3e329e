// Package backfill provides maintenance tasks for the issue store.
//
// The Backfiller embeds issues that were reported while the embedding
// service was unavailable, with batch processing, progress tracking, retry
// logic with exponential backoff, and vector normalization to ensure
// compatibility with cosine similarity search. The Pruner deletes issues
// older than a retention window.
package backfill
