// Package ingestion provides pipeline orchestration for reported issues.
//
// The Pipeline type manages the intake workflow for civic reports, including:
//   - Validating and adding issues to storage
//   - Crediting reporter reputation
//   - Generating embeddings asynchronously
//   - Suggesting categories for uncategorized reports asynchronously
//
// Processing is performed concurrently using worker pools to maximize throughput.
// Errors during async processing are logged but do not fail the report.
package ingestion
