package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// IssueClassifier suggests a category and severity for an issue description.
// Implementations must be thread-safe for concurrent use.
type IssueClassifier interface {
	// ClassifyIssue analyzes an issue description and returns a suggested
	// category and severity. The suggestion is advisory: the reporter's own
	// category choice always wins.
	// Returns an error if classification fails.
	ClassifyIssue(ctx context.Context, description string) (*Classification, error)
}

// Classification is the result of classifying an issue description.
type Classification struct {
	// Category is one of the civic issue categories.
	// Example: "Pothole", "Graffiti"
	Category string

	// Severity estimates urgency on the predefined severity scale.
	// Example: "low", "medium", "high"
	Severity string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and IssueClassifier instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// IssueClassifier returns the issue classification service.
	// The returned IssueClassifier is safe for concurrent use.
	IssueClassifier() IssueClassifier

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
