package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// BatchProcessor handles embedding generation for batches of issues.
type BatchProcessor struct {
	repo           storage.IssueRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.IssueRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process generates embeddings for a batch of issues and updates them in the
// database. Vectors are normalized after embedding to ensure compatibility
// with cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, issues []*core.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	// Extract embedding text
	texts := make([]string, len(issues))
	for i, issue := range issues {
		texts[i] = issue.EmbeddingText()
	}

	// Generate embeddings with retry
	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(issues) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(issues), len(embeddings))
	}

	// Normalize vectors and assign to issues
	for i := range issues {
		issues[i].Embedding = NormalizeVector(embeddings[i])
	}

	// Update issues in database
	_, err = bp.repo.UpdateIssues(ctx, issues...)
	if err != nil {
		return fmt.Errorf("failed to update issues: %w", err)
	}

	return nil
}
