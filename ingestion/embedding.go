package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// embeddingProcessor generates embeddings for reported issues.
type embeddingProcessor struct {
	issueRepository storage.IssueRepository
	embedder        ai.Embedder
	lastID          core.ID
	logger          *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(issueRepository storage.IssueRepository, embedder ai.Embedder, logger *slog.Logger) (processor, error) {
	if issueRepository == nil {
		return nil, fmt.Errorf("issue repository required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		issueRepository: issueRepository,
		embedder:        embedder,
		logger:          logger.With("processor", "embeddings"),
	}, nil
}

// process generates embeddings for the specified issues. Re-reading the
// records inside the task means an issue edited between report and embedding
// is embedded from its latest text.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	ep.logger.Info("processing issues for embeddings", "issues", len(ids))

	// Sort first so checkpointing works correctly
	slices.Sort(ids)

	issues, err := ep.issueRepository.GetIssues(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving issues", "err", err)
		return err
	}
	if len(issues) == 0 {
		return nil
	}

	texts := make([]string, len(issues))
	for i, issue := range issues {
		texts[i] = issue.EmbeddingText()
	}

	ep.logger.Debug("generating embeddings for issues", "issues", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}

	if len(embeddings) != len(issues) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(issues), len(embeddings))
	}

	for i := range embeddings {
		issues[i].Embedding = embeddings[i]
	}

	updated, err := ep.issueRepository.UpdateIssues(ctx, issues...)
	if err != nil {
		return err
	}

	highestID := updated[len(updated)-1].Id
	if highestID > ep.lastID {
		ep.lastID = highestID
	}

	return nil
}

// checkpoint saves the processor's current state.
// Currently unimplemented - reserved for future checkpointing support.
func (ep *embeddingProcessor) checkpoint() error {
	// TODO: Implement checkpoint storage via repository
	return nil
}
