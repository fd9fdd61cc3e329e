package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// categoryProcessor suggests categories for issues filed under "Other".
// Reporters often leave the category at the default; the classifier reads
// the description and reassigns the issue when it names a specific category.
type categoryProcessor struct {
	issueRepository storage.IssueRepository
	classifier      ai.IssueClassifier
	lastID          core.ID
	logger          *slog.Logger
}

var _ processor = (*categoryProcessor)(nil)

// newCategoryProcessor creates a new category processor.
func newCategoryProcessor(issueRepository storage.IssueRepository, classifier ai.IssueClassifier, logger *slog.Logger) (processor, error) {
	if issueRepository == nil {
		return nil, fmt.Errorf("issue repository required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("issue classifier required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &categoryProcessor{
		issueRepository: issueRepository,
		classifier:      classifier,
		logger:          logger.With("processor", "categories"),
	}, nil
}

// process classifies the specified issues and reassigns categories.
// A classification failure for one issue does not stop the rest; the
// combined errors are returned after the batch completes.
func (cp *categoryProcessor) process(ctx context.Context, ids ...core.ID) error {
	cp.logger.Info("processing issues for category suggestions", "issues", len(ids))

	// Sort to ensure checkpointing works correctly
	slices.Sort(ids)

	issues, err := cp.issueRepository.GetIssues(ctx, ids...)
	if err != nil {
		return err
	}

	var classificationErrors []error
	var reassigned []*core.Issue
	for issueIdx, issue := range issues {
		// Only uncategorized issues with a description are worth a model call
		if issue.Category != core.CategoryOther || issue.Description == "" {
			continue
		}

		classification, err := cp.classifier.ClassifyIssue(ctx, issue.Description)
		if err != nil {
			classificationErrors = append(classificationErrors, fmt.Errorf("issue %d classification failed: %w", issueIdx, err))
			continue
		}

		suggested := core.Category(classification.Category)
		if suggested == core.CategoryOther || core.ValidateCategory(suggested) != nil {
			continue
		}

		issue.Category = suggested
		reassigned = append(reassigned, issue)
	}

	if len(reassigned) > 0 {
		if _, err := cp.issueRepository.UpdateIssues(ctx, reassigned...); err != nil {
			classificationErrors = append(classificationErrors, fmt.Errorf("update issues failed: %w", err))
		} else {
			cp.lastID = reassigned[len(reassigned)-1].Id
		}
	}

	if len(classificationErrors) > 0 {
		return errors.Join(classificationErrors...)
	}

	return nil
}

// checkpoint saves the processor's current state.
// Currently unimplemented - reserved for future checkpointing support.
func (cp *categoryProcessor) checkpoint() error {
	// TODO: Implement checkpoint storage via repository
	return nil
}
