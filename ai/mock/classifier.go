package mock

import (
	"context"
	"strings"

	"github.com/communitywatch/communitywatch/ai"
)

// MockIssueClassifier is a test double for ai.IssueClassifier.
// It allows custom behavior injection via function fields.
type MockIssueClassifier struct {
	// ClassifyIssueFunc is called by ClassifyIssue if set.
	// If nil, uses default keyword-based behavior.
	ClassifyIssueFunc func(ctx context.Context, description string) (*ai.Classification, error)

	callCount int
}

// NewMockIssueClassifier creates a mock classifier with default keyword-based behavior.
// Note: Returns concrete type to allow test assertions via GetMockClassifier().
func NewMockIssueClassifier() *MockIssueClassifier {
	return &MockIssueClassifier{}
}

// ClassifyIssue returns a deterministic classification based on keywords.
func (m *MockIssueClassifier) ClassifyIssue(ctx context.Context, description string) (*ai.Classification, error) {
	m.callCount++

	if m.ClassifyIssueFunc != nil {
		return m.ClassifyIssueFunc(ctx, description)
	}

	// Default: naive keyword matching, good enough for deterministic tests
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "pothole"):
		return &ai.Classification{Category: "Pothole", Severity: "high"}, nil
	case strings.Contains(lower, "graffiti") || strings.Contains(lower, "paint"):
		return &ai.Classification{Category: "Graffiti", Severity: "low"}, nil
	case strings.Contains(lower, "light") || strings.Contains(lower, "lamp"):
		return &ai.Classification{Category: "Streetlight", Severity: "medium"}, nil
	case strings.Contains(lower, "litter") || strings.Contains(lower, "trash"):
		return &ai.Classification{Category: "Litter", Severity: "medium"}, nil
	default:
		return &ai.Classification{Category: "Other", Severity: "low"}, nil
	}
}

// CallCount returns the number of times ClassifyIssue was called.
func (m *MockIssueClassifier) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockIssueClassifier) Reset() {
	m.callCount = 0
	m.ClassifyIssueFunc = nil
}
