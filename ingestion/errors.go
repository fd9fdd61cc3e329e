package ingestion

import "errors"

var (
	// ErrIssueRepositoryRequired is returned when an issue repository is not provided.
	ErrIssueRepositoryRequired = errors.New("issue repository required")

	// ErrUserRepositoryRequired is returned when a user repository is not provided.
	ErrUserRepositoryRequired = errors.New("user repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrUnknownReporter is returned when a report names a reporter that does not exist.
	ErrUnknownReporter = errors.New("unknown reporter")
)
