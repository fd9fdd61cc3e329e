package storage

import (
	"context"
	"time"

	"github.com/communitywatch/communitywatch/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// IssueRepository provides operations for managing reported issues.
type IssueRepository interface {
	Repository
	// AddIssues adds one or more issues to storage.
	// For issues with ID=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Returns the issues with generated IDs and timestamps populated.
	AddIssues(ctx context.Context, issues ...*core.Issue) ([]*core.Issue, error)

	// UpdateIssues updates existing issues.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any issue doesn't exist.
	UpdateIssues(ctx context.Context, issues ...*core.Issue) ([]*core.Issue, error)

	// DeleteIssues removes issues by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any issue doesn't exist.
	DeleteIssues(ctx context.Context, ids ...core.ID) error

	// GetIssue retrieves a single issue by ID.
	// Returns ErrNotFound if the issue doesn't exist.
	GetIssue(ctx context.Context, id core.ID) (*core.Issue, error)

	// GetIssues retrieves multiple issues by their IDs.
	// Returns only the issues that exist (no error for missing issues).
	GetIssues(ctx context.Context, ids ...core.ID) ([]*core.Issue, error)

	// GetIssuesByDateRange retrieves issues within a time range.
	// Returns issues where start <= ReportedAt < end, ordered by report time.
	GetIssuesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Issue, error)

	// GetRecentIssues retrieves the N most recently reported issues.
	// Returns up to limit issues, with the most recent first.
	GetRecentIssues(ctx context.Context, limit int) ([]*core.Issue, error)

	// FindIssuesNear retrieves issues within radiusMeters of center that were
	// reported within maxAge of now. When statuses are given, only issues in
	// one of those statuses are returned. Results are ordered by report time.
	FindIssuesNear(ctx context.Context, center core.Coordinates, radiusMeters float64, maxAge time.Duration, statuses ...core.Status) ([]*core.Issue, error)
}

// UserRepository provides operations for managing reporters.
type UserRepository interface {
	Repository
	// AddUsers adds one or more users to storage.
	// For users with ID=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Returns the users with generated IDs and timestamps populated.
	AddUsers(ctx context.Context, users ...*core.User) ([]*core.User, error)

	// UpdateUsers updates existing users.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any user doesn't exist.
	UpdateUsers(ctx context.Context, users ...*core.User) ([]*core.User, error)

	// GetUser retrieves a single user by ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id core.ID) (*core.User, error)

	// GetUserByUsername finds a user by their unique username.
	// Returns ErrNotFound if no matching user exists.
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
}
