package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// IssueRepository implements storage.IssueRepository for BadgerDB.
type IssueRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.IssueRepository = (*IssueRepository)(nil)

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(backend *Backend) (*IssueRepository, error) {
	idSeq, err := backend.GetSequence(issueIDSeq)
	if err != nil {
		return nil, err
	}

	return &IssueRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *IssueRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *IssueRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddIssues adds one or more issues to storage.
func (r *IssueRepository) AddIssues(ctx context.Context, issues ...*core.Issue) ([]*core.Issue, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Generate IDs and set timestamps
		for _, issue := range issues {
			// Always generate new ID from sequence
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			issue.Id = core.ID(nextID)

			issue.InsertedAt = time.Now().UTC()
			issue.UpdatedAt = issue.InsertedAt
			if issue.ReportedAt.IsZero() {
				issue.ReportedAt = issue.InsertedAt
			}

			// Store primary record
			key := makeIssueKey(issue.Id)
			value := storage.MarshalIssue(issue)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index
			dateKey := makeIssueDateKey(issue.ReportedAt, issue.Id)
			if err := tx.Set(dateKey, storage.MarshalID(issue.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return issues, err
}

// UpdateIssues updates existing issues.
func (r *IssueRepository) UpdateIssues(ctx context.Context, issues ...*core.Issue) ([]*core.Issue, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, issue := range issues {
			key := makeIssueKey(issue.Id)

			// Read old record to detect changes
			old, err := r.readIssue(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			// Update timestamp
			issue.UpdatedAt = time.Now().UTC()

			// Store updated record
			value := storage.MarshalIssue(issue)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index if report time changed
			if !old.ReportedAt.Equal(issue.ReportedAt) {
				oldDateKey := makeIssueDateKey(old.ReportedAt, old.Id)
				if err := tx.Delete(oldDateKey); err != nil {
					return err
				}
				newDateKey := makeIssueDateKey(issue.ReportedAt, issue.Id)
				if err := tx.Set(newDateKey, storage.MarshalID(issue.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return issues, err
}

// DeleteIssues removes issues by their IDs.
func (r *IssueRepository) DeleteIssues(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeIssueKey(id)

			// Read record to get metadata for index cleanup
			issue, err := r.readIssue(tx, key)
			if err != nil {
				return err
			}
			if issue == nil {
				return storage.ErrNotFound
			}

			// Delete from date index
			dateKey := makeIssueDateKey(issue.ReportedAt, issue.Id)
			if err := tx.Delete(dateKey); err != nil {
				return err
			}

			// Delete primary record
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetIssue retrieves a single issue by ID.
func (r *IssueRepository) GetIssue(ctx context.Context, id core.ID) (*core.Issue, error) {
	var result *core.Issue
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeIssueKey(id)
		var err error
		result, err = r.readIssue(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetIssues retrieves multiple issues by their IDs.
func (r *IssueRepository) GetIssues(ctx context.Context, ids ...core.ID) ([]*core.Issue, error) {
	var result []*core.Issue
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeIssueKey(id)
			issue, err := r.readIssue(tx, key)
			if err != nil {
				return err
			}
			if issue != nil {
				result = append(result, issue)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetIssuesByDateRange retrieves issues within a time range.
func (r *IssueRepository) GetIssuesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Issue, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Issue
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialIssueDateKey(start)
		endKey := makePartialIssueDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			// Read the ID from the index
			var issueID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				issueID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full record
			issueKey := makeIssueKey(issueID)
			issue, err := r.readIssue(tx, issueKey)
			if err != nil {
				return err
			}
			if issue != nil {
				results = append(results, issue)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentIssues retrieves the N most recently reported issues.
func (r *IssueRepository) GetRecentIssues(ctx context.Context, limit int) ([]*core.Issue, error) {
	var results []*core.Issue
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent issues first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialIssueDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))

		// Prefix for issue date index keys
		prefix := []byte(issueRecordDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()

			// Check if we're still in the issue date index
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			// Read the ID from the index
			var issueID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				issueID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full record
			issueKey := makeIssueKey(issueID)
			issue, err := r.readIssue(tx, issueKey)
			if err != nil {
				return err
			}
			if issue != nil {
				results = append(results, issue)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// FindIssuesNear retrieves issues within radiusMeters of center reported
// within maxAge of now, optionally filtered by status. The date index bounds
// the scan to the recency window; distance and status are checked per issue.
func (r *IssueRepository) FindIssuesNear(ctx context.Context, center core.Coordinates, radiusMeters float64, maxAge time.Duration, statuses ...core.Status) ([]*core.Issue, error) {
	if err := core.ValidateCoordinates(center); err != nil {
		return nil, err
	}
	if radiusMeters < 0 {
		return nil, storage.ErrInvalidQuery
	}

	now := time.Now().UTC()
	start := now.Add(-maxAge)
	if maxAge <= 0 {
		start = time.Time{}
	}

	candidates, err := r.GetIssuesByDateRange(ctx, start, now.Add(1*time.Microsecond))
	if err != nil {
		return nil, err
	}

	var results []*core.Issue
	for _, issue := range candidates {
		if len(statuses) > 0 && !slices.Contains(statuses, issue.Status) {
			continue
		}
		if core.DistanceMeters(center, issue.Location) > radiusMeters {
			continue
		}
		results = append(results, issue)
	}
	return results, nil
}

// Helper methods

// readIssue reads an issue from the transaction.
func (r *IssueRepository) readIssue(tx *badger.Txn, key []byte) (*core.Issue, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var issue *core.Issue
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		issue, unmarshalErr = storage.UnmarshalIssue(val)
		return unmarshalErr
	})
	return issue, err
}
