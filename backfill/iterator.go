// Copyright 2025 CommunityWatch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package backfill

import (
	"context"
	"time"

	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

const (
	// DefaultBatchSize is the default number of issues to fetch in each batch
	DefaultBatchSize = 100
)

// IssueIterator iterates over all stored issues in batches.
type IssueIterator struct {
	repo      storage.IssueRepository
	batchSize int
}

// NewIssueIterator creates a new issue iterator.
// batchSize: number of issues to fetch in each batch (must be > 0)
func NewIssueIterator(repo storage.IssueRepository, batchSize int) *IssueIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &IssueIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach iterates over all issues in report-time order, calling fn for each
// batch. Iteration stops on first error from fn or when all issues are
// processed. Context cancellation is checked between batches.
func (it *IssueIterator) ForEach(ctx context.Context, fn func([]*core.Issue) error) error {
	// Use a very wide date range to get all issues
	startTime := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)

	// Check context before starting
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Fetch all issues using date range query
	issues, err := it.repo.GetIssuesByDateRange(ctx, startTime, endTime)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		// No issues to process
		return nil
	}

	// Process issues in batches of batchSize
	for i := 0; i < len(issues); i += it.batchSize {
		end := i + it.batchSize
		if end > len(issues) {
			end = len(issues)
		}

		batch := issues[i:end]

		// Call user function with batch
		if err := fn(batch); err != nil {
			return err
		}

		// Check context after each batch
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
