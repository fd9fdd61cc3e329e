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
	"fmt"
	"io"
	"time"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// Config holds configuration for the backfill operation.
type Config struct {
	// BatchSize is the number of issues to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of issues)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// ReembedAll re-embeds every issue instead of only those missing an
	// embedding. Used after switching embedding models.
	ReembedAll bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Backfiller generates embeddings for stored issues that lack them.
// Issues reported while the embedding service was down stay matchable-less
// until this task runs.
type Backfiller struct {
	repo      storage.IssueRepository
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *IssueIterator
}

// NewBackfiller creates a new backfiller.
// progress: where to write progress output (typically os.Stderr)
func NewBackfiller(repo storage.IssueRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Backfiller {
	if config == nil {
		config = DefaultConfig()
	}

	processor := NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay)
	iterator := NewIssueIterator(repo, config.BatchSize)

	return &Backfiller{
		repo:      repo,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: processor,
		iterator:  iterator,
	}
}

// Run executes the backfill operation.
// Issues without embeddings (or all issues, with ReembedAll) are embedded
// in batches. Progress is reported to the configured writer.
func (b *Backfiller) Run(ctx context.Context) error {
	// First, count the issues that need embedding
	startTime := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)

	allIssues, err := b.repo.GetIssuesByDateRange(ctx, startTime, endTime)
	if err != nil {
		return fmt.Errorf("failed to query issues: %w", err)
	}

	total := 0
	for _, issue := range allIssues {
		if b.needsEmbedding(issue) {
			total++
		}
	}

	if total == 0 {
		fmt.Fprintf(b.progress, "No issues need embedding (%d issues checked)\n", len(allIssues))
		return nil
	}

	fmt.Fprintf(b.progress, "Starting backfill of %d issues (batch size: %d)\n",
		total, b.config.BatchSize)

	// Initialize progress tracker
	tracker := NewProgressTracker(b.progress, total, b.config.ReportInterval)
	tracker.Start()

	processed := 0

	// Process issues in batches, embedding only those that need it
	err = b.iterator.ForEach(ctx, func(issues []*core.Issue) error {
		pending := make([]*core.Issue, 0, len(issues))
		for _, issue := range issues {
			if b.needsEmbedding(issue) {
				pending = append(pending, issue)
			}
		}
		if len(pending) == 0 {
			return nil
		}

		// Process this batch
		if err := b.processor.Process(ctx, pending); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		// Update progress
		processed += len(pending)
		tracker.Update(processed)

		return nil
	})

	if err != nil {
		return err
	}

	// Finish progress tracking
	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(b.progress, "Backfill complete. Processed %d issues in %v (%.1f issues/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}

// needsEmbedding reports whether an issue should be embedded in this run.
func (b *Backfiller) needsEmbedding(issue *core.Issue) bool {
	return b.config.ReembedAll || !issue.HasEmbedding()
}
