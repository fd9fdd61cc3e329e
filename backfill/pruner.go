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

	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// Pruner deletes issues older than a retention window.
// Resolved reports from years past add noise to search and nothing to
// duplicate detection, which never looks past its own recency window.
type Pruner struct {
	repo      storage.IssueRepository
	retention time.Duration
	progress  io.Writer
}

// NewPruner creates a new pruner.
// retention: issues reported longer ago than this are deleted (must be > 0)
// progress: where to write progress output (typically os.Stderr)
func NewPruner(repo storage.IssueRepository, retention time.Duration, progress io.Writer) (*Pruner, error) {
	if retention <= 0 {
		return nil, ErrInvalidRetention
	}

	return &Pruner{
		repo:      repo,
		retention: retention,
		progress:  progress,
	}, nil
}

// Run deletes all issues reported before the retention cutoff.
// Returns the number of issues deleted.
func (p *Pruner) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-p.retention)
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

	expired, err := p.repo.GetIssuesByDateRange(ctx, epoch, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query expired issues: %w", err)
	}

	if len(expired) == 0 {
		fmt.Fprintf(p.progress, "No issues older than %v\n", p.retention)
		return 0, nil
	}

	ids := make([]core.ID, len(expired))
	for i, issue := range expired {
		ids[i] = issue.Id
	}

	if err := p.repo.DeleteIssues(ctx, ids...); err != nil {
		return 0, fmt.Errorf("failed to delete expired issues: %w", err)
	}

	fmt.Fprintf(p.progress, "Pruned %d issues older than %v\n", len(ids), p.retention)
	return len(ids), nil
}
