package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// reportReputationPoints is credited to a reporter for each filed issue.
const reportReputationPoints = 5

// Pipeline orchestrates the intake of reported issues.
// Reports are validated and persisted synchronously; embedding generation
// and category suggestion run afterwards on worker pools.
type Pipeline struct {
	issueRepository storage.IssueRepository
	userRepository  storage.UserRepository
	embeddingPool   *ants.Pool
	categoryPool    *ants.Pool
	embeddingProc   processor
	categoryProc    processor
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pools
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}
		if p.categoryPool != nil {
			p.categoryPool.Release()
		}

		// Create new pools
		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		categoryPool, err := ants.NewPool(size)
		if err != nil {
			embeddingPool.Release()
			return err
		}

		p.embeddingPool = embeddingPool
		p.categoryPool = categoryPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new intake pipeline.
func NewPipeline(
	issueRepository storage.IssueRepository,
	userRepository storage.UserRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if issueRepository == nil {
		return nil, ErrIssueRepositoryRequired
	}
	if userRepository == nil {
		return nil, ErrUserRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	// Default logger
	logger := slog.Default()

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	categoryPool, err := ants.NewPool(poolSize)
	if err != nil {
		embeddingPool.Release()
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		issueRepository: issueRepository,
		userRepository:  userRepository,
		embeddingPool:   embeddingPool,
		categoryPool:    categoryPool,
		logger:          logger,
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create processors after options are applied (so they get final config)
	embeddingProc, err := newEmbeddingProcessor(issueRepository, provider.Embedder(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	categoryProc, err := newCategoryProcessor(issueRepository, provider.IssueClassifier(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	p.embeddingProc = embeddingProc
	p.categoryProc = categoryProc

	return p, nil
}

// ReportOptions holds optional parameters for filing reports.
type ReportOptions struct {
	ReportedAt time.Time // Optional report time (uses current time if zero)
}

// Report validates and persists issues on behalf of a reporter, then submits
// them for asynchronous enrichment. The reporter is credited reputation
// points per filed issue; a reporter ID of zero files anonymously.
// Errors during async processing are logged but do not fail the report.
func (p *Pipeline) Report(ctx context.Context, reporterID core.ID, issues []*core.Issue, opts *ReportOptions) ([]*core.Issue, error) {
	if opts == nil {
		opts = &ReportOptions{}
	}
	if len(issues) == 0 {
		return nil, nil
	}

	var reporter *core.User
	if reporterID != 0 {
		var err error
		reporter, err = p.userRepository.GetUser(ctx, reporterID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrUnknownReporter
			}
			return nil, err
		}
	}

	for _, issue := range issues {
		if issue.Status == 0 {
			issue.Status = core.StatusReported
		}
		if issue.ReportedAt.IsZero() {
			issue.ReportedAt = opts.ReportedAt
		}
		issue.ReporterId = reporterID

		if err := core.ValidateIssue(issue); err != nil {
			return nil, err
		}
	}

	added, err := p.issueRepository.AddIssues(ctx, issues...)
	if err != nil {
		return nil, err
	}

	if reporter != nil {
		reporter.ReputationPoints += reportReputationPoints * len(added)
		if _, err := p.userRepository.UpdateUsers(ctx, reporter); err != nil {
			// The report itself is already filed; losing the credit is
			// recoverable, failing the report is not.
			p.logger.Error("error crediting reporter reputation",
				"reporter", reporterID, "err", err)
		}
	}

	// Extract IDs
	ids := make([]core.ID, len(added))
	for i, issue := range added {
		ids[i] = issue.Id
	}

	// Submit for async processing. Both processors re-read and rewrite the
	// same issue records, so the category pass is chained after the embedding
	// pass completes; running them concurrently would lose whichever field
	// was written first.
	p.embeddingPool.Submit(func() {
		if err := p.embeddingProc.process(context.Background(), ids...); err != nil {
			p.logger.Error("error processing embeddings", "err", err)
		} else if err := p.embeddingProc.checkpoint(); err != nil {
			p.logger.Error("error applying embedding checkpoint", "err", err)
		}

		// Category suggestion still runs when embedding failed; the
		// enrichments are independent, only their writes must not interleave.
		if err := p.categoryPool.Submit(func() {
			if err := p.categoryProc.process(context.Background(), ids...); err != nil {
				p.logger.Error("error processing category suggestions", "err", err)
				return
			}
			if err := p.categoryProc.checkpoint(); err != nil {
				p.logger.Error("error applying category checkpoint", "err", err)
			}
		}); err != nil {
			p.logger.Error("error submitting category suggestions", "err", err)
		}
	})

	return added, nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
	if p.categoryPool != nil {
		p.categoryPool.Release()
	}
}
