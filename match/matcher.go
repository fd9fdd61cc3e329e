package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// Matcher blends semantic similarity with geographic proximity to find
// duplicate reports and rank search results. It reads the issue store but
// never mutates it; callers persist any results as a separate step.
type Matcher struct {
	issueRepository storage.IssueRepository
	embedder        ai.Embedder
	cache           *EmbeddingCache
	config          Config
	logger          *slog.Logger
}

// Query is a free-text search request, optionally anchored to a location.
type Query struct {
	// Text is the search text. Required.
	Text string

	// Location anchors the search geographically. When nil, results are
	// ranked by similarity alone.
	Location *core.Coordinates

	// Page is the 1-based result page. Values < 1 are treated as 1.
	Page int

	// PerPage is the page size. Values < 1 use the configured default.
	PerPage int
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithConfig overrides the default matching parameters.
func WithConfig(config Config) Option {
	return func(m *Matcher) error {
		m.config = config
		return nil
	}
}

// WithEmbeddingCache sets a shared embedding cache. Default is a fresh
// cache per matcher.
func WithEmbeddingCache(cache *EmbeddingCache) Option {
	return func(m *Matcher) error {
		if cache == nil {
			cache = NewEmbeddingCache()
		}
		m.cache = cache
		return nil
	}
}

// NewMatcher creates a new matcher.
func NewMatcher(
	issueRepository storage.IssueRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Matcher, error) {
	if issueRepository == nil {
		return nil, ErrIssueRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	m := &Matcher{
		issueRepository: issueRepository,
		embedder:        provider.Embedder(),
		cache:           NewEmbeddingCache(),
		config:          DefaultConfig(),
		logger:          slog.Default().With("component", "matcher"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Config returns the matcher's active configuration.
func (m *Matcher) Config() Config {
	return m.config
}

// Embed generates an embedding for the given text.
// Provider failures and unusable (empty) vectors are both reported as
// ErrEmbeddingUnavailable so callers have a single degradation signal.
func (m *Matcher) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := m.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty vector", ErrEmbeddingUnavailable)
	}
	return vector, nil
}

// embedIssue returns the query vector for an issue: its stored embedding if
// present, otherwise a freshly computed one (cached by content fingerprint).
// An empty description falls back to the category name.
func (m *Matcher) embedIssue(ctx context.Context, issue *core.Issue) ([]float32, error) {
	if issue.HasEmbedding() {
		return issue.Embedding, nil
	}

	text := issue.EmbeddingText()
	if issue.Id != 0 {
		if vector, ok := m.cache.Get(issue.Id, text); ok {
			return vector, nil
		}
	}

	vector, err := m.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if issue.Id != 0 {
		m.cache.Put(issue.Id, text, vector)
	}
	return vector, nil
}

// FindDuplicates returns existing open issues that look like duplicates of
// the given report: within the configured radius, reported within the
// configured window, and semantically similar above the duplicate threshold.
// Results are ordered by similarity descending, ties broken by distance.
//
// An embedding outage degrades to an empty result with a nil error; a bad
// candidate (dimension mismatch, corrupt coordinates) is logged and skipped
// without aborting the pass.
func (m *Matcher) FindDuplicates(ctx context.Context, issue *core.Issue) ([]*core.MatchCandidate, error) {
	return m.FindDuplicatesWithMonitor(ctx, issue, nil)
}

// FindDuplicatesWithMonitor is FindDuplicates with observation hooks.
func (m *Matcher) FindDuplicatesWithMonitor(ctx context.Context, issue *core.Issue, monitor MatchMonitor) ([]*core.MatchCandidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if issue == nil {
		return nil, core.ErrInvalidIssue
	}
	if err := core.ValidateCoordinates(issue.Location); err != nil {
		return nil, err
	}

	monitor.Start(issue.EmbeddingText())

	queryVector, err := m.embedIssue(ctx, issue)
	if err != nil {
		// Embedding outage: the report flow must not block on duplicate
		// detection, so degrade to "no duplicates found".
		m.logger.Warn("embedding unavailable, skipping duplicate detection",
			"issue", issue.Id, "err", err)
		monitor.Finish(nil)
		return []*core.MatchCandidate{}, nil
	}
	monitor.AfterEmbedding(len(queryVector))

	candidates, err := m.issueRepository.FindIssuesNear(ctx,
		issue.Location, m.config.RadiusMeters, m.config.MaxAge, core.OpenStatuses...)
	if err != nil {
		m.logger.Error("error scanning for nearby issues", "err", err)
		return nil, err
	}
	monitor.AfterCandidateScan(len(candidates))

	results := make([]*core.MatchCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Id != 0 && candidate.Id == issue.Id {
			continue
		}
		if !candidate.HasEmbedding() {
			monitor.CandidateSkipped(candidate.Id, "no embedding")
			continue
		}
		if err := core.ValidateCoordinates(candidate.Location); err != nil {
			m.logger.Warn("candidate has invalid coordinates, skipping",
				"candidate", candidate.Id, "err", err)
			monitor.CandidateSkipped(candidate.Id, "invalid coordinates")
			continue
		}

		similarity, err := CosineSimilarity(queryVector, candidate.Embedding)
		if err != nil {
			// A stale embedding from an older model; the backfill task
			// will recompute it. Treat as non-matching.
			m.logger.Warn("candidate embedding incomparable, skipping",
				"candidate", candidate.Id, "err", err)
			monitor.CandidateSkipped(candidate.Id, "dimension mismatch")
			continue
		}

		similarity = clampSimilarity(similarity)
		if similarity < m.config.DuplicateThreshold {
			continue
		}

		results = append(results, &core.MatchCandidate{
			Issue:          candidate,
			Similarity:     similarity,
			DistanceMeters: core.DistanceMeters(issue.Location, candidate.Location),
		})
	}

	// Similarity descending, ties broken by closer distance
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].DistanceMeters < results[j].DistanceMeters
	})

	monitor.Finish(results)
	return results, nil
}

// Search ranks issues against a free-text query. With a location, the rank
// blends similarity and proximity; without one, it is similarity alone.
// There is no minimum similarity: search surfaces the best of what exists.
//
// An embedding outage degrades to keyword-only matching rather than an error.
func (m *Matcher) Search(ctx context.Context, query Query) ([]*core.MatchCandidate, error) {
	return m.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor is Search with observation hooks.
func (m *Matcher) SearchWithMonitor(ctx context.Context, query Query, monitor MatchMonitor) ([]*core.MatchCandidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if query.Text == "" {
		return nil, ErrEmptyQuery
	}
	if query.Location != nil {
		if err := core.ValidateCoordinates(*query.Location); err != nil {
			return nil, err
		}
	}

	monitor.Start(query.Text)

	candidates, err := m.searchCandidates(ctx, query)
	if err != nil {
		m.logger.Error("error scanning search candidates", "err", err)
		return nil, err
	}
	monitor.AfterCandidateScan(len(candidates))

	queryVector, embedErr := m.Embed(ctx, query.Text)
	if embedErr != nil {
		// Keyword-only fallback: all non-stopword query terms must appear
		// in the description.
		m.logger.Warn("embedding unavailable, falling back to keyword search",
			"query", query.Text, "err", embedErr)
		monitor.DegradedToKeywords(query.Text)
		results := m.keywordResults(query, candidates)
		monitor.Finish(results)
		return paginate(results, m.pageBounds(query)), nil
	}
	monitor.AfterEmbedding(len(queryVector))

	results := make([]*core.MatchCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.HasEmbedding() {
			monitor.CandidateSkipped(candidate.Id, "no embedding")
			continue
		}

		similarity, err := CosineSimilarity(queryVector, candidate.Embedding)
		if err != nil {
			m.logger.Warn("candidate embedding incomparable, skipping",
				"candidate", candidate.Id, "err", err)
			monitor.CandidateSkipped(candidate.Id, "dimension mismatch")
			continue
		}
		similarity = clampSimilarity(similarity)

		result := &core.MatchCandidate{
			Issue:      candidate,
			Similarity: similarity,
			Rank:       similarity,
		}
		if query.Location != nil {
			result.DistanceMeters = core.DistanceMeters(*query.Location, candidate.Location)
			proximity := 1 - min(result.DistanceMeters/m.config.SearchRadiusMeters, 1)
			result.Rank = m.config.SimilarityWeight*similarity +
				m.config.DistanceWeight*float32(proximity)
		}
		results = append(results, result)
	}

	// Rank descending, ties broken by similarity then distance
	sort.Slice(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank > results[j].Rank
		}
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].DistanceMeters < results[j].DistanceMeters
	})

	monitor.Finish(results)
	return paginate(results, m.pageBounds(query)), nil
}

// searchCandidates returns the issue pool for a search query. A located
// query scans within the search radius; an unlocated one scans everything.
func (m *Matcher) searchCandidates(ctx context.Context, query Query) ([]*core.Issue, error) {
	if query.Location != nil {
		return m.issueRepository.FindIssuesNear(ctx,
			*query.Location, m.config.SearchRadiusMeters, 0)
	}
	return m.issueRepository.GetIssuesByDateRange(ctx,
		time.Time{}, time.Now().UTC().Add(1*time.Microsecond))
}

// keywordResults builds the degraded, keyword-only result list: candidates
// whose description contains every query term, most recent first.
func (m *Matcher) keywordResults(query Query, candidates []*core.Issue) []*core.MatchCandidate {
	results := make([]*core.MatchCandidate, 0)
	for _, candidate := range candidates {
		if !containsAllQueryWords(candidate.Description, query.Text) {
			continue
		}
		result := &core.MatchCandidate{Issue: candidate}
		if query.Location != nil {
			result.DistanceMeters = core.DistanceMeters(*query.Location, candidate.Location)
		}
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Issue.ReportedAt.After(results[j].Issue.ReportedAt)
	})
	return results
}

type pageBounds struct {
	offset int
	limit  int
}

// pageBounds normalizes a query's pagination fields.
func (m *Matcher) pageBounds(query Query) pageBounds {
	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = m.config.DefaultPerPage
	}
	return pageBounds{offset: (page - 1) * perPage, limit: perPage}
}

// paginate slices a ranked result list to the requested page.
func paginate(results []*core.MatchCandidate, bounds pageBounds) []*core.MatchCandidate {
	if bounds.offset >= len(results) {
		return []*core.MatchCandidate{}
	}
	end := bounds.offset + bounds.limit
	if end > len(results) {
		end = len(results)
	}
	return results[bounds.offset:end]
}
