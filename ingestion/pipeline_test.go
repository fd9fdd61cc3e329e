package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
	"github.com/communitywatch/communitywatch/storage/badger"
)

// testClassifier implements ai.IssueClassifier for testing
type testClassifier struct {
	responses   map[string]*ai.Classification // map from description to classification
	shouldError bool
	errorOnText string
}

func (m *testClassifier) ClassifyIssue(ctx context.Context, description string) (*ai.Classification, error) {
	if m.shouldError || description == m.errorOnText {
		return nil, errors.New("classification error")
	}
	if classification, ok := m.responses[description]; ok {
		return classification, nil
	}
	return &ai.Classification{Category: "Other", Severity: "low"}, nil
}

// testEmbedder implements ai.Embedder for testing
type testEmbedder struct {
	embeddings  [][]float32
	shouldError bool
}

func (m *testEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if m.shouldError {
		return nil, errors.New("embedder error")
	}
	if len(m.embeddings) > 0 {
		return m.embeddings[0], nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *testEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if m.shouldError {
		return nil, errors.New("embedder error")
	}
	if len(m.embeddings) > 0 {
		return m.embeddings, nil
	}
	// Generate dynamic embeddings
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{float32(i) * 0.1, float32(i) * 0.2, float32(i) * 0.3}
	}
	return result, nil
}

// testAIProvider implements ai.AIProvider for testing
type testAIProvider struct {
	embedder   ai.Embedder
	classifier ai.IssueClassifier
}

func (p *testAIProvider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *testAIProvider) IssueClassifier() ai.IssueClassifier {
	return p.classifier
}

func (p *testAIProvider) Close() error {
	return nil
}

func setupTestRepositories(t *testing.T) (storage.IssueRepository, storage.UserRepository, func()) {
	backend, err := badger.OpenBackend(t.TempDir(), false)
	require.NoError(t, err)

	issueRepo, err := badger.NewIssueRepository(backend)
	require.NoError(t, err)

	userRepo, err := badger.NewUserRepository(backend)
	require.NoError(t, err)

	cleanup := func() {
		userRepo.Close()
		issueRepo.Close()
		backend.Close()
	}

	return issueRepo, userRepo, cleanup
}

func testIssue(description string) *core.Issue {
	return &core.Issue{
		Category:    core.CategoryOther,
		Description: description,
		Location:    core.Coordinates{Lat: 6.2650, Lng: 4.9250},
	}
}

func TestEmbeddingProcessor_Process(t *testing.T) {
	issueRepo, _, cleanup := setupTestRepositories(t)
	defer cleanup()
	ctx := context.Background()

	embedder := &testEmbedder{
		embeddings: [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}},
	}

	ep, err := newEmbeddingProcessor(issueRepo, embedder, nil)
	require.NoError(t, err)

	// Add issues
	added, err := issueRepo.AddIssues(ctx,
		testIssue("pothole on main road"),
		testIssue("graffiti on school wall"))
	require.NoError(t, err)
	require.Len(t, added, 2)

	// Process
	ids := []core.ID{added[0].Id, added[1].Id}
	err = ep.process(ctx, ids...)
	require.NoError(t, err)

	// Verify embeddings assigned
	processed, err := issueRepo.GetIssues(ctx, ids...)
	require.NoError(t, err)
	require.Len(t, processed, 2)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, processed[0].Embedding)
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, processed[1].Embedding)
}

func TestEmbeddingProcessor_Process_EmbedderError(t *testing.T) {
	issueRepo, _, cleanup := setupTestRepositories(t)
	defer cleanup()
	ctx := context.Background()

	embedder := &testEmbedder{shouldError: true}

	ep, err := newEmbeddingProcessor(issueRepo, embedder, nil)
	require.NoError(t, err)

	added, err := issueRepo.AddIssues(ctx, testIssue("pothole on main road"))
	require.NoError(t, err)
	require.Len(t, added, 1)

	// Process should fail
	err = ep.process(ctx, added[0].Id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder error")
}

func TestEmbeddingProcessor_Process_EmptyDescription(t *testing.T) {
	issueRepo, _, cleanup := setupTestRepositories(t)
	defer cleanup()
	ctx := context.Background()

	var embedded []string
	embedder := &testEmbedder{}

	ep, err := newEmbeddingProcessor(issueRepo, embedderFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		embedded = texts
		return embedder.EmbedTexts(ctx, texts)
	}), nil)
	require.NoError(t, err)

	issue := testIssue("")
	issue.Category = core.CategoryPothole
	added, err := issueRepo.AddIssues(ctx, issue)
	require.NoError(t, err)

	err = ep.process(ctx, added[0].Id)
	require.NoError(t, err)

	// The category name stands in for the missing description
	require.Len(t, embedded, 1)
	assert.Equal(t, "Pothole", embedded[0])
}

// embedderFunc adapts a batch function to ai.Embedder.
type embedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f embedderFunc) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f embedderFunc) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

func TestCategoryProcessor_Process(t *testing.T) {
	issueRepo, _, cleanup := setupTestRepositories(t)
	defer cleanup()
	ctx := context.Background()

	classifier := &testClassifier{
		responses: map[string]*ai.Classification{
			"big hole in the road":  {Category: "Pothole", Severity: "high"},
			"spray paint everywhere": {Category: "Graffiti", Severity: "low"},
		},
	}

	cp, err := newCategoryProcessor(issueRepo, classifier, nil)
	require.NoError(t, err)

	alreadyCategorized := testIssue("flickering lamp")
	alreadyCategorized.Category = core.CategoryStreetlight

	added, err := issueRepo.AddIssues(ctx,
		testIssue("big hole in the road"),
		testIssue("spray paint everywhere"),
		alreadyCategorized)
	require.NoError(t, err)
	require.Len(t, added, 3)

	ids := []core.ID{added[0].Id, added[1].Id, added[2].Id}
	err = cp.process(ctx, ids...)
	require.NoError(t, err)

	processed, err := issueRepo.GetIssues(ctx, ids...)
	require.NoError(t, err)
	require.Len(t, processed, 3)

	assert.Equal(t, core.CategoryPothole, processed[0].Category)
	assert.Equal(t, core.CategoryGraffiti, processed[1].Category)
	// Explicit categories are never overridden
	assert.Equal(t, core.CategoryStreetlight, processed[2].Category)
}

func TestCategoryProcessor_Process_PartialFailure(t *testing.T) {
	issueRepo, _, cleanup := setupTestRepositories(t)
	defer cleanup()
	ctx := context.Background()

	classifier := &testClassifier{
		responses: map[string]*ai.Classification{
			"big hole in the road": {Category: "Pothole", Severity: "high"},
			"trash on the corner":  {Category: "Litter", Severity: "medium"},
		},
		errorOnText: "unclassifiable FAIL",
	}

	cp, err := newCategoryProcessor(issueRepo, classifier, nil)
	require.NoError(t, err)

	added, err := issueRepo.AddIssues(ctx,
		testIssue("big hole in the road"),
		testIssue("unclassifiable FAIL"),
		testIssue("trash on the corner"))
	require.NoError(t, err)
	require.Len(t, added, 3)

	ids := []core.ID{added[0].Id, added[1].Id, added[2].Id}
	err = cp.process(ctx, ids...)

	// Should have an error naming the failed issue, but process the rest
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classification failed")
	assert.Contains(t, err.Error(), "issue 1")

	processed, err := issueRepo.GetIssues(ctx, ids...)
	require.NoError(t, err)
	require.Len(t, processed, 3)

	assert.Equal(t, core.CategoryPothole, processed[0].Category)
	assert.Equal(t, core.CategoryOther, processed[1].Category)
	assert.Equal(t, core.CategoryLitter, processed[2].Category)
}

func TestCategoryProcessor_Process_UnknownSuggestionIgnored(t *testing.T) {
	issueRepo, _, cleanup := setupTestRepositories(t)
	defer cleanup()
	ctx := context.Background()

	classifier := &testClassifier{
		responses: map[string]*ai.Classification{
			"something odd": {Category: "Sinkhole", Severity: "high"},
		},
	}

	cp, err := newCategoryProcessor(issueRepo, classifier, nil)
	require.NoError(t, err)

	added, err := issueRepo.AddIssues(ctx, testIssue("something odd"))
	require.NoError(t, err)

	err = cp.process(ctx, added[0].Id)
	require.NoError(t, err)

	processed, err := issueRepo.GetIssue(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryOther, processed.Category)
}

func TestNewPipeline(t *testing.T) {
	issueRepo, userRepo, cleanup := setupTestRepositories(t)
	defer cleanup()

	provider := &testAIProvider{
		embedder:   &testEmbedder{},
		classifier: &testClassifier{responses: make(map[string]*ai.Classification)},
	}

	t.Run("valid pipeline", func(t *testing.T) {
		pipeline, err := NewPipeline(issueRepo, userRepo, provider)
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		defer pipeline.Release()

		assert.NotNil(t, pipeline.issueRepository)
		assert.NotNil(t, pipeline.userRepository)
		assert.NotNil(t, pipeline.embeddingPool)
		assert.NotNil(t, pipeline.categoryPool)
	})

	t.Run("nil issue repository", func(t *testing.T) {
		_, err := NewPipeline(nil, userRepo, provider)
		assert.Equal(t, ErrIssueRepositoryRequired, err)
	})

	t.Run("nil user repository", func(t *testing.T) {
		_, err := NewPipeline(issueRepo, nil, provider)
		assert.Equal(t, ErrUserRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewPipeline(issueRepo, userRepo, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestPipeline_WithOptions(t *testing.T) {
	issueRepo, userRepo, cleanup := setupTestRepositories(t)
	defer cleanup()

	provider := &testAIProvider{
		embedder:   &testEmbedder{},
		classifier: &testClassifier{responses: make(map[string]*ai.Classification)},
	}

	t.Run("with pool size", func(t *testing.T) {
		pipeline, err := NewPipeline(issueRepo, userRepo, provider, WithPoolSize(4))
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		defer pipeline.Release()

		assert.NotNil(t, pipeline.embeddingPool)
		assert.NotNil(t, pipeline.categoryPool)
	})

	t.Run("with pool size zero defaults to 1", func(t *testing.T) {
		pipeline, err := NewPipeline(issueRepo, userRepo, provider, WithPoolSize(0))
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		defer pipeline.Release()
	})

	t.Run("with custom logger", func(t *testing.T) {
		logger := slog.Default()
		pipeline, err := NewPipeline(issueRepo, userRepo, provider, WithLogger(logger))
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		defer pipeline.Release()

		assert.Equal(t, logger, pipeline.logger)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		pipeline, err := NewPipeline(issueRepo, userRepo, provider, WithLogger(nil))
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		defer pipeline.Release()

		assert.NotNil(t, pipeline.logger)
	})
}

func TestPipeline_Report(t *testing.T) {
	issueRepo, userRepo, cleanup := setupTestRepositories(t)
	defer cleanup()

	provider := &testAIProvider{
		embedder: &testEmbedder{embeddings: [][]float32{{0.1, 0.2, 0.3}}},
		classifier: &testClassifier{
			responses: map[string]*ai.Classification{
				"big hole in the road": {Category: "Pothole", Severity: "high"},
			},
		},
	}

	pipeline, err := NewPipeline(issueRepo, userRepo, provider, WithPoolSize(1))
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()

	reporters, err := userRepo.AddUsers(ctx, &core.User{Username: "ada"})
	require.NoError(t, err)
	reporterID := reporters[0].Id

	t.Run("report single issue", func(t *testing.T) {
		added, err := pipeline.Report(ctx, reporterID, []*core.Issue{testIssue("big hole in the road")}, nil)
		require.NoError(t, err)
		require.Len(t, added, 1)
		assert.NotZero(t, added[0].Id)
		assert.Equal(t, reporterID, added[0].ReporterId)
		assert.Equal(t, core.StatusReported, added[0].Status)

		// Give async processors time to complete
		time.Sleep(100 * time.Millisecond)

		processed, err := issueRepo.GetIssue(ctx, added[0].Id)
		require.NoError(t, err)
		assert.NotEmpty(t, processed.Embedding)
		assert.Equal(t, core.CategoryPothole, processed.Category)
	})

	t.Run("reporter reputation credited", func(t *testing.T) {
		before, err := userRepo.GetUser(ctx, reporterID)
		require.NoError(t, err)

		_, err = pipeline.Report(ctx, reporterID, []*core.Issue{testIssue("litter by the market")}, nil)
		require.NoError(t, err)

		after, err := userRepo.GetUser(ctx, reporterID)
		require.NoError(t, err)
		assert.Equal(t, before.ReputationPoints+5, after.ReputationPoints)
	})

	t.Run("anonymous report", func(t *testing.T) {
		added, err := pipeline.Report(ctx, 0, []*core.Issue{testIssue("broken streetlight")}, nil)
		require.NoError(t, err)
		require.Len(t, added, 1)
		assert.Zero(t, added[0].ReporterId)
	})

	t.Run("unknown reporter", func(t *testing.T) {
		_, err := pipeline.Report(ctx, 999999, []*core.Issue{testIssue("pothole")}, nil)
		assert.ErrorIs(t, err, ErrUnknownReporter)
	})

	t.Run("invalid issue rejected", func(t *testing.T) {
		bad := testIssue("pothole at the end of the world")
		bad.Location = core.Coordinates{Lat: 95, Lng: 0}
		_, err := pipeline.Report(ctx, reporterID, []*core.Issue{bad}, nil)
		assert.ErrorIs(t, err, core.ErrInvalidIssue)
	})

	t.Run("report with explicit time", func(t *testing.T) {
		reportedAt := time.Now().UTC().Add(-48 * time.Hour)
		added, err := pipeline.Report(ctx, reporterID, []*core.Issue{testIssue("old pothole")}, &ReportOptions{
			ReportedAt: reportedAt,
		})
		require.NoError(t, err)
		require.Len(t, added, 1)
		assert.True(t, added[0].ReportedAt.Equal(reportedAt))
	})

	t.Run("report with no issues", func(t *testing.T) {
		added, err := pipeline.Report(ctx, reporterID, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, added)
	})
}

func TestPipeline_Report_EnrichmentsBothPersist(t *testing.T) {
	issueRepo, userRepo, cleanup := setupTestRepositories(t)
	defer cleanup()

	classifier := &testClassifier{responses: map[string]*ai.Classification{}}
	descriptions := []string{
		"deep hole in the eastbound lane",
		"hole opened up by the junction",
		"cracked road surface breaking apart",
		"hole near the bus stop",
	}
	for _, d := range descriptions {
		classifier.responses[d] = &ai.Classification{Category: "Pothole", Severity: "high"}
	}

	provider := &testAIProvider{
		embedder:   &testEmbedder{},
		classifier: classifier,
	}

	// Pool size > 1 so the enrichment tasks could overlap if unordered
	pipeline, err := NewPipeline(issueRepo, userRepo, provider, WithPoolSize(4))
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()

	var ids []core.ID
	for _, d := range descriptions {
		added, err := pipeline.Report(ctx, 0, []*core.Issue{testIssue(d)}, nil)
		require.NoError(t, err)
		ids = append(ids, added[0].Id)
	}

	time.Sleep(200 * time.Millisecond)

	// Every issue must carry both enrichments: neither the embedding write
	// nor the category write may clobber the other
	processed, err := issueRepo.GetIssues(ctx, ids...)
	require.NoError(t, err)
	require.Len(t, processed, len(descriptions))
	for _, issue := range processed {
		assert.Len(t, issue.Embedding, 3, "issue %d lost its embedding", issue.Id)
		assert.Equal(t, core.CategoryPothole, issue.Category, "issue %d lost its category", issue.Id)
	}
}

func TestPipeline_Report_CategoryAssignedWhenEmbedderFails(t *testing.T) {
	issueRepo, userRepo, cleanup := setupTestRepositories(t)
	defer cleanup()

	provider := &testAIProvider{
		embedder: &testEmbedder{shouldError: true},
		classifier: &testClassifier{
			responses: map[string]*ai.Classification{
				"big hole in the road": {Category: "Pothole", Severity: "high"},
			},
		},
	}

	pipeline, err := NewPipeline(issueRepo, userRepo, provider, WithPoolSize(1))
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()

	added, err := pipeline.Report(ctx, 0, []*core.Issue{testIssue("big hole in the road")}, nil)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	processed, err := issueRepo.GetIssue(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Empty(t, processed.Embedding)
	assert.Equal(t, core.CategoryPothole, processed.Category)
}

func TestPipeline_Release(t *testing.T) {
	issueRepo, userRepo, cleanup := setupTestRepositories(t)
	defer cleanup()

	provider := &testAIProvider{
		embedder:   &testEmbedder{},
		classifier: &testClassifier{responses: make(map[string]*ai.Classification)},
	}

	pipeline, err := NewPipeline(issueRepo, userRepo, provider)
	require.NoError(t, err)

	// Release should not panic
	pipeline.Release()

	// Multiple releases should not panic
	pipeline.Release()
}

func TestCategoryProcessor_Checkpoint(t *testing.T) {
	issueRepo, _, cleanup := setupTestRepositories(t)
	defer cleanup()

	cp, err := newCategoryProcessor(issueRepo, &testClassifier{}, nil)
	require.NoError(t, err)

	// Checkpoint should not error (currently a no-op)
	err = cp.checkpoint()
	require.NoError(t, err)
}

func TestEmbeddingProcessor_Checkpoint(t *testing.T) {
	issueRepo, _, cleanup := setupTestRepositories(t)
	defer cleanup()

	ep, err := newEmbeddingProcessor(issueRepo, &testEmbedder{}, nil)
	require.NoError(t, err)

	// Checkpoint should not error (currently a no-op)
	err = ep.checkpoint()
	require.NoError(t, err)
}
