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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/ai/openai"
	"github.com/communitywatch/communitywatch/backfill"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/match"
	"github.com/communitywatch/communitywatch/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "communitywatch",
		Usage: "Geo-semantic duplicate detection and search for civic issue reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "check-duplicates",
				Usage:  "Check a prospective report against existing nearby issues",
				Action: checkDuplicatesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "lat",
						Usage:    "Report latitude",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "lng",
						Usage:    "Report longitude",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "description",
						Usage:    "Report description",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Report category (Pothole, Graffiti, Streetlight, Litter, Other)",
						Value: "Other",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity for a duplicate",
						Value: 0.80,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search issues by free text, optionally near a location",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search text",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "lat",
						Usage: "Search latitude (requires --lng)",
					},
					&cli.Float64Flag{
						Name:  "lng",
						Usage: "Search longitude (requires --lat)",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Result page (1-based)",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "per-page",
						Usage: "Results per page",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
				},
			},
			{
				Name:   "backfill",
				Usage:  "Embed stored issues that are missing embeddings",
				Action: backfillCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of issues to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N issues",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "reembed-all",
						Usage: "Re-embed every issue, not just those missing embeddings",
					},
				},
			},
			{
				Name:   "prune",
				Usage:  "Delete issues older than a retention window",
				Action: pruneCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.DurationFlag{
						Name:     "retention",
						Usage:    "Retention window (e.g. 8760h for one year)",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func checkDuplicatesCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, repo, err := openIssueRepository(c.String("db"))
	if err != nil {
		return err
	}
	defer backend.Close()
	defer repo.Close()

	provider, err := newAIProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	matchConfig := match.DefaultConfig()
	matchConfig.DuplicateThreshold = float32(c.Float64("threshold"))

	matcher, err := match.NewMatcher(repo, provider, match.WithConfig(matchConfig))
	if err != nil {
		return fmt.Errorf("failed to create matcher: %w", err)
	}

	report := &core.Issue{
		Category:    core.Category(c.String("category")),
		Description: c.String("description"),
		Location:    core.Coordinates{Lat: c.Float64("lat"), Lng: c.Float64("lng")},
		Status:      core.StatusReported,
	}
	if err := core.ValidateIssue(report); err != nil {
		return err
	}

	duplicates, err := matcher.FindDuplicates(ctx, report)
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}

	if len(duplicates) == 0 {
		fmt.Println("No likely duplicates found")
		return nil
	}

	fmt.Printf("Found %d likely duplicate(s):\n", len(duplicates))
	for _, d := range duplicates {
		fmt.Printf("  #%d  sim=%.3f  dist=%.0fm  [%s/%s]  %s\n",
			d.Issue.Id, d.Similarity, d.DistanceMeters,
			d.Issue.Category, d.Issue.Status, d.Issue.Description)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, repo, err := openIssueRepository(c.String("db"))
	if err != nil {
		return err
	}
	defer backend.Close()
	defer repo.Close()

	provider, err := newAIProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	matcher, err := match.NewMatcher(repo, provider)
	if err != nil {
		return fmt.Errorf("failed to create matcher: %w", err)
	}

	query := match.Query{
		Text:    c.String("query"),
		Page:    c.Int("page"),
		PerPage: c.Int("per-page"),
	}
	if c.IsSet("lat") || c.IsSet("lng") {
		if !c.IsSet("lat") || !c.IsSet("lng") {
			return fmt.Errorf("--lat and --lng must be provided together")
		}
		query.Location = &core.Coordinates{Lat: c.Float64("lat"), Lng: c.Float64("lng")}
	}

	results, err := matcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results")
		return nil
	}

	for i, r := range results {
		if query.Location != nil {
			fmt.Printf("%2d. #%d  rank=%.3f  sim=%.3f  dist=%.0fm  [%s/%s]  %s\n",
				i+1, r.Issue.Id, r.Rank, r.Similarity, r.DistanceMeters,
				r.Issue.Category, r.Issue.Status, r.Issue.Description)
			continue
		}
		fmt.Printf("%2d. #%d  sim=%.3f  [%s/%s]  %s\n",
			i+1, r.Issue.Id, r.Similarity,
			r.Issue.Category, r.Issue.Status, r.Issue.Description)
	}
	return nil
}

func backfillCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, repo, err := openIssueRepository(c.String("db"))
	if err != nil {
		return err
	}
	defer backend.Close()
	defer repo.Close()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	backfillConfig := &backfill.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		ReembedAll:     c.Bool("reembed-all"),
	}

	// Validate config
	if backfillConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if backfillConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if backfillConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	backfiller := backfill.NewBackfiller(repo, embedder, backfillConfig, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := backfiller.Run(ctx); err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	return nil
}

func pruneCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, repo, err := openIssueRepository(c.String("db"))
	if err != nil {
		return err
	}
	defer backend.Close()
	defer repo.Close()

	pruner, err := backfill.NewPruner(repo, c.Duration("retention"), os.Stderr)
	if err != nil {
		return err
	}

	if _, err := pruner.Run(ctx); err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	return nil
}

// openIssueRepository opens the database and issue repository at path.
func openIssueRepository(path string) (*badger.Backend, *badger.IssueRepository, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("database path is required")
	}

	backend, err := badger.OpenBackend(path, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo, err := badger.NewIssueRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to create repository: %w", err)
	}

	return backend, repo, nil
}

// newAIProvider builds an AI provider from the command's embedding flags.
// The classifier keeps its defaults; matcher commands never call it.
func newAIProvider(c *cli.Context) (ai.AIProvider, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}
	return provider, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
