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


package communitywatch

import (
	"log/slog"

	"github.com/communitywatch/communitywatch/ai"
	"github.com/communitywatch/communitywatch/ai/openai"
	"github.com/communitywatch/communitywatch/ingestion"
	"github.com/communitywatch/communitywatch/match"
	"github.com/communitywatch/communitywatch/storage"
	"github.com/communitywatch/communitywatch/storage/badger"
)

// Database wires the storage backend, repositories, and AI provider into a
// single handle. It is the entry point for embedding applications.
type Database struct {
	backend   *badger.Backend
	issueRepo storage.IssueRepository
	userRepo  storage.UserRepository
	provider  ai.AIProvider
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
}

// WithAIConfig overrides the default AI provider configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}
	// Open backend
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	// Create issue repository
	issueRepo, err := badger.NewIssueRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create user repository
	userRepo, err := badger.NewUserRepository(backend)
	if err != nil {
		issueRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		userRepo.Close()
		issueRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:   backend,
		issueRepo: issueRepo,
		userRepo:  userRepo,
		provider:  provider,
		logger:    slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.userRepo.Close(); err != nil {
		db.logger.Error("error closing user repository", "err", err)
		return err
	}
	if err := db.issueRepo.Close(); err != nil {
		db.logger.Error("error closing issue repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) IssueRepository() storage.IssueRepository {
	return db.issueRepo
}

func (db *Database) UserRepository() storage.UserRepository {
	return db.userRepo
}

func (db *Database) AIProvider() ai.AIProvider {
	return db.provider
}

func (db *Database) NewIntakePipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.issueRepo, db.userRepo, db.provider, opts...)
}

func (db *Database) NewMatcher(opts ...match.Option) (*match.Matcher, error) {
	return match.NewMatcher(db.issueRepo, db.provider, opts...)
}
