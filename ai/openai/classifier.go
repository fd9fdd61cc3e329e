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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/communitywatch/communitywatch/ai"
)

// IssueClassifier implements ai.IssueClassifier using OpenAI-compatible chat APIs.
type IssueClassifier struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// classification is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type classification struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
}

// newIssueClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newIssueClassifier(config *ai.Config) (*IssueClassifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat/classification
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken("none"),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &IssueClassifier{
		client:  client,
		timeout: config.RequestTimeout,
		logger:  slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewIssueClassifier creates a new issue classifier using the provided configuration.
//
// Returns ai.IssueClassifier interface to enforce abstraction.
func NewIssueClassifier(config *ai.Config) (ai.IssueClassifier, error) {
	return newIssueClassifier(config)
}

// ClassifyIssue suggests a category and severity for an issue description using an LLM.
// Unknown categories or severities in the response fall back to "Other" and "medium".
func (c *IssueClassifier) ClassifyIssue(ctx context.Context, description string) (*ai.Classification, error) {
	// Scrub input text
	description = scrubString(description)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Build the system and user prompts
	systemPrompt := buildSystemPrompt()
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(description),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result classification
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			c.logger.Debug("no choices returned from model")
			return &ai.Classification{Category: "Other", Severity: "medium"}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		c.logger.Error("failed to parse classifier response after retries", "err", lastErr)
		return nil, lastErr
	}

	// The model occasionally invents labels; clamp to the known sets
	if !slices.Contains(ai.IssueCategories, result.Category) {
		c.logger.Debug("unknown category from classifier, using Other", "category", result.Category)
		result.Category = "Other"
	}
	if !slices.Contains(ai.Severities, strings.ToLower(result.Severity)) {
		c.logger.Debug("unknown severity from classifier, using medium", "severity", result.Severity)
		result.Severity = "medium"
	}

	c.logger.Debug("classified issue",
		"category", result.Category,
		"severity", result.Severity)

	return &ai.Classification{
		Category: result.Category,
		Severity: strings.ToLower(result.Severity),
	}, nil
}
