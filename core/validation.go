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


package core

import (
	"fmt"
	"time"
)

// ValidateIssue validates an Issue according to domain rules.
//
// Validation rules:
//   - Category must be one of the known categories
//   - Location must be a valid WGS84 coordinate pair
//   - Status must be valid (Reported, InProgress, or Resolved)
//   - ReportedAt must not be in the future
//
// NOT validated (populated by processors):
//   - Embedding (can be empty until the embedding worker runs)
//   - Description (can be empty; embedding falls back to the category name)
//   - ID (0 is valid from database sequences)
func ValidateIssue(issue *Issue) error {
	if issue == nil {
		return fmt.Errorf("%w: issue is nil", ErrInvalidIssue)
	}

	if err := ValidateCategory(issue.Category); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIssue, err)
	}

	if err := ValidateCoordinates(issue.Location); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIssue, err)
	}

	if err := ValidateStatus(issue.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIssue, err)
	}

	if !IsValidTimestamp(issue.ReportedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidIssue, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateUser validates a User according to domain rules.
//
// Validation rules:
//   - Username must not be empty
//
// NOT validated:
//   - ID (0 is valid from database sequences)
//   - Email (optional; verified upstream of this library)
func ValidateUser(user *User) error {
	if user == nil {
		return fmt.Errorf("%w: user is nil", ErrInvalidUser)
	}

	if user.Username == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUser, ErrEmptyUsername)
	}

	return nil
}

// ValidateCoordinates validates that a coordinate pair lies within the
// WGS84 latitude/longitude ranges.
func ValidateCoordinates(c Coordinates) error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, c.Lng)
	}
	return nil
}

// ValidateCategory validates that a Category is one of the known categories.
func ValidateCategory(category Category) error {
	for _, c := range Categories {
		if category == c {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
}

// ValidateStatus validates that a Status has a valid value.
func ValidateStatus(status Status) error {
	if status != StatusReported && status != StatusInProgress && status != StatusResolved {
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
