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

import "errors"

// Domain validation errors
var (
	// ErrInvalidIssue indicates an Issue failed validation.
	ErrInvalidIssue = errors.New("invalid issue")

	// ErrInvalidUser indicates a User failed validation.
	ErrInvalidUser = errors.New("invalid user")

	// ErrInvalidCoordinates indicates a coordinate pair outside the valid
	// latitude/longitude ranges.
	ErrInvalidCoordinates = errors.New("coordinates out of range")

	// ErrInvalidCategory indicates an unknown issue category.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidStatus indicates an invalid Status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyUsername indicates the user Username field is empty.
	ErrEmptyUsername = errors.New("username cannot be empty")
)
