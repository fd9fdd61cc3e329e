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


// Package match provides geo-semantic duplicate detection and search.
//
// The Matcher type combines two signals over reported issues:
//   - Semantic similarity using vector embeddings
//   - Geographic proximity using great-circle distance
//
// Duplicate detection scans open issues near a new report and surfaces
// those above a similarity threshold. Search ranks issues by a weighted
// blend of similarity and proximity, falling back to keyword matching
// with stop-word filtering when the embedding service is unavailable.
package match
