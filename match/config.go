package match

import "time"

// Config holds the tunable parameters of the matching engine.
// The defaults reflect neighborhood-scale civic reporting; none of these
// values is a hard contract and operators may tune them per deployment.
type Config struct {
	// RadiusMeters bounds the geographic scan for duplicate candidates.
	// Default: 150
	RadiusMeters float64

	// MaxAge bounds the recency window for duplicate candidates.
	// Default: 90 days
	MaxAge time.Duration

	// DuplicateThreshold is the minimum cosine similarity for an issue
	// to count as a potential duplicate.
	// Default: 0.80
	DuplicateThreshold float32

	// SimilarityWeight scales the semantic component of the search rank.
	// Default: 0.7
	SimilarityWeight float32

	// DistanceWeight scales the proximity component of the search rank.
	// Default: 0.3
	DistanceWeight float32

	// SearchRadiusMeters is the distance at which the proximity component
	// of the search rank bottoms out.
	// Default: 5000
	SearchRadiusMeters float64

	// DefaultPerPage is the page size used when a search query does not
	// specify one.
	// Default: 20
	DefaultPerPage int
}

// DefaultConfig returns the default matching parameters.
func DefaultConfig() Config {
	return Config{
		RadiusMeters:       150,
		MaxAge:             90 * 24 * time.Hour,
		DuplicateThreshold: 0.80,
		SimilarityWeight:   0.7,
		DistanceWeight:     0.3,
		SearchRadiusMeters: 5000,
		DefaultPerPage:     20,
	}
}
