package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Category is the kind of civic issue being reported.
type Category string

// Valid issue categories.
const (
	CategoryPothole     Category = "Pothole"
	CategoryGraffiti    Category = "Graffiti"
	CategoryStreetlight Category = "Streetlight"
	CategoryLitter      Category = "Litter"
	CategoryOther       Category = "Other"
)

// Categories lists all valid issue categories.
var Categories = []Category{
	CategoryPothole,
	CategoryGraffiti,
	CategoryStreetlight,
	CategoryLitter,
	CategoryOther,
}

// Status is the lifecycle state of a reported issue.
type Status int

const (
	// StatusReported represents a freshly reported, unhandled issue.
	StatusReported Status = iota + 1
	// StatusInProgress represents an issue a moderator is working on.
	StatusInProgress
	// StatusResolved represents a fixed issue.
	StatusResolved
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusReported:
		return "Reported"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	default:
		return "Unknown"
	}
}

// OpenStatuses are the statuses an issue can have while still unresolved.
// Duplicate detection only considers open issues.
var OpenStatuses = []Status{StatusReported, StatusInProgress}

// Coordinates is a WGS84 point on the map.
type Coordinates struct {
	Lat float64 // Latitude in degrees, [-90, 90]
	Lng float64 // Longitude in degrees, [-180, 180]
}

// Issue represents a community-reported civic issue.
// It may be enriched with an embedding after reporting.
type Issue struct {
	Id           ID
	Category     Category
	Description  string
	Location     Coordinates
	LocationText string // Optional human-readable location
	Status       Status
	UpvoteCount  int
	Embedding    []float32 // Semantic embedding vector (populated lazily)
	ReporterId   ID
	ReportedAt   time.Time // When the issue was originally reported
	InsertedAt   time.Time // When the record was inserted into the database
	UpdatedAt    time.Time // When the record was last updated
}

// EmbeddingText returns the text the issue's embedding is derived from.
// An empty description falls back to the category name so embedding
// generation never runs on empty input.
func (i *Issue) EmbeddingText() string {
	if i.Description == "" {
		return string(i.Category)
	}
	return i.Description
}

// HasEmbedding reports whether the issue is matchable by the semantic engine.
func (i *Issue) HasEmbedding() bool {
	return len(i.Embedding) > 0
}

// User represents a registered reporter. It is a shared reference from
// issues; the matching engine never owns or mutates it.
type User struct {
	Id               ID
	Username         string
	Email            string
	ReputationPoints int
	IsModerator      bool
	InsertedAt       time.Time
	UpdatedAt        time.Time
}

// MatchCandidate is a transient matcher output: an existing issue scored
// against a query issue or search query.
type MatchCandidate struct {
	Issue          *Issue
	Similarity     float32 // Cosine similarity clamped to [0, 1]
	DistanceMeters float64 // Great-circle distance from the query point
	Rank           float32 // Combined semantic + spatial rank score
}
