package ai

// IssueCategories defines the valid categories a classifier may suggest.
// These mirror the civic issue categories used across the system.
var IssueCategories = []string{
	"Pothole",
	"Graffiti",
	"Streetlight",
	"Litter",
	"Other",
}

// Severities defines the valid severity levels a classifier may assign.
var Severities = []string{
	"low",
	"medium",
	"high",
}
