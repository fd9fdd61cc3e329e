package match

import "github.com/communitywatch/communitywatch/core"

// MatchMonitor provides hooks to observe the matching process.
// Implement this interface to track intermediate steps during duplicate
// detection and search.
type MatchMonitor interface {
	Start(query string)
	AfterEmbedding(dimensions int)
	AfterCandidateScan(count int)
	CandidateSkipped(id core.ID, reason string)
	DegradedToKeywords(query string)
	Finish(results []*core.MatchCandidate)
}

// noopMonitor is a no-op implementation of MatchMonitor
type noopMonitor struct{}

var _ MatchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                           {}
func (n *noopMonitor) AfterEmbedding(_ int)                     {}
func (n *noopMonitor) AfterCandidateScan(_ int)                 {}
func (n *noopMonitor) CandidateSkipped(_ core.ID, _ string)     {}
func (n *noopMonitor) DegradedToKeywords(_ string)              {}
func (n *noopMonitor) Finish(_ []*core.MatchCandidate)          {}
