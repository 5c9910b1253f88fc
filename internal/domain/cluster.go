package domain

import "time"

// ClusterStatus is the story cluster state machine. A cluster may only
// reach StatusAnalyzing through the cross-reference verifier.
type ClusterStatus string

const (
	StatusDetecting ClusterStatus = "detecting"
	StatusAnalyzing ClusterStatus = "analyzing"
	StatusComplete  ClusterStatus = "complete"
	StatusFailed    ClusterStatus = "failed"
)

// MaxRecheckAttempts bounds how often an uncorroborated cluster is
// re-verified before it fails terminally.
const MaxRecheckAttempts = 3

// StoryCluster is a hypothesis that a set of articles describe the same
// real-world event.
type StoryCluster struct {
	ID       string
	Topic    string
	Keywords []string

	// SourcesFound and SourcesMissing are disjoint sets of required
	// source names maintained by the verifier.
	SourcesFound   []string
	SourcesMissing []string

	Status           ClusterStatus
	TriggerArticleID string

	// SimilarityThreshold is cluster metadata; members are admitted at
	// the (lower) admission threshold, see cluster.AdmissionThreshold.
	SimilarityThreshold float64

	Corroboration   float64
	RecheckAttempts int
	NextRecheckAt   time.Time
	FailureReason   string

	ArticleIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the cluster can no longer change state.
func (c *StoryCluster) Terminal() bool {
	return c.Status == StatusComplete || c.Status == StatusFailed
}

// HasMember reports whether the article already belongs to the cluster.
func (c *StoryCluster) HasMember(articleID string) bool {
	for _, id := range c.ArticleIDs {
		if id == articleID {
			return true
		}
	}
	return false
}
