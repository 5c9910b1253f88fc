package domain

import "time"

// Recommendation is the outcome of one verification pass.
type Recommendation string

const (
	RecommendImmediate    Recommendation = "immediate"
	RecommendDelayed      Recommendation = "delayed"
	RecommendInsufficient Recommendation = "insufficient"
)

// CrossReferenceRule declares corroboration requirements as data: if a
// cluster contains an article from TriggerSource, it must also contain
// articles from at least MinimumMatches of RequiredSources.
type CrossReferenceRule struct {
	TriggerSource   string        `yaml:"trigger_source"`
	RequiredSources []string      `yaml:"required_sources"`
	MinimumMatches  int           `yaml:"minimum_matches"`
	RecheckDelay    time.Duration `yaml:"-"`
}

// CrossReferenceResult is the pure output of one verification pass over a
// cluster. It is folded into the StoryCluster fields, never persisted on
// its own.
type CrossReferenceResult struct {
	Rule           CrossReferenceRule
	TriggerArticle *RawArticle
	Matched        []RawArticle
	Missing        []string
	Score          float64
	Recommendation Recommendation
	RecheckAt      time.Time
}

// Synthesis is the downstream text-generation contract: a cluster with
// its matched articles goes in, a unified story comes out.
type Synthesis struct {
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	Confidence float64 `json:"confidence"`
}
