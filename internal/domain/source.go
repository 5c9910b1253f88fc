package domain

import "time"

// SourceTier classifies how a feed origin participates in verification.
type SourceTier string

const (
	TierPrimary       SourceTier = "primary"
	TierSecondary     SourceTier = "secondary"
	TierSpecialty     SourceTier = "specialty"
	TierInternational SourceTier = "international"
)

// NewsSource is a configured feed origin.
type NewsSource struct {
	ID          string
	Name        string
	FeedURL     string
	Country     string
	Language    string
	Credibility int // 0-100
	Leaning     string
	Tier        SourceTier

	// CrossReferenceRequired marks sources whose stories cannot be
	// trusted alone and must pass the cross-reference verifier.
	CrossReferenceRequired bool

	LastFetchedAt time.Time
	ErrorCount    int
}

// CanTrigger reports whether this source is a valid trigger for a
// cross-reference rule. Only primary-tier sources with the
// cross-reference flag qualify.
func (s NewsSource) CanTrigger() bool {
	return s.Tier == TierPrimary && s.CrossReferenceRequired
}
