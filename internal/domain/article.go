package domain

import "time"

// ArticleStatus tracks the terminal transition of an ingested article.
type ArticleStatus string

const (
	ArticlePending   ArticleStatus = "pending"
	ArticleProcessed ArticleStatus = "processed"
)

// RawArticle is one normalized feed entry. Identity is (SourceID, URL):
// re-fetching the same URL from the same source upserts, never duplicates.
type RawArticle struct {
	ID          string
	SourceID    string
	SourceName  string
	Title       string
	Description string
	Content     string
	URL         string
	Author      string
	GUID        string
	Categories  []string
	Language    string
	PublishedAt time.Time

	// Quality is an advisory score in [0,1] computed from structural
	// signals at ingest time.
	Quality float64

	Status    ArticleStatus
	FetchedAt time.Time
}

// Text returns the best available body text for keyword extraction:
// full content when the feed (or enrichment) provided it, otherwise the
// summary/description.
func (a RawArticle) Text() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Description
}
