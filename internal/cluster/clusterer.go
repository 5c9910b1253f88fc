package cluster

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/logging"
)

const (
	// DefaultAdmissionThreshold is the minimum keyword-set Jaccard
	// similarity for an article to join a cluster.
	DefaultAdmissionThreshold = 0.30

	// DefaultClusterThreshold is stored as cluster metadata. It is a
	// distinct, higher bar than the admission threshold; do not conflate
	// the two.
	DefaultClusterThreshold = 0.80

	// DefaultTopKeywords bounds the per-article keyword set.
	DefaultTopKeywords = 10

	topicKeywordCount = 3
	topicTitleLimit   = 60
)

// Clusterer groups freshly fetched articles into candidate story
// clusters by lexical similarity.
type Clusterer struct {
	admissionThreshold float64
	clusterThreshold   float64
	topK               int
	logger             *slog.Logger
	now                func() time.Time
}

// NewClusterer builds a clusterer; zero-valued knobs fall back to the
// package defaults.
func NewClusterer(admissionThreshold, clusterThreshold float64, topK int, logger *slog.Logger) *Clusterer {
	if admissionThreshold <= 0 {
		admissionThreshold = DefaultAdmissionThreshold
	}
	if clusterThreshold <= 0 {
		clusterThreshold = DefaultClusterThreshold
	}
	if topK <= 0 {
		topK = DefaultTopKeywords
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Clusterer{
		admissionThreshold: admissionThreshold,
		clusterThreshold:   clusterThreshold,
		topK:               topK,
		logger:             logger,
		now:                time.Now,
	}
}

// AdmissionThreshold exposes the membership bar for callers (the
// verifier reuses it when assembling candidate pools).
func (c *Clusterer) AdmissionThreshold() float64 {
	return c.admissionThreshold
}

// Keywords extracts the bounded keyword set for one article.
func (c *Clusterer) Keywords(article domain.RawArticle) []string {
	return ExtractKeywords(article.Title+" "+article.Text(), c.topK)
}

// Partition greedily groups the batch into clusters: each unclustered
// article seeds a cluster and every later unclustered article whose
// keyword similarity meets the admission threshold joins it. First match
// wins, so the result is deterministic by input order (not by article
// recency); no global optimum is attempted. Singleton clusters are valid
// candidates for later growth.
func (c *Clusterer) Partition(articles []domain.RawArticle) []*domain.StoryCluster {
	keywords := make([][]string, len(articles))
	for i, article := range articles {
		keywords[i] = c.Keywords(article)
	}

	now := c.now().UTC()
	assigned := make([]bool, len(articles))
	var clusters []*domain.StoryCluster

	for i := range articles {
		if assigned[i] {
			continue
		}
		assigned[i] = true

		members := []int{i}
		for j := i + 1; j < len(articles); j++ {
			if assigned[j] {
				continue
			}
			if Jaccard(keywords[i], keywords[j]) >= c.admissionThreshold {
				assigned[j] = true
				members = append(members, j)
			}
		}

		clusters = append(clusters, c.buildCluster(articles, keywords, members, now))
	}

	c.logger.Debug("partitioned batch", "articles", len(articles), "clusters", len(clusters))
	return clusters
}

func (c *Clusterer) buildCluster(articles []domain.RawArticle, keywords [][]string, members []int, now time.Time) *domain.StoryCluster {
	merged := map[string]int{}
	ids := make([]string, 0, len(members))
	for _, idx := range members {
		ids = append(ids, articles[idx].ID)
		for _, kw := range keywords[idx] {
			merged[kw]++
		}
	}

	clusterKeywords := topKeywords(merged, c.topK)
	seed := articles[members[0]]

	return &domain.StoryCluster{
		ID:                  uuid.NewString(),
		Topic:               topicLabel(clusterKeywords, seed.Title),
		Keywords:            clusterKeywords,
		Status:              domain.StatusDetecting,
		TriggerArticleID:    seed.ID,
		SimilarityThreshold: c.clusterThreshold,
		ArticleIDs:          ids,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// topicLabel derives the cluster label from the top keywords, falling
// back to a truncated seed title when no keywords survived filtering.
func topicLabel(keywords []string, title string) string {
	if len(keywords) > 0 {
		n := topicKeywordCount
		if n > len(keywords) {
			n = len(keywords)
		}
		return strings.Join(keywords[:n], " ")
	}

	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) > topicTitleLimit {
		return string(runes[:topicTitleLimit])
	}
	return title
}
