package verify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsVerifier/internal/domain"
)

type fakeClusters struct {
	stored map[string]*domain.StoryCluster
}

func newFakeClusters(clusters ...*domain.StoryCluster) *fakeClusters {
	f := &fakeClusters{stored: map[string]*domain.StoryCluster{}}
	for _, sc := range clusters {
		copied := *sc
		f.stored[sc.ID] = &copied
	}
	return f
}

func (f *fakeClusters) SaveCluster(_ context.Context, sc *domain.StoryCluster) error {
	copied := *sc
	f.stored[sc.ID] = &copied
	return nil
}

func (f *fakeClusters) Cluster(_ context.Context, id string) (*domain.StoryCluster, error) {
	sc, ok := f.stored[id]
	if !ok {
		return nil, fmt.Errorf("cluster %s not found", id)
	}
	return sc, nil
}

func (f *fakeClusters) DueForRecheck(_ context.Context, now time.Time) ([]*domain.StoryCluster, error) {
	var due []*domain.StoryCluster
	for _, sc := range f.stored {
		if sc.Status == domain.StatusDetecting && !sc.NextRecheckAt.IsZero() && !sc.NextRecheckAt.After(now) {
			due = append(due, sc)
		}
	}
	return due, nil
}

func (f *fakeClusters) TransitionStatus(_ context.Context, id string, from, to domain.ClusterStatus) (bool, error) {
	sc, ok := f.stored[id]
	if !ok || sc.Status != from {
		return false, nil
	}
	sc.Status = to
	return true, nil
}

type fakeArticles struct {
	articles []domain.RawArticle
	recent   []domain.RawArticle
}

func (f *fakeArticles) UpsertArticle(_ context.Context, article domain.RawArticle) (bool, error) {
	f.articles = append(f.articles, article)
	return true, nil
}

func (f *fakeArticles) ArticlesByIDs(_ context.Context, ids []string) ([]domain.RawArticle, error) {
	var found []domain.RawArticle
	for _, id := range ids {
		for _, a := range f.articles {
			if a.ID == id {
				found = append(found, a)
				break
			}
		}
	}
	return found, nil
}

func (f *fakeArticles) RecentArticles(_ context.Context, _ time.Time) ([]domain.RawArticle, error) {
	return f.recent, nil
}

func (f *fakeArticles) MarkProcessed(_ context.Context, _ []string) error {
	return nil
}

func dutchRule() domain.CrossReferenceRule {
	return domain.CrossReferenceRule{
		TriggerSource:   "NU.nl",
		RequiredSources: []string{"De Telegraaf", "NOS", "De Volkskrant"},
		MinimumMatches:  2,
		RecheckDelay:    time.Hour,
	}
}

func memberArticle(id, source, title, content string, quality float64) domain.RawArticle {
	return domain.RawArticle{
		ID:         id,
		SourceName: source,
		Title:      title,
		Content:    content,
		Quality:    quality,
	}
}

func detectingCluster(id string, keywords []string, memberIDs ...string) *domain.StoryCluster {
	return &domain.StoryCluster{
		ID:         id,
		Topic:      "test cluster",
		Keywords:   keywords,
		Status:     domain.StatusDetecting,
		ArticleIDs: memberIDs,
	}
}

func TestVerifyClusterImmediateWhenEnoughSourcesCorroborate(t *testing.T) {
	articles := &fakeArticles{articles: []domain.RawArticle{
		memberArticle("a1", "NU.nl", "brand rotterdam", "brand winkelcentrum rotterdam", 0.8),
		memberArticle("a2", "De Telegraaf", "brand rotterdam", "brand winkelcentrum rotterdam", 0.7),
		memberArticle("a3", "NOS", "brand rotterdam", "brand winkelcentrum rotterdam", 0.9),
	}}
	sc := detectingCluster("c1", []string{"brand", "winkelcentrum", "rotterdam"}, "a1", "a2", "a3")
	clusters := newFakeClusters(sc)

	v := New([]domain.CrossReferenceRule{dutchRule()}, clusters, articles, 0.30, nil)

	result, err := v.VerifyCluster(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, domain.RecommendImmediate, result.Recommendation)
	require.InDelta(t, 2.0/3.0, result.Score, 1e-9)
	require.Len(t, result.Matched, 2)
	require.Equal(t, []string{"De Volkskrant"}, result.Missing)

	require.Equal(t, domain.StatusAnalyzing, sc.Status)
	require.Equal(t, []string{"De Telegraaf", "NOS"}, sc.SourcesFound)
	require.Equal(t, []string{"De Volkskrant"}, sc.SourcesMissing)
	require.Equal(t, "a1", sc.TriggerArticleID)
	require.True(t, sc.NextRecheckAt.IsZero())

	stored, err := clusters.Cluster(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusAnalyzing, stored.Status)
}

func TestVerifyClusterDelayedSchedulesRecheck(t *testing.T) {
	articles := &fakeArticles{articles: []domain.RawArticle{
		memberArticle("a1", "NU.nl", "brand rotterdam", "brand winkelcentrum rotterdam", 0.8),
		memberArticle("a2", "De Telegraaf", "brand rotterdam", "brand winkelcentrum rotterdam", 0.7),
	}}
	sc := detectingCluster("c1", []string{"brand", "winkelcentrum", "rotterdam"}, "a1", "a2")
	clusters := newFakeClusters(sc)

	v := New([]domain.CrossReferenceRule{dutchRule()}, clusters, articles, 0.30, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return fixed }

	result, err := v.VerifyCluster(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, domain.RecommendDelayed, result.Recommendation)
	require.InDelta(t, 1.0/3.0, result.Score, 1e-9)
	require.Equal(t, fixed.Add(time.Hour), result.RecheckAt)

	require.Equal(t, domain.StatusDetecting, sc.Status)
	require.Equal(t, 1, sc.RecheckAttempts)
	require.Equal(t, fixed.Add(time.Hour), sc.NextRecheckAt)
	require.ElementsMatch(t, []string{"NOS", "De Volkskrant"}, sc.SourcesMissing)
}

func TestVerifyClusterFailsWithoutApplicableRule(t *testing.T) {
	articles := &fakeArticles{articles: []domain.RawArticle{
		memberArticle("a1", "NOS", "brand rotterdam", "brand winkelcentrum rotterdam", 0.9),
	}}
	sc := detectingCluster("c1", []string{"brand"}, "a1")
	clusters := newFakeClusters(sc)

	v := New([]domain.CrossReferenceRule{dutchRule()}, clusters, articles, 0.30, nil)

	result, err := v.VerifyCluster(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, domain.RecommendInsufficient, result.Recommendation)
	require.Equal(t, domain.StatusFailed, sc.Status)
	require.Equal(t, ReasonNoRule, sc.FailureReason)
}

func TestVerifyClusterFailsAfterExhaustedAttempts(t *testing.T) {
	articles := &fakeArticles{articles: []domain.RawArticle{
		memberArticle("a1", "NU.nl", "brand rotterdam", "brand winkelcentrum rotterdam", 0.8),
	}}
	sc := detectingCluster("c1", []string{"brand", "winkelcentrum", "rotterdam"}, "a1")
	sc.RecheckAttempts = domain.MaxRecheckAttempts
	clusters := newFakeClusters(sc)

	v := New([]domain.CrossReferenceRule{dutchRule()}, clusters, articles, 0.30, nil)

	result, err := v.VerifyCluster(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, domain.RecommendInsufficient, result.Recommendation)
	require.Equal(t, domain.StatusFailed, sc.Status)
	require.Equal(t, ReasonExhausted, sc.FailureReason)
}

func TestVerifyClusterPullsSimilarRecentArticles(t *testing.T) {
	articles := &fakeArticles{
		articles: []domain.RawArticle{
			memberArticle("a1", "NU.nl", "brand winkelcentrum rotterdam", "brand winkelcentrum rotterdam schade", 0.8),
		},
		recent: []domain.RawArticle{
			memberArticle("r1", "NOS", "brand winkelcentrum rotterdam", "brand winkelcentrum rotterdam schade", 0.9),
			memberArticle("r2", "De Telegraaf", "kabinet presenteert begroting", "kabinet begroting miljoenennota", 0.9),
		},
	}
	sc := detectingCluster("c1", []string{"brand", "winkelcentrum", "rotterdam", "schade"}, "a1")
	clusters := newFakeClusters(sc)

	rule := dutchRule()
	rule.MinimumMatches = 1
	v := New([]domain.CrossReferenceRule{rule}, clusters, articles, 0.30, nil)

	result, err := v.VerifyCluster(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, domain.RecommendImmediate, result.Recommendation)
	require.Equal(t, []string{"NOS"}, sc.SourcesFound)
	require.Contains(t, sc.ArticleIDs, "r1", "corroborating article must join the cluster")
	require.NotContains(t, sc.ArticleIDs, "r2", "dissimilar article must stay out")
}

func TestVerifyClusterPrefersExactNameMatch(t *testing.T) {
	rule := domain.CrossReferenceRule{
		TriggerSource:   "NU.nl",
		RequiredSources: []string{"NOS"},
		MinimumMatches:  1,
	}
	candidates := []domain.RawArticle{
		memberArticle("sub", "NOS Nieuws", "", "", 0.95),
		memberArticle("exact", "NOS", "", "", 0.10),
	}

	matched, missing := matchRequired(rule, candidates)
	require.Empty(t, missing)
	require.Len(t, matched, 1)
	require.Equal(t, "exact", matched[0].ID, "exact normalized match must beat a higher-quality substring match")
}

func TestVerifyClusterRejectsNonDetectingStatus(t *testing.T) {
	sc := detectingCluster("c1", nil, "a1")
	sc.Status = domain.StatusAnalyzing

	v := New([]domain.CrossReferenceRule{dutchRule()}, newFakeClusters(sc), &fakeArticles{}, 0.30, nil)

	_, err := v.VerifyCluster(context.Background(), sc)
	require.Error(t, err)
}
