package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsVerifier/internal/cluster"
	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/verify"
)

// memRepo backs all three repositories for pipeline tests.
type memRepo struct {
	sources   []domain.NewsSource
	articles  []domain.RawArticle
	clusters  map[string]*domain.StoryCluster
	processed []string
}

func newMemRepo(sources ...domain.NewsSource) *memRepo {
	return &memRepo{sources: sources, clusters: map[string]*domain.StoryCluster{}}
}

func (m *memRepo) SaveSource(_ context.Context, source domain.NewsSource) error {
	m.sources = append(m.sources, source)
	return nil
}

func (m *memRepo) Source(_ context.Context, id string) (domain.NewsSource, error) {
	for _, s := range m.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.NewsSource{}, fmt.Errorf("source %s not found", id)
}

func (m *memRepo) ListSources(context.Context) ([]domain.NewsSource, error) {
	return append([]domain.NewsSource(nil), m.sources...), nil
}

func (m *memRepo) RecordFetch(context.Context, string, time.Time, bool) error { return nil }

func (m *memRepo) UpsertArticle(_ context.Context, article domain.RawArticle) (bool, error) {
	for _, existing := range m.articles {
		if existing.SourceID == article.SourceID && existing.URL == article.URL {
			return false, nil
		}
	}
	m.articles = append(m.articles, article)
	return true, nil
}

func (m *memRepo) ArticlesByIDs(_ context.Context, ids []string) ([]domain.RawArticle, error) {
	var found []domain.RawArticle
	for _, id := range ids {
		for _, a := range m.articles {
			if a.ID == id {
				found = append(found, a)
				break
			}
		}
	}
	return found, nil
}

func (m *memRepo) RecentArticles(context.Context, time.Time) ([]domain.RawArticle, error) {
	return append([]domain.RawArticle(nil), m.articles...), nil
}

func (m *memRepo) MarkProcessed(_ context.Context, ids []string) error {
	m.processed = append(m.processed, ids...)
	return nil
}

func (m *memRepo) SaveCluster(_ context.Context, sc *domain.StoryCluster) error {
	m.clusters[sc.ID] = sc
	return nil
}

func (m *memRepo) Cluster(_ context.Context, id string) (*domain.StoryCluster, error) {
	sc, ok := m.clusters[id]
	if !ok {
		return nil, fmt.Errorf("cluster %s not found", id)
	}
	return sc, nil
}

func (m *memRepo) DueForRecheck(context.Context, time.Time) ([]*domain.StoryCluster, error) {
	return nil, nil
}

func (m *memRepo) TransitionStatus(_ context.Context, id string, from, to domain.ClusterStatus) (bool, error) {
	sc, ok := m.clusters[id]
	if !ok || sc.Status != from {
		return false, nil
	}
	sc.Status = to
	return true, nil
}

type fakeFetcher struct {
	bySource map[string][]domain.RawArticle
	order    []string
}

func (f *fakeFetcher) FetchSource(_ context.Context, source *domain.NewsSource) ([]domain.RawArticle, error) {
	f.order = append(f.order, source.ID)
	return f.bySource[source.ID], nil
}

type fakeSynthesizer struct {
	calls     int
	synthesis domain.Synthesis
	err       error
}

func (f *fakeSynthesizer) Synthesize(context.Context, *domain.StoryCluster, []domain.RawArticle) (domain.Synthesis, error) {
	f.calls++
	return f.synthesis, f.err
}

func storyArticle(id, sourceID, sourceName, text string) domain.RawArticle {
	return domain.RawArticle{
		ID:         id,
		SourceID:   sourceID,
		SourceName: sourceName,
		URL:        "https://example.test/" + id,
		Title:      text,
		Content:    text,
		Quality:    0.7,
	}
}

func dutchRule() domain.CrossReferenceRule {
	return domain.CrossReferenceRule{
		TriggerSource:   "NU.nl",
		RequiredSources: []string{"De Telegraaf", "NOS", "De Volkskrant"},
		MinimumMatches:  2,
		RecheckDelay:    time.Hour,
	}
}

func testPipeline(repo *memRepo, fetcher *fakeFetcher, synth *fakeSynthesizer) *Pipeline {
	clusterer := cluster.NewClusterer(0, 0, 0, nil)
	verifier := verify.New([]domain.CrossReferenceRule{dutchRule()}, repo, repo, 0.30, nil)
	return NewPipeline(PipelineDeps{
		Fetcher:     fetcher,
		Sources:     repo,
		Articles:    repo,
		Clusters:    repo,
		Clusterer:   clusterer,
		Verifier:    verifier,
		Synthesizer: synth,
	})
}

func TestOrderByTierPrimaryFirstAndStable(t *testing.T) {
	sources := []domain.NewsSource{
		{ID: "nos", Tier: domain.TierSecondary},
		{ID: "reuters", Tier: domain.TierInternational},
		{ID: "nu-nl", Tier: domain.TierPrimary},
		{ID: "telegraaf", Tier: domain.TierSecondary},
	}
	orderByTier(sources)

	got := make([]string, len(sources))
	for i, s := range sources {
		got[i] = s.ID
	}
	require.Equal(t, []string{"nu-nl", "nos", "telegraaf", "reuters"}, got)
}

func TestRunCrawlClustersVerifiesAndSummarizes(t *testing.T) {
	story := "grote brand winkelcentrum rotterdam brandweer schade"
	other := "kabinet presenteert nieuwe begroting miljoenennota belasting"

	repo := newMemRepo(
		domain.NewsSource{ID: "telegraaf", Name: "De Telegraaf", Tier: domain.TierSecondary},
		domain.NewsSource{ID: "nu-nl", Name: "NU.nl", Tier: domain.TierPrimary},
		domain.NewsSource{ID: "nos", Name: "NOS", Tier: domain.TierSecondary},
	)
	fetcher := &fakeFetcher{bySource: map[string][]domain.RawArticle{
		"nu-nl": {
			storyArticle("a1", "nu-nl", "NU.nl", story),
			storyArticle("a4", "nu-nl", "NU.nl", other),
		},
		"telegraaf": {storyArticle("a2", "telegraaf", "De Telegraaf", story)},
		"nos":       {storyArticle("a3", "nos", "NOS", story)},
	}}

	p := testPipeline(repo, fetcher, &fakeSynthesizer{})

	summary, err := p.RunCrawl(context.Background())
	require.NoError(t, err)

	require.Equal(t, "nu-nl", fetcher.order[0], "primary sources are fetched first")
	require.Equal(t, 3, summary.Sources)
	require.Equal(t, 4, summary.Fetched)
	require.Equal(t, 4, summary.Inserted)
	require.Equal(t, 2, summary.Clusters)
	require.Equal(t, 1, summary.Ready, "corroborated story is ready")
	require.Equal(t, 1, summary.Pending, "uncorroborated story awaits recheck")
	require.Zero(t, summary.Rejected)

	var ready, pending *domain.StoryCluster
	for _, sc := range repo.clusters {
		switch sc.Status {
		case domain.StatusAnalyzing:
			ready = sc
		case domain.StatusDetecting:
			pending = sc
		}
	}
	require.NotNil(t, ready)
	require.ElementsMatch(t, []string{"a1", "a2", "a3"}, ready.ArticleIDs)
	require.NotNil(t, pending)
	require.Equal(t, 1, pending.RecheckAttempts)
	require.False(t, pending.NextRecheckAt.IsZero())

	// A second pass over unchanged feeds ingests nothing new.
	summary, err = p.RunCrawl(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, summary.Fetched)
	require.Zero(t, summary.Inserted)
	require.Zero(t, summary.Clusters)
}

func TestFetchOne(t *testing.T) {
	repo := newMemRepo(domain.NewsSource{ID: "nos", Name: "NOS"})
	fetcher := &fakeFetcher{bySource: map[string][]domain.RawArticle{
		"nos": {storyArticle("a1", "nos", "NOS", "storm kust schade")},
	}}
	p := testPipeline(repo, fetcher, &fakeSynthesizer{})

	inserted, err := p.FetchOne(context.Background(), "nos")
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	// Same feed again: duplicate absorbed.
	inserted, err = p.FetchOne(context.Background(), "nos")
	require.NoError(t, err)
	require.Zero(t, inserted)

	_, err = p.FetchOne(context.Background(), "unknown")
	require.Error(t, err)
}

func TestSynthesizeOneCompletesCluster(t *testing.T) {
	repo := newMemRepo()
	repo.articles = []domain.RawArticle{storyArticle("a1", "nu-nl", "NU.nl", "storm kust")}
	repo.clusters["c1"] = &domain.StoryCluster{
		ID:         "c1",
		Status:     domain.StatusAnalyzing,
		ArticleIDs: []string{"a1"},
	}

	synth := &fakeSynthesizer{synthesis: domain.Synthesis{Title: "Storm aan de kust", Confidence: 0.8}}
	p := testPipeline(repo, &fakeFetcher{}, synth)

	got, err := p.SynthesizeOne(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, "Storm aan de kust", got.Title)
	require.Equal(t, 1, synth.calls)
	require.Equal(t, domain.StatusComplete, repo.clusters["c1"].Status)
	require.Equal(t, []string{"a1"}, repo.processed)
}

func TestSynthesizeOneRequiresAnalyzingStatus(t *testing.T) {
	repo := newMemRepo()
	repo.clusters["c1"] = &domain.StoryCluster{ID: "c1", Status: domain.StatusDetecting}
	p := testPipeline(repo, &fakeFetcher{}, &fakeSynthesizer{})

	_, err := p.SynthesizeOne(context.Background(), "c1")
	require.Error(t, err)
}

func TestSynthesizeOneLeavesClusterOnFailure(t *testing.T) {
	repo := newMemRepo()
	repo.clusters["c1"] = &domain.StoryCluster{ID: "c1", Status: domain.StatusAnalyzing}

	synth := &fakeSynthesizer{err: errors.New("service unavailable")}
	p := testPipeline(repo, &fakeFetcher{}, synth)

	_, err := p.SynthesizeOne(context.Background(), "c1")
	require.Error(t, err)
	require.Equal(t, domain.StatusAnalyzing, repo.clusters["c1"].Status,
		"a failed synthesis leaves the cluster ready for retry")
}
