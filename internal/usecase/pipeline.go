package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"NewsVerifier/internal/cluster"
	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/logging"
	"NewsVerifier/internal/ports"
	"NewsVerifier/internal/task"
	"NewsVerifier/internal/verify"
)

// SynthesizePriority makes synthesis jump ahead of routine fetch work.
const SynthesizePriority = 1

// PipelineDeps wires all driven adapters into the orchestration
// pipeline.
type PipelineDeps struct {
	Fetcher     ports.FeedSource
	Sources     ports.SourceRepository
	Articles    ports.ArticleRepository
	Clusters    ports.ClusterRepository
	Clusterer   *cluster.Clusterer
	Verifier    *verify.Verifier
	Runner      *task.Runner
	Synthesizer ports.Synthesizer
	Logger      *slog.Logger
}

// Pipeline implements the ingestion → clustering → verification →
// synthesis workflow.
type Pipeline struct {
	fetcher     ports.FeedSource
	sources     ports.SourceRepository
	articles    ports.ArticleRepository
	clusters    ports.ClusterRepository
	clusterer   *cluster.Clusterer
	verifier    *verify.Verifier
	runner      *task.Runner
	synthesizer ports.Synthesizer
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		fetcher:     deps.Fetcher,
		sources:     deps.Sources,
		articles:    deps.Articles,
		clusters:    deps.Clusters,
		clusterer:   deps.Clusterer,
		verifier:    deps.Verifier,
		runner:      deps.Runner,
		synthesizer: deps.Synthesizer,
		logger:      logger,
	}
}

// CrawlSummary reports one crawl pass; returned even on partial failure
// so operators see batch progress despite individual source errors.
type CrawlSummary struct {
	Sources      int `json:"sources"`
	SourceErrors int `json:"source_errors"`
	Fetched      int `json:"fetched"`
	Inserted     int `json:"inserted"`
	Clusters     int `json:"clusters"`
	Ready        int `json:"ready"`
	Pending      int `json:"pending"`
	Rejected     int `json:"rejected"`
	Enqueued     int `json:"enqueued"`
}

// RunCrawl performs one full pass: fetch every source, persist, cluster
// the fresh batch, verify each cluster, and enqueue synthesis for the
// corroborated ones. Primary-tier sources are always fetched before the
// batch reaches the clusterer, so trigger detection sees a complete
// primary-source snapshot for this pass.
func (p *Pipeline) RunCrawl(ctx context.Context) (CrawlSummary, error) {
	var summary CrawlSummary

	sources, err := p.sources.ListSources(ctx)
	if err != nil {
		return summary, fmt.Errorf("list sources: %w", err)
	}
	orderByTier(sources)
	summary.Sources = len(sources)

	var batch []domain.RawArticle
	for i := range sources {
		articles, err := p.fetcher.FetchSource(ctx, &sources[i])
		if err != nil {
			summary.SourceErrors++
			p.logger.Warn("source fetch error", "source", sources[i].ID, "error", err)
			continue
		}
		summary.Fetched += len(articles)

		for _, article := range articles {
			inserted, err := p.articles.UpsertArticle(ctx, article)
			if err != nil {
				return summary, fmt.Errorf("ingest article %s: %w", article.URL, err)
			}
			if inserted {
				summary.Inserted++
				batch = append(batch, article)
			}
		}
	}

	clusters := p.clusterer.Partition(batch)
	summary.Clusters = len(clusters)

	for _, sc := range clusters {
		if err := p.clusters.SaveCluster(ctx, sc); err != nil {
			return summary, fmt.Errorf("save cluster %s: %w", sc.ID, err)
		}

		result, err := p.verifier.VerifyCluster(ctx, sc)
		if err != nil {
			return summary, fmt.Errorf("verify cluster %s: %w", sc.ID, err)
		}

		switch result.Recommendation {
		case domain.RecommendImmediate:
			summary.Ready++
			if err := p.enqueueSynthesis(ctx, sc.ID); err != nil {
				p.logger.Error("enqueue synthesis", "cluster", sc.ID, "error", err)
			} else {
				summary.Enqueued++
			}
		case domain.RecommendDelayed:
			summary.Pending++
		case domain.RecommendInsufficient:
			summary.Rejected++
		}
	}

	p.logger.Info("crawl pass done",
		"sources", summary.Sources, "fetched", summary.Fetched,
		"inserted", summary.Inserted, "clusters", summary.Clusters,
		"ready", summary.Ready, "pending", summary.Pending, "rejected", summary.Rejected)
	return summary, nil
}

// FetchOne fetches and ingests a single source; backs the fetch task
// handler. Returns the number of newly inserted articles.
func (p *Pipeline) FetchOne(ctx context.Context, sourceID string) (int, error) {
	source, err := p.sources.Source(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("load source %s: %w", sourceID, err)
	}

	articles, err := p.fetcher.FetchSource(ctx, &source)
	if err != nil {
		return 0, fmt.Errorf("fetch source %s: %w", sourceID, err)
	}

	inserted := 0
	for _, article := range articles {
		created, err := p.articles.UpsertArticle(ctx, article)
		if err != nil {
			return inserted, fmt.Errorf("ingest article %s: %w", article.URL, err)
		}
		if created {
			inserted++
		}
	}
	return inserted, nil
}

// VerifyOne runs one verification pass over a stored cluster; backs the
// verify task handler and the manual operational trigger.
func (p *Pipeline) VerifyOne(ctx context.Context, clusterID string) (domain.CrossReferenceResult, error) {
	sc, err := p.clusters.Cluster(ctx, clusterID)
	if err != nil {
		return domain.CrossReferenceResult{}, fmt.Errorf("load cluster %s: %w", clusterID, err)
	}

	result, err := p.verifier.VerifyCluster(ctx, sc)
	if err != nil {
		return result, err
	}

	if result.Recommendation == domain.RecommendImmediate {
		if err := p.enqueueSynthesis(ctx, sc.ID); err != nil {
			p.logger.Error("enqueue synthesis", "cluster", sc.ID, "error", err)
		}
	}
	return result, nil
}

// SynthesizeOne invokes the external text generation for a corroborated
// cluster and completes it; backs the synthesize task handler.
func (p *Pipeline) SynthesizeOne(ctx context.Context, clusterID string) (domain.Synthesis, error) {
	sc, err := p.clusters.Cluster(ctx, clusterID)
	if err != nil {
		return domain.Synthesis{}, fmt.Errorf("load cluster %s: %w", clusterID, err)
	}
	if sc.Status != domain.StatusAnalyzing {
		return domain.Synthesis{}, fmt.Errorf("cluster %s is %s, not ready for synthesis", sc.ID, sc.Status)
	}

	articles, err := p.articles.ArticlesByIDs(ctx, sc.ArticleIDs)
	if err != nil {
		return domain.Synthesis{}, fmt.Errorf("load cluster articles: %w", err)
	}

	synthesis, err := p.synthesizer.Synthesize(ctx, sc, articles)
	if err != nil {
		return domain.Synthesis{}, fmt.Errorf("synthesize cluster %s: %w", sc.ID, err)
	}

	applied, err := p.clusters.TransitionStatus(ctx, sc.ID, domain.StatusAnalyzing, domain.StatusComplete)
	if err != nil {
		return synthesis, fmt.Errorf("complete cluster %s: %w", sc.ID, err)
	}
	if applied {
		if err := p.articles.MarkProcessed(ctx, sc.ArticleIDs); err != nil {
			p.logger.Warn("mark articles processed", "cluster", sc.ID, "error", err)
		}
	}

	return synthesis, nil
}

func (p *Pipeline) enqueueSynthesis(ctx context.Context, clusterID string) error {
	if p.runner == nil {
		return nil
	}
	payload := domain.TaskPayload{Synthesize: &domain.SynthesizePayload{ClusterID: clusterID}}
	_, err := p.runner.Submit(ctx, domain.TaskSynthesize, payload, task.SubmitOptions{Priority: SynthesizePriority})
	return err
}

var tierRank = map[domain.SourceTier]int{
	domain.TierPrimary:       0,
	domain.TierSecondary:     1,
	domain.TierSpecialty:     2,
	domain.TierInternational: 3,
}

// orderByTier puts primary sources first; the sort is stable so sources
// within a tier keep configuration order.
func orderByTier(sources []domain.NewsSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		return tierRank[sources[i].Tier] < tierRank[sources[j].Tier]
	})
}
