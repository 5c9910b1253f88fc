package recheck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/logging"
	"NewsVerifier/internal/ports"
	"NewsVerifier/internal/verify"
)

// Summary reports one sweep's progress; it is returned even on partial
// failure so operators can see how far a batch got.
type Summary struct {
	Due       int `json:"due"`
	Rechecked int `json:"rechecked"`
	Ready     int `json:"ready"`
	Delayed   int `json:"delayed"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
}

// Scheduler re-attempts verification for clusters whose recheck time has
// elapsed. Each attempt re-fetches only the specific missing sources,
// never a full crawl, and the attempt budget bounds the total work: a
// story that will never be corroborated stops consuming background
// capacity after MaxRecheckAttempts.
type Scheduler struct {
	clusters ports.ClusterRepository
	sources  ports.SourceRepository
	articles ports.ArticleRepository
	fetcher  ports.FeedSource
	verifier *verify.Verifier
	logger   *slog.Logger
	now      func() time.Time
}

// New wires the sweep dependencies.
func New(clusters ports.ClusterRepository, sources ports.SourceRepository, articles ports.ArticleRepository, fetcher ports.FeedSource, verifier *verify.Verifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		clusters: clusters,
		sources:  sources,
		articles: articles,
		fetcher:  fetcher,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep processes every due cluster once. Individual cluster errors are
// counted, not propagated, so one bad cluster never blocks the sweep.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (Summary, error) {
	var summary Summary

	due, err := s.clusters.DueForRecheck(ctx, now)
	if err != nil {
		return summary, fmt.Errorf("select due clusters: %w", err)
	}
	summary.Due = len(due)

	for _, sc := range due {
		result, err := s.recheckOne(ctx, sc)
		if err != nil {
			summary.Errors++
			s.logger.Error("recheck failed", "cluster", sc.ID, "error", err)
			continue
		}
		summary.Rechecked++
		switch result.Recommendation {
		case domain.RecommendImmediate:
			summary.Ready++
		case domain.RecommendDelayed:
			summary.Delayed++
		case domain.RecommendInsufficient:
			summary.Failed++
		}
	}

	s.logger.Info("recheck sweep done",
		"due", summary.Due, "ready", summary.Ready, "delayed", summary.Delayed,
		"failed", summary.Failed, "errors", summary.Errors)
	return summary, nil
}

// recheckOne re-fetches the cluster's missing sources, ingests any new
// articles, and re-runs verification.
func (s *Scheduler) recheckOne(ctx context.Context, sc *domain.StoryCluster) (domain.CrossReferenceResult, error) {
	s.logger.Debug("rechecking cluster",
		"cluster", sc.ID, "attempt", sc.RecheckAttempts, "missing", sc.SourcesMissing)

	for _, source := range s.missingSources(ctx, sc) {
		articles, err := s.fetcher.FetchSource(ctx, &source)
		if err != nil {
			// Transient fetch trouble is already absorbed by the
			// fetcher; anything surfacing here is unexpected.
			return domain.CrossReferenceResult{}, fmt.Errorf("fetch source %s: %w", source.ID, err)
		}
		for _, article := range articles {
			if _, err := s.articles.UpsertArticle(ctx, article); err != nil {
				return domain.CrossReferenceResult{}, fmt.Errorf("ingest article %s: %w", article.URL, err)
			}
		}
	}

	return s.verifier.VerifyCluster(ctx, sc)
}

// missingSources resolves the cluster's missing source names to
// configured sources via fuzzy name matching.
func (s *Scheduler) missingSources(ctx context.Context, sc *domain.StoryCluster) []domain.NewsSource {
	all, err := s.sources.ListSources(ctx)
	if err != nil {
		s.logger.Warn("list sources", "error", err)
		return nil
	}

	var matched []domain.NewsSource
	for _, missing := range sc.SourcesMissing {
		for _, source := range all {
			if verify.SourceNamesMatch(missing, source.Name) {
				matched = append(matched, source)
				break
			}
		}
	}
	return matched
}
