package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsVerifier/internal/cluster"
	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/logging"
	"NewsVerifier/internal/ports"
)

// ReasonExhausted is recorded when the recheck attempt budget runs out.
const ReasonExhausted = "exceeded max recheck attempts"

// ReasonNoRule is recorded when no configured rule applies to a cluster.
const ReasonNoRule = "no cross-reference rule applies"

// Verifier applies corroboration rules to a story cluster and decides
// readiness. It is the only component allowed to move a cluster to
// StatusAnalyzing; every story handed to synthesis has therefore met the
// minimum-corroboration bar.
type Verifier struct {
	rules     []domain.CrossReferenceRule
	clusters  ports.ClusterRepository
	articles  ports.ArticleRepository
	admission float64
	window    time.Duration
	topK      int
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a verifier around a rule table and repositories.
func New(rules []domain.CrossReferenceRule, clusters ports.ClusterRepository, articles ports.ArticleRepository, admission float64, logger *slog.Logger) *Verifier {
	if admission <= 0 {
		admission = cluster.DefaultAdmissionThreshold
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Verifier{
		rules:     rules,
		clusters:  clusters,
		articles:  articles,
		admission: admission,
		window:    48 * time.Hour,
		topK:      cluster.DefaultTopKeywords,
		logger:    logger,
		now:       time.Now,
	}
}

// VerifyCluster runs one verification pass and folds the result into the
// cluster's persisted fields. Insufficiency is a first-class outcome,
// not an error.
func (v *Verifier) VerifyCluster(ctx context.Context, sc *domain.StoryCluster) (domain.CrossReferenceResult, error) {
	var result domain.CrossReferenceResult

	if sc.Status != domain.StatusDetecting {
		return result, fmt.Errorf("cluster %s is %s, not verifiable", sc.ID, sc.Status)
	}

	members, err := v.articles.ArticlesByIDs(ctx, sc.ArticleIDs)
	if err != nil {
		return result, fmt.Errorf("load cluster members: %w", err)
	}

	rule, trigger, ok := v.matchRule(members)
	if !ok {
		result.Recommendation = domain.RecommendInsufficient
		return result, v.fail(ctx, sc, ReasonNoRule)
	}
	result.Rule = rule
	result.TriggerArticle = trigger

	candidates, err := v.candidatePool(ctx, sc, members)
	if err != nil {
		return result, err
	}

	result.Matched, result.Missing = matchRequired(rule, candidates)
	result.Score = float64(len(result.Matched)) / float64(len(rule.RequiredSources))

	switch {
	case len(result.Matched) >= rule.MinimumMatches:
		result.Recommendation = domain.RecommendImmediate
	case sc.RecheckAttempts >= domain.MaxRecheckAttempts:
		result.Recommendation = domain.RecommendInsufficient
	default:
		result.Recommendation = domain.RecommendDelayed
		result.RecheckAt = v.now().UTC().Add(rule.RecheckDelay)
	}

	return result, v.apply(ctx, sc, trigger, result)
}

// apply persists the verification outcome onto the cluster, guarded by
// its current status so concurrent passes over the same cluster cannot
// both win.
func (v *Verifier) apply(ctx context.Context, sc *domain.StoryCluster, trigger *domain.RawArticle, result domain.CrossReferenceResult) error {
	sc.Corroboration = result.Score
	sc.SourcesFound = matchedNames(result.Rule, result.Matched)
	sc.SourcesMissing = result.Missing
	sc.TriggerArticleID = trigger.ID
	sc.UpdatedAt = v.now().UTC()
	for _, article := range result.Matched {
		if !sc.HasMember(article.ID) {
			sc.ArticleIDs = append(sc.ArticleIDs, article.ID)
		}
	}

	switch result.Recommendation {
	case domain.RecommendImmediate:
		applied, err := v.clusters.TransitionStatus(ctx, sc.ID, domain.StatusDetecting, domain.StatusAnalyzing)
		if err != nil {
			return fmt.Errorf("transition cluster %s: %w", sc.ID, err)
		}
		if !applied {
			v.logger.Warn("lost verification race", "cluster", sc.ID)
			return nil
		}
		sc.Status = domain.StatusAnalyzing
		sc.NextRecheckAt = time.Time{}
		v.logger.Info("cluster corroborated", "cluster", sc.ID, "score", result.Score)

	case domain.RecommendDelayed:
		sc.RecheckAttempts++
		sc.NextRecheckAt = result.RecheckAt
		v.logger.Info("cluster awaiting corroboration",
			"cluster", sc.ID, "missing", sc.SourcesMissing, "attempt", sc.RecheckAttempts)

	case domain.RecommendInsufficient:
		return v.fail(ctx, sc, ReasonExhausted)
	}

	if err := v.clusters.SaveCluster(ctx, sc); err != nil {
		return fmt.Errorf("save cluster %s: %w", sc.ID, err)
	}
	return nil
}

func (v *Verifier) fail(ctx context.Context, sc *domain.StoryCluster, reason string) error {
	applied, err := v.clusters.TransitionStatus(ctx, sc.ID, domain.StatusDetecting, domain.StatusFailed)
	if err != nil {
		return fmt.Errorf("fail cluster %s: %w", sc.ID, err)
	}
	if !applied {
		return nil
	}
	sc.Status = domain.StatusFailed
	sc.FailureReason = reason
	sc.NextRecheckAt = time.Time{}
	sc.UpdatedAt = v.now().UTC()
	v.logger.Info("cluster failed verification", "cluster", sc.ID, "reason", reason)

	if err := v.clusters.SaveCluster(ctx, sc); err != nil {
		return fmt.Errorf("save failed cluster %s: %w", sc.ID, err)
	}
	return nil
}

// matchRule finds the first configured rule whose trigger source is
// present among the member articles, returning the highest-quality
// trigger article.
func (v *Verifier) matchRule(members []domain.RawArticle) (domain.CrossReferenceRule, *domain.RawArticle, bool) {
	for _, rule := range v.rules {
		var trigger *domain.RawArticle
		for i := range members {
			if !SourceNamesMatch(rule.TriggerSource, members[i].SourceName) {
				continue
			}
			if trigger == nil || members[i].Quality > trigger.Quality {
				trigger = &members[i]
			}
		}
		if trigger != nil {
			return rule, trigger, true
		}
	}
	return domain.CrossReferenceRule{}, nil, false
}

// candidatePool assembles the articles eligible to satisfy required
// sources: current members plus any recent repository article whose
// keyword set clears the cluster's admission bar.
func (v *Verifier) candidatePool(ctx context.Context, sc *domain.StoryCluster, members []domain.RawArticle) ([]domain.RawArticle, error) {
	pool := append([]domain.RawArticle(nil), members...)

	recent, err := v.articles.RecentArticles(ctx, v.now().UTC().Add(-v.window))
	if err != nil {
		return nil, fmt.Errorf("load candidate articles: %w", err)
	}

	for _, article := range recent {
		if sc.HasMember(article.ID) {
			continue
		}
		keywords := cluster.ExtractKeywords(article.Title+" "+article.Text(), v.topK)
		if cluster.Jaccard(keywords, sc.Keywords) >= v.admission {
			pool = append(pool, article)
		}
	}
	return pool, nil
}

// matchRequired resolves each required source to its best candidate
// article. Exact name matches beat substring matches; within a tier the
// highest quality score wins, ties by candidate order.
func matchRequired(rule domain.CrossReferenceRule, candidates []domain.RawArticle) (matched []domain.RawArticle, missing []string) {
	for _, required := range rule.RequiredSources {
		var (
			best     *domain.RawArticle
			bestKind matchKind
		)
		for i := range candidates {
			kind := matchSourceName(required, candidates[i].SourceName)
			if kind == matchNone {
				continue
			}
			if kind > bestKind || (kind == bestKind && candidates[i].Quality > best.Quality) {
				best = &candidates[i]
				bestKind = kind
			}
		}
		if best != nil {
			matched = append(matched, *best)
		} else {
			missing = append(missing, required)
		}
	}
	return matched, missing
}

// matchedNames maps matched articles back to the rule's source names so
// found/missing sets stay in the rule's vocabulary and remain disjoint.
func matchedNames(rule domain.CrossReferenceRule, matched []domain.RawArticle) []string {
	var names []string
	for _, required := range rule.RequiredSources {
		for _, article := range matched {
			if SourceNamesMatch(required, article.SourceName) {
				names = append(names, required)
				break
			}
		}
	}
	return names
}
