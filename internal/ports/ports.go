package ports

import (
	"context"
	"time"

	"NewsVerifier/internal/domain"
)

// FeedSource pulls and normalizes fresh articles from one feed origin.
type FeedSource interface {
	FetchSource(ctx context.Context, source *domain.NewsSource) ([]domain.RawArticle, error)
}

// SourceRepository stores configured feed origins and their fetch
// bookkeeping.
type SourceRepository interface {
	SaveSource(ctx context.Context, source domain.NewsSource) error
	Source(ctx context.Context, id string) (domain.NewsSource, error)
	ListSources(ctx context.Context) ([]domain.NewsSource, error)
	// RecordFetch updates last-fetched time and resets the error counter
	// on success; on failure it only increments the counter.
	RecordFetch(ctx context.Context, id string, at time.Time, failed bool) error
}

// ArticleRepository persists normalized articles with dedup-on-write
// semantics keyed by (source, URL).
type ArticleRepository interface {
	// UpsertArticle reports whether a new row was inserted; duplicates
	// are absorbed silently.
	UpsertArticle(ctx context.Context, article domain.RawArticle) (bool, error)
	ArticlesByIDs(ctx context.Context, ids []string) ([]domain.RawArticle, error)
	RecentArticles(ctx context.Context, since time.Time) ([]domain.RawArticle, error)
	MarkProcessed(ctx context.Context, ids []string) error
}

// ClusterRepository stores story clusters; TransitionStatus is the
// status-guarded write that serializes operations per cluster.
type ClusterRepository interface {
	SaveCluster(ctx context.Context, cluster *domain.StoryCluster) error
	Cluster(ctx context.Context, id string) (*domain.StoryCluster, error)
	DueForRecheck(ctx context.Context, now time.Time) ([]*domain.StoryCluster, error)
	// TransitionStatus applies the status change only if the cluster is
	// still in the expected state, reporting whether it took effect.
	TransitionStatus(ctx context.Context, id string, from, to domain.ClusterStatus) (bool, error)
}

// TaskStore is the durable queue behind the task runner.
type TaskStore interface {
	SaveTask(ctx context.Context, task *domain.Task) error
	Task(ctx context.Context, id string) (*domain.Task, error)
	// ClaimNext atomically picks the next eligible pending task (due,
	// ordered by priority then schedule time) and marks it running.
	// Returns nil when nothing is eligible.
	ClaimNext(ctx context.Context, now time.Time) (*domain.Task, error)
	UpdateTask(ctx context.Context, task *domain.Task) error
}

// Synthesizer invokes the external text-generation service for a ready
// cluster.
type Synthesizer interface {
	Synthesize(ctx context.Context, cluster *domain.StoryCluster, articles []domain.RawArticle) (domain.Synthesis, error)
}

// Deliverer posts task result notifications to external listeners.
type Deliverer interface {
	Deliver(ctx context.Context, url string, body []byte) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
