package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/ports"
)

// Repository persists sources, articles, and clusters through one SQL
// handle. Placeholder format is injectable: Dollar for Postgres,
// Question for SQLite.
type Repository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.SourceRepository  = (*Repository)(nil)
	_ ports.ArticleRepository = (*Repository)(nil)
	_ ports.ClusterRepository = (*Repository)(nil)
)

// NewRepository wires a sql.DB with a placeholder dialect.
func NewRepository(db *sql.DB, placeholder sq.PlaceholderFormat) *Repository {
	return &Repository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// Migrate creates the schema if it does not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SaveSource upserts a configured source without touching its fetch
// bookkeeping on conflict.
func (r *Repository) SaveSource(ctx context.Context, source domain.NewsSource) error {
	query := r.builder.Insert("sources").
		Columns("id", "name", "feed_url", "country", "language", "credibility",
			"leaning", "tier", "cross_reference", "last_fetched_at", "error_count").
		Values(source.ID, source.Name, source.FeedURL, source.Country, source.Language,
			source.Credibility, source.Leaning, string(source.Tier),
			boolToInt(source.CrossReferenceRequired), unixOrZero(source.LastFetchedAt), source.ErrorCount).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            name = excluded.name,
            feed_url = excluded.feed_url,
            country = excluded.country,
            language = excluded.language,
            credibility = excluded.credibility,
            leaning = excluded.leaning,
            tier = excluded.tier,
            cross_reference = excluded.cross_reference`)

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("upsert source %s: %w", source.ID, err)
	}
	return nil
}

// Source loads one source by id.
func (r *Repository) Source(ctx context.Context, id string) (domain.NewsSource, error) {
	row := r.selectSources().Where(sq.Eq{"id": id}).RunWith(r.db).QueryRowContext(ctx)
	source, err := scanSource(row)
	if err != nil {
		return domain.NewsSource{}, fmt.Errorf("load source %s: %w", id, err)
	}
	return source, nil
}

// ListSources returns all configured sources in name order.
func (r *Repository) ListSources(ctx context.Context) ([]domain.NewsSource, error) {
	rows, err := r.selectSources().OrderBy("name").RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.NewsSource
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

// RecordFetch updates fetch bookkeeping: success stamps last-fetched and
// resets the error counter, failure only increments the counter.
func (r *Repository) RecordFetch(ctx context.Context, id string, at time.Time, failed bool) error {
	var query sq.UpdateBuilder
	if failed {
		query = r.builder.Update("sources").
			Set("error_count", sq.Expr("error_count + 1")).
			Where(sq.Eq{"id": id})
	} else {
		query = r.builder.Update("sources").
			Set("last_fetched_at", at.Unix()).
			Set("error_count", 0).
			Where(sq.Eq{"id": id})
	}

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("record fetch for %s: %w", id, err)
	}
	return nil
}

// UpsertArticle inserts a normalized article; a duplicate (source, URL)
// is silently absorbed. Reports whether a new row was created.
func (r *Repository) UpsertArticle(ctx context.Context, article domain.RawArticle) (bool, error) {
	query := r.builder.Insert("articles").
		Columns("id", "source_id", "source_name", "title", "description", "content",
			"url", "author", "guid", "categories", "language", "published_at",
			"quality", "status", "fetched_at").
		Values(article.ID, article.SourceID, article.SourceName, article.Title,
			article.Description, article.Content, article.URL, article.Author,
			article.GUID, encodeList(article.Categories), article.Language,
			unixOrZero(article.PublishedAt), article.Quality, string(article.Status),
			unixOrZero(article.FetchedAt)).
		Suffix("ON CONFLICT (source_id, url) DO NOTHING")

	res, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("upsert article %s: %w", article.URL, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ArticlesByIDs loads the given articles, skipping unknown ids.
func (r *Repository) ArticlesByIDs(ctx context.Context, ids []string) ([]domain.RawArticle, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryArticles(ctx, r.selectArticles().Where(sq.Eq{"id": ids}))
}

// RecentArticles returns articles published at or after the cutoff.
func (r *Repository) RecentArticles(ctx context.Context, since time.Time) ([]domain.RawArticle, error) {
	return r.queryArticles(ctx, r.selectArticles().
		Where(sq.GtOrEq{"published_at": since.Unix()}).
		OrderBy("published_at DESC"))
}

// MarkProcessed transitions the given articles to their terminal status.
func (r *Repository) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := r.builder.Update("articles").
		Set("status", string(domain.ArticleProcessed)).
		Where(sq.Eq{"id": ids})
	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// SaveCluster upserts the full cluster snapshot.
func (r *Repository) SaveCluster(ctx context.Context, cluster *domain.StoryCluster) error {
	query := r.builder.Insert("clusters").
		Columns("id", "topic", "keywords", "sources_found", "sources_missing",
			"status", "trigger_article_id", "similarity_threshold", "corroboration",
			"recheck_attempts", "next_recheck_at", "failure_reason", "article_ids",
			"created_at", "updated_at").
		Values(cluster.ID, cluster.Topic, encodeList(cluster.Keywords),
			encodeList(cluster.SourcesFound), encodeList(cluster.SourcesMissing),
			string(cluster.Status), cluster.TriggerArticleID, cluster.SimilarityThreshold,
			cluster.Corroboration, cluster.RecheckAttempts, unixOrZero(cluster.NextRecheckAt),
			cluster.FailureReason, encodeList(cluster.ArticleIDs),
			unixOrZero(cluster.CreatedAt), unixOrZero(cluster.UpdatedAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            topic = excluded.topic,
            keywords = excluded.keywords,
            sources_found = excluded.sources_found,
            sources_missing = excluded.sources_missing,
            status = excluded.status,
            trigger_article_id = excluded.trigger_article_id,
            similarity_threshold = excluded.similarity_threshold,
            corroboration = excluded.corroboration,
            recheck_attempts = excluded.recheck_attempts,
            next_recheck_at = excluded.next_recheck_at,
            failure_reason = excluded.failure_reason,
            article_ids = excluded.article_ids,
            updated_at = excluded.updated_at`)

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("save cluster %s: %w", cluster.ID, err)
	}
	return nil
}

// Cluster loads one cluster by id.
func (r *Repository) Cluster(ctx context.Context, id string) (*domain.StoryCluster, error) {
	row := r.selectClusters().Where(sq.Eq{"id": id}).RunWith(r.db).QueryRowContext(ctx)
	cluster, err := scanCluster(row)
	if err != nil {
		return nil, fmt.Errorf("load cluster %s: %w", id, err)
	}
	return cluster, nil
}

// DueForRecheck selects detecting clusters whose recheck time has
// elapsed.
func (r *Repository) DueForRecheck(ctx context.Context, now time.Time) ([]*domain.StoryCluster, error) {
	rows, err := r.selectClusters().
		Where(sq.Eq{"status": string(domain.StatusDetecting)}).
		Where(sq.Gt{"next_recheck_at": 0}).
		Where(sq.LtOrEq{"next_recheck_at": now.Unix()}).
		OrderBy("next_recheck_at").
		RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("select due clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*domain.StoryCluster
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		clusters = append(clusters, cluster)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	return clusters, nil
}

// TransitionStatus applies a status change only when the cluster is
// still in the expected state. This single guarded write is what
// serializes concurrent passes over the same cluster.
func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to domain.ClusterStatus) (bool, error) {
	query := r.builder.Update("clusters").
		Set("status", string(to)).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id, "status": string(from)})

	res, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("transition cluster %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *Repository) selectSources() sq.SelectBuilder {
	return r.builder.Select("id", "name", "feed_url", "country", "language",
		"credibility", "leaning", "tier", "cross_reference", "last_fetched_at",
		"error_count").From("sources")
}

func (r *Repository) selectArticles() sq.SelectBuilder {
	return r.builder.Select("id", "source_id", "source_name", "title", "description",
		"content", "url", "author", "guid", "categories", "language", "published_at",
		"quality", "status", "fetched_at").From("articles")
}

func (r *Repository) selectClusters() sq.SelectBuilder {
	return r.builder.Select("id", "topic", "keywords", "sources_found",
		"sources_missing", "status", "trigger_article_id", "similarity_threshold",
		"corroboration", "recheck_attempts", "next_recheck_at", "failure_reason",
		"article_ids", "created_at", "updated_at").From("clusters")
}

func (r *Repository) queryArticles(ctx context.Context, query sq.SelectBuilder) ([]domain.RawArticle, error) {
	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.RawArticle
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.NewsSource, error) {
	var (
		source      domain.NewsSource
		tier        string
		crossRef    int
		lastFetched int64
	)
	err := row.Scan(&source.ID, &source.Name, &source.FeedURL, &source.Country,
		&source.Language, &source.Credibility, &source.Leaning, &tier, &crossRef,
		&lastFetched, &source.ErrorCount)
	if err != nil {
		return domain.NewsSource{}, err
	}
	source.Tier = domain.SourceTier(tier)
	source.CrossReferenceRequired = crossRef != 0
	source.LastFetchedAt = timeOrZero(lastFetched)
	return source, nil
}

func scanArticle(row rowScanner) (domain.RawArticle, error) {
	var (
		article     domain.RawArticle
		categories  string
		status      string
		publishedAt int64
		fetchedAt   int64
	)
	err := row.Scan(&article.ID, &article.SourceID, &article.SourceName,
		&article.Title, &article.Description, &article.Content, &article.URL,
		&article.Author, &article.GUID, &categories, &article.Language,
		&publishedAt, &article.Quality, &status, &fetchedAt)
	if err != nil {
		return domain.RawArticle{}, err
	}
	article.Categories = decodeList(categories)
	article.Status = domain.ArticleStatus(status)
	article.PublishedAt = timeOrZero(publishedAt)
	article.FetchedAt = timeOrZero(fetchedAt)
	return article, nil
}

func scanCluster(row rowScanner) (*domain.StoryCluster, error) {
	var (
		cluster                           domain.StoryCluster
		keywords, found, missing, members string
		status                            string
		nextRecheck, createdAt, updatedAt int64
	)
	err := row.Scan(&cluster.ID, &cluster.Topic, &keywords, &found, &missing,
		&status, &cluster.TriggerArticleID, &cluster.SimilarityThreshold,
		&cluster.Corroboration, &cluster.RecheckAttempts, &nextRecheck,
		&cluster.FailureReason, &members, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	cluster.Keywords = decodeList(keywords)
	cluster.SourcesFound = decodeList(found)
	cluster.SourcesMissing = decodeList(missing)
	cluster.Status = domain.ClusterStatus(status)
	cluster.NextRecheckAt = timeOrZero(nextRecheck)
	cluster.ArticleIDs = decodeList(members)
	cluster.CreatedAt = timeOrZero(createdAt)
	cluster.UpdatedAt = timeOrZero(updatedAt)
	return &cluster, nil
}

// IsNotFound reports whether the error stems from a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeList(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}
