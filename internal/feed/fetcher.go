package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"
	"github.com/pemistahl/lingua-go"

	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/logging"
	"NewsVerifier/internal/ports"
)

const userAgent = "NewsVerifier/1.0"

// Options tunes fetch behaviour.
type Options struct {
	Timeout   time.Duration
	Freshness time.Duration
	// EnrichContent fetches the article page and extracts readable text
	// when the feed entry carries no body.
	EnrichContent bool
}

// Fetcher retrieves one source's feed and normalizes entries into
// RawArticle candidates. Transient source errors (timeouts, malformed
// XML, empty feeds) are absorbed: the batch gets an empty result and the
// source's error counter is incremented, never a pipeline failure.
type Fetcher struct {
	client   *http.Client
	sources  ports.SourceRepository
	opts     Options
	detector lingua.LanguageDetector
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.FeedSource = (*Fetcher)(nil)

// NewFetcher wires an HTTP client and source bookkeeping.
func NewFetcher(client *http.Client, sources ports.SourceRepository, opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Freshness <= 0 {
		opts.Freshness = 48 * time.Hour
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = logging.Discard()
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.Dutch, lingua.English).
		Build()

	return &Fetcher{
		client:   client,
		sources:  sources,
		opts:     opts,
		detector: detector,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchSource retrieves and normalizes one feed. Entries older than the
// freshness window are dropped so stale republished content does not
// pollute clustering.
func (f *Fetcher) FetchSource(ctx context.Context, source *domain.NewsSource) ([]domain.RawArticle, error) {
	now := f.now().UTC()

	body, err := f.get(ctx, source.FeedURL)
	if err != nil {
		f.recordFailure(ctx, source, now, err)
		return nil, nil
	}

	entries, err := parseFeed(body)
	if err != nil {
		f.recordFailure(ctx, source, now, err)
		return nil, nil
	}

	cutoff := now.Add(-f.opts.Freshness)
	seen := map[string]struct{}{}
	articles := make([]domain.RawArticle, 0, len(entries))
	for _, entry := range entries {
		article, ok := f.normalize(ctx, entry, source, now, cutoff)
		if !ok {
			continue
		}
		if _, dup := seen[article.URL]; dup {
			continue
		}
		seen[article.URL] = struct{}{}
		articles = append(articles, article)
	}

	source.LastFetchedAt = now
	source.ErrorCount = 0
	if f.sources != nil {
		if err := f.sources.RecordFetch(ctx, source.ID, now, false); err != nil {
			f.logger.Warn("record fetch", "source", source.ID, "error", err)
		}
	}

	f.logger.Debug("feed fetched", "source", source.ID, "entries", len(entries), "fresh", len(articles))
	return articles, nil
}

func (f *Fetcher) normalize(ctx context.Context, entry feedEntry, source *domain.NewsSource, now, cutoff time.Time) (domain.RawArticle, bool) {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		return domain.RawArticle{}, false
	}

	publishedAt := now
	if entry.Published != "" {
		if parsed, err := dateparse.ParseAny(entry.Published); err == nil {
			publishedAt = parsed.UTC()
		}
	}
	if publishedAt.Before(cutoff) {
		return domain.RawArticle{}, false
	}

	article := domain.RawArticle{
		ID:          uuid.NewString(),
		SourceID:    source.ID,
		SourceName:  source.Name,
		Title:       stripHTML(entry.Title),
		Description: stripHTML(entry.Summary),
		Content:     stripHTML(entry.Content),
		URL:         link,
		Author:      strings.TrimSpace(entry.Author),
		GUID:        entry.GUID,
		Categories:  entry.Categories,
		PublishedAt: publishedAt,
		Status:      domain.ArticlePending,
		FetchedAt:   now,
	}
	if article.GUID == "" {
		article.GUID = link
	}

	if article.Content == "" && f.opts.EnrichContent {
		article.Content = f.extractContent(ctx, link)
	}

	article.Language = f.detectLanguage(article, source)
	article.Quality = qualityScore(article, source.Credibility)
	return article, true
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.Status}
	}

	return io.ReadAll(resp.Body)
}

func (f *Fetcher) extractContent(ctx context.Context, link string) string {
	body, err := f.get(ctx, link)
	if err != nil {
		f.logger.Debug("content enrichment skipped", "url", link, "error", err)
		return ""
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		f.logger.Debug("readability extraction failed", "url", link, "error", err)
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

func (f *Fetcher) detectLanguage(article domain.RawArticle, source *domain.NewsSource) string {
	sample := strings.TrimSpace(article.Title + " " + article.Text())
	if sample != "" {
		if lang, ok := f.detector.DetectLanguageOf(sample); ok {
			return strings.ToLower(lang.IsoCode639_1().String())
		}
	}
	return source.Language
}

func (f *Fetcher) recordFailure(ctx context.Context, source *domain.NewsSource, now time.Time, cause error) {
	source.ErrorCount++
	f.logger.Warn("feed fetch failed", "source", source.ID, "url", source.FeedURL, "error", cause)
	if f.sources == nil {
		return
	}
	if err := f.sources.RecordFetch(ctx, source.ID, now, true); err != nil {
		f.logger.Warn("record fetch failure", "source", source.ID, "error", err)
	}
}

// stripHTML reduces markup-bearing feed fields to plain text.
func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

type statusError struct {
	status string
}

func (e *statusError) Error() string {
	return "unexpected status " + e.status
}
