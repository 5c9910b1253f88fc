package storage

// Schema is portable across Postgres (lib/pq) and SQLite
// (modernc.org/sqlite): timestamps are epoch seconds, list fields are
// JSON text, and all values are written from Go rather than relying on
// database-side defaults.
const schema = `
CREATE TABLE IF NOT EXISTS sources (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    feed_url        TEXT NOT NULL,
    country         TEXT NOT NULL,
    language        TEXT NOT NULL,
    credibility     INTEGER NOT NULL,
    leaning         TEXT NOT NULL,
    tier            TEXT NOT NULL,
    cross_reference INTEGER NOT NULL,
    last_fetched_at BIGINT NOT NULL,
    error_count     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
    id           TEXT PRIMARY KEY,
    source_id    TEXT NOT NULL,
    source_name  TEXT NOT NULL,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL,
    content      TEXT NOT NULL,
    url          TEXT NOT NULL,
    author       TEXT NOT NULL,
    guid         TEXT NOT NULL,
    categories   TEXT NOT NULL,
    language     TEXT NOT NULL,
    published_at BIGINT NOT NULL,
    quality      REAL NOT NULL,
    status       TEXT NOT NULL,
    fetched_at   BIGINT NOT NULL,
    UNIQUE (source_id, url)
);

CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source_id);

CREATE TABLE IF NOT EXISTS clusters (
    id                   TEXT PRIMARY KEY,
    topic                TEXT NOT NULL,
    keywords             TEXT NOT NULL,
    sources_found        TEXT NOT NULL,
    sources_missing      TEXT NOT NULL,
    status               TEXT NOT NULL,
    trigger_article_id   TEXT NOT NULL,
    similarity_threshold REAL NOT NULL,
    corroboration        REAL NOT NULL,
    recheck_attempts     INTEGER NOT NULL,
    next_recheck_at      BIGINT NOT NULL,
    failure_reason       TEXT NOT NULL,
    article_ids          TEXT NOT NULL,
    created_at           BIGINT NOT NULL,
    updated_at           BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clusters_status ON clusters(status);
CREATE INDEX IF NOT EXISTS idx_clusters_recheck ON clusters(status, next_recheck_at);

CREATE TABLE IF NOT EXISTS tasks (
    id           TEXT PRIMARY KEY,
    type         TEXT NOT NULL,
    payload      TEXT NOT NULL,
    priority     INTEGER NOT NULL,
    retries      INTEGER NOT NULL,
    max_retries  INTEGER NOT NULL,
    status       TEXT NOT NULL,
    last_error   TEXT NOT NULL,
    created_at   BIGINT NOT NULL,
    scheduled_at BIGINT NOT NULL,
    updated_at   BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_eligible ON tasks(status, scheduled_at, priority);
`
