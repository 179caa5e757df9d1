package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS api_credentials (
		provider_id  TEXT PRIMARY KEY,
		endpoint_url TEXT NOT NULL,
		api_key      TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS news_sources (
		id          BIGSERIAL PRIMARY KEY,
		external_id TEXT NULL,
		name        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS news_sources_identity_idx
		ON news_sources ((COALESCE(external_id, '')), name)`,
	`CREATE TABLE IF NOT EXISTS news (
		id           BIGSERIAL PRIMARY KEY,
		source_id    BIGINT NOT NULL REFERENCES news_sources(id) ON DELETE CASCADE,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		author       TEXT NOT NULL DEFAULT '',
		url          TEXT NOT NULL,
		image_url    TEXT NULL,
		published_at TIMESTAMPTZ NULL,
		content      TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS news_url_idx ON news (url)`,
}

const pgForeignKeyViolation = "23503"

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	sourceColumns  = []string{"id", "external_id", "name", "created_at"}
	articleColumns = []string{
		"id", "source_id", "title", "description", "author", "url",
		"image_url", "published_at", "content", "created_at", "updated_at",
	}
)

// postgresStore persists into the news_sources / news tables.
type postgresStore struct {
	db *sql.DB
}

func openPostgres(ctx context.Context, opts Options) (Store, error) {
	db, err := sql.Open("postgres", opts.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(initCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &postgresStore{db: db}
	if err := store.EnsureSchema(initCtx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the tables and unique indexes if they are missing.
func (p *postgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *postgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *postgresStore) Credential(ctx context.Context, providerID string) (domain.Credential, error) {
	query, args, err := psql.Select("provider_id", "endpoint_url", "api_key").
		From("api_credentials").
		Where(sq.Eq{"provider_id": strings.TrimSpace(providerID)}).
		ToSql()
	if err != nil {
		return domain.Credential{}, fmt.Errorf("build credential query: %w", err)
	}

	var cred domain.Credential
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&cred.ProviderID, &cred.EndpointURL, &cred.APIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Credential{}, fmt.Errorf("credential %q: %w", providerID, ErrNotFound)
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("query credential: %w", err)
	}
	return cred, nil
}

func (p *postgresStore) PutCredential(ctx context.Context, cred domain.Credential) error {
	if err := validateCredential(cred); err != nil {
		return err
	}
	query, args, err := psql.Insert("api_credentials").
		Columns("provider_id", "endpoint_url", "api_key").
		Values(strings.TrimSpace(cred.ProviderID), cred.EndpointURL, cred.APIKey).
		Suffix(`ON CONFLICT (provider_id) DO UPDATE
			SET endpoint_url = EXCLUDED.endpoint_url,
			    api_key = EXCLUDED.api_key,
			    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build credential upsert: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// ResolveSource inserts the source or, when the identity index already holds it,
// reads back the existing row. Concurrent callers converge on one row.
func (p *postgresStore) ResolveSource(ctx context.Context, externalID *string, name string) (domain.Source, error) {
	if err := validateSourceName(name); err != nil {
		return domain.Source{}, err
	}
	externalID = normalizeExternalID(externalID)

	insert, args, err := psql.Insert("news_sources").
		Columns("external_id", "name").
		Values(externalID, name).
		Suffix("ON CONFLICT ((COALESCE(external_id, '')), name) DO NOTHING RETURNING " + strings.Join(sourceColumns, ", ")).
		ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build source insert: %w", err)
	}

	src, err := scanSource(p.db.QueryRowContext(ctx, insert, args...))
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Source{}, fmt.Errorf("insert source: %w", err)
	}

	lookup, args, err := psql.Select(sourceColumns...).
		From("news_sources").
		Where(sq.Expr("COALESCE(external_id, '') = ?", derefOr(externalID, ""))).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build source lookup: %w", err)
	}
	src, err = scanSource(p.db.QueryRowContext(ctx, lookup, args...))
	if err != nil {
		return domain.Source{}, fmt.Errorf("lookup source: %w", err)
	}
	return src, nil
}

func (p *postgresStore) ArticleExists(ctx context.Context, url string) (bool, error) {
	query, args, err := psql.Select("1").From("news").Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}
	var one int
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query article exists: %w", err)
	}
	return true, nil
}

func (p *postgresStore) InsertArticle(ctx context.Context, a domain.Article) (domain.Article, bool, error) {
	query, args, err := psql.Insert("news").
		Columns("source_id", "title", "description", "author", "url", "image_url", "published_at", "content").
		Values(a.SourceID, a.Title, a.Description, a.Author, a.URL, a.ImageURL, a.PublishedAt, a.Content).
		Suffix("ON CONFLICT (url) DO NOTHING RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return a, false, fmt.Errorf("build article insert: %w", err)
	}

	err = p.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, false, nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation {
		return a, false, fmt.Errorf("source %d: %w", a.SourceID, ErrNotFound)
	}
	if err != nil {
		return a, false, fmt.Errorf("insert article: %w", err)
	}
	return a, true, nil
}

func (p *postgresStore) ListSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := psql.Select(sourceColumns...).From("news_sources").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (p *postgresStore) ListArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	builder := psql.Select(articleColumns...).From("news").OrderBy("published_at DESC NULLS LAST", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.SourceID, &a.Title, &a.Description, &a.Author, &a.URL,
			&a.ImageURL, &a.PublishedAt, &a.Content, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var src domain.Source
	err := row.Scan(&src.ID, &src.ExternalID, &src.Name, &src.CreatedAt)
	return src, err
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
