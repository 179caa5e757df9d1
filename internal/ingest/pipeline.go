package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
	"github.com/samvad-hq/samvad-news-ingest/internal/storage"
	"github.com/samvad-hq/samvad-news-ingest/pkg/providers"
	"github.com/samvad-hq/samvad-news-ingest/pkg/publishers"
)

// ingestProvider runs one provider end to end. A returned error is fatal to the
// provider only; per-item problems are collected in the result.
func (s *Service) ingestProvider(ctx context.Context, p providers.Provider) (domain.IngestionResult, error) {
	cred, err := s.store.Credential(ctx, p.CredentialKey)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.IngestionResult{}, fmt.Errorf("%w: no credential registered for %s", domain.ErrConfiguration, p.CredentialKey)
	}
	if err != nil {
		return domain.IngestionResult{}, fmt.Errorf("load credential %s: %w", p.CredentialKey, err)
	}

	adapter, err := s.adapters.AdapterFor(p)
	if err != nil {
		return domain.IngestionResult{}, err
	}

	batch, err := adapter.Fetch(ctx, p, cred)
	if err != nil {
		return domain.IngestionResult{}, err
	}

	res := domain.IngestionResult{Success: true, Errors: append([]domain.ItemError(nil), batch.Errors...)}
	for _, draft := range batch.Drafts {
		stored, err := s.storeDraft(ctx, p, draft)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, domain.ItemError{Title: itemTitle(draft), Message: err.Error()})
		case stored:
			res.StoredCount++
		default:
			res.SkippedCount++
		}
	}
	if res.Errors == nil {
		res.Errors = []domain.ItemError{}
	}
	return res, nil
}

// storeDraft applies dedup, optional enrichment, source resolution and the atomic
// insert for one draft.
// It reports false when the URL was already stored.
func (s *Service) storeDraft(ctx context.Context, p providers.Provider, draft domain.Draft) (bool, error) {
	exists, err := s.store.ArticleExists(ctx, draft.URL)
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		return false, nil
	}
	if s.enricher != nil {
		draft = s.enricher.Enrich(ctx, p, draft)
	}

	src, err := s.store.ResolveSource(ctx, draft.SourceExternalID, draft.SourceName)
	if err != nil {
		return false, fmt.Errorf("resolve source %q: %w", draft.SourceName, err)
	}

	article, inserted, err := s.store.InsertArticle(ctx, draft.Article(src.ID))
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	if !inserted {
		return false, nil
	}

	s.publish(ctx, p, src, article)
	return true, nil
}

func (s *Service) publish(ctx context.Context, p providers.Provider, src domain.Source, article domain.Article) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, publishers.NewEvent(p.ID, src.Name, article)); err != nil {
		s.metrics.PublishFailed(p.ID)
		s.log.WarnObj("article publish failed", "publish_error", map[string]any{
			"provider_id": p.ID,
			"article_id":  article.ID,
			"url":         article.URL,
			"error":       err.Error(),
		})
	}
}

func itemTitle(d domain.Draft) string {
	if d.Title == "" {
		return "Unknown"
	}
	return d.Title
}
