package ingest

import (
	"context"

	"github.com/samvad-hq/samvad-news-ingest/internal/storage"
	"github.com/samvad-hq/samvad-news-ingest/pkg/providers"
	"github.com/samvad-hq/samvad-news-ingest/pkg/publishers"
)

// ProviderResolver maps a requested provider id or alias to its descriptor.
type ProviderResolver interface {
	Resolve(id string) (providers.Provider, bool)
}

// Store is the persistence surface the pipeline writes through.
type Store interface {
	storage.CredentialStore
	storage.SourceResolver
	storage.ArticleStore
}

// EventPublisher announces newly stored articles downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
