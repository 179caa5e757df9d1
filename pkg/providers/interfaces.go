package providers

import (
	"context"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
	"github.com/samvad-hq/samvad-news-ingest/pkg/httpclient"
)

// Batch is what one adapter call produced: mapped drafts plus the items it could not map.
type Batch struct {
	Drafts []domain.Draft
	Errors []domain.ItemError
}

// Adapter fetches one provider response and maps every item to a draft.
// Concrete implementations live in provider-specific files (e.g., guardian.go).
type Adapter interface {
	Kind() Kind
	Fetch(ctx context.Context, p Provider, cred domain.Credential) (Batch, error)
}

// AdapterRegistry resolves the adapter implementation for a given provider.
type AdapterRegistry interface {
	AdapterFor(p Provider) (Adapter, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within providers.
type HTTPClient = httpclient.Client
