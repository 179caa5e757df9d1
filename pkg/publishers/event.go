package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

// Event represents the payload published downstream for every newly stored article.
type Event struct {
	ProviderID string         `json:"provider_id"`
	SourceName string         `json:"source_name"`
	Article    domain.Article `json:"article"`
	StoredAt   time.Time      `json:"stored_at"`
}

// NewEvent constructs an Event for the given provider + stored article.
func NewEvent(providerID, sourceName string, article domain.Article) Event {
	return Event{
		ProviderID: providerID,
		SourceName: sourceName,
		Article:    article,
		StoredAt:   time.Now().UTC(),
	}
}
