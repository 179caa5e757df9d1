package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

// newsAPIAdapter maps NewsAPI.org (aggregator shape). The publisher varies per article.
type newsAPIAdapter struct {
	client HTTPClient
}

// NewNewsAPIAdapter builds the aggregator adapter.
func NewNewsAPIAdapter(client HTTPClient) Adapter {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &newsAPIAdapter{client: client}
}

func (a *newsAPIAdapter) Kind() Kind { return KindAggregator }

type newsAPIEnvelope struct {
	Articles []json.RawMessage `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

var errMissingSourceName = errors.New("source name is missing")

func (a *newsAPIAdapter) Fetch(ctx context.Context, p Provider, cred domain.Credential) (Batch, error) {
	if p.Kind != KindAggregator {
		return Batch{}, fmt.Errorf("newsapi adapter received incompatible provider %q (kind %q)", p.ID, p.Kind)
	}

	raw, err := fetchJSON(ctx, a.client, p, cred)
	if err != nil {
		return Batch{}, err
	}

	var env newsAPIEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Batch{}, invalidResponse(p, err)
	}
	if env.Articles == nil {
		return Batch{}, invalidResponse(p, nil)
	}

	batch := Batch{Drafts: make([]domain.Draft, 0, len(env.Articles))}
	for _, item := range env.Articles {
		draft, err := mapNewsAPIArticle(item)
		if err != nil {
			batch.Errors = append(batch.Errors, mappingError(bestEffortTitle(item, []string{"title"}), err))
			continue
		}
		batch.Drafts = append(batch.Drafts, draft)
	}
	return batch, nil
}

func mapNewsAPIArticle(raw json.RawMessage) (domain.Draft, error) {
	var art newsAPIArticle
	if err := json.Unmarshal(raw, &art); err != nil {
		return domain.Draft{}, fmt.Errorf("decode item: %w", err)
	}
	if strings.TrimSpace(art.Source.Name) == "" {
		return domain.Draft{}, errMissingSourceName
	}

	publishedAt, err := parseTimestamp(art.PublishedAt)
	if err != nil {
		return domain.Draft{}, err
	}

	return domain.Draft{
		Title:            art.Title,
		Description:      art.Description,
		Author:           art.Author,
		URL:              art.URL,
		ImageURL:         nonEmptyPtr(art.URLToImage),
		PublishedAt:      publishedAt,
		Content:          art.Content,
		SourceExternalID: art.Source.ID,
		SourceName:       art.Source.Name,
	}, nil
}
