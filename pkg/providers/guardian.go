package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

const guardianDescriptionRunes = 200

// guardianAdapter maps the Guardian content API (wire-service shape).
type guardianAdapter struct {
	client HTTPClient
}

// NewGuardianAdapter builds the wire-service adapter.
func NewGuardianAdapter(client HTTPClient) Adapter {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &guardianAdapter{client: client}
}

func (a *guardianAdapter) Kind() Kind { return KindWireService }

type guardianEnvelope struct {
	Response struct {
		Results []json.RawMessage `json:"results"`
	} `json:"response"`
}

type guardianItem struct {
	WebTitle           string `json:"webTitle"`
	WebURL             string `json:"webUrl"`
	WebPublicationDate string `json:"webPublicationDate"`
	Fields             struct {
		Headline  string `json:"headline"`
		Byline    string `json:"byline"`
		Body      string `json:"body"`
		Thumbnail string `json:"thumbnail"`
		TrailText string `json:"trailText"`
	} `json:"fields"`
}

func (a *guardianAdapter) Fetch(ctx context.Context, p Provider, cred domain.Credential) (Batch, error) {
	if p.Kind != KindWireService {
		return Batch{}, fmt.Errorf("guardian adapter received incompatible provider %q (kind %q)", p.ID, p.Kind)
	}

	raw, err := fetchJSON(ctx, a.client, p, cred)
	if err != nil {
		return Batch{}, err
	}

	var env guardianEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Batch{}, invalidResponse(p, err)
	}
	if env.Response.Results == nil {
		return Batch{}, invalidResponse(p, nil)
	}

	batch := Batch{Drafts: make([]domain.Draft, 0, len(env.Response.Results))}
	for _, item := range env.Response.Results {
		draft, err := mapGuardianItem(p, item)
		if err != nil {
			title := bestEffortTitle(item, []string{"fields", "headline"}, []string{"webTitle"})
			batch.Errors = append(batch.Errors, mappingError(title, err))
			continue
		}
		batch.Drafts = append(batch.Drafts, draft)
	}
	return batch, nil
}

func mapGuardianItem(p Provider, raw json.RawMessage) (domain.Draft, error) {
	var item guardianItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return domain.Draft{}, fmt.Errorf("decode item: %w", err)
	}

	publishedAt, err := parseTimestamp(item.WebPublicationDate)
	if err != nil {
		return domain.Draft{}, err
	}

	description := item.Fields.TrailText
	if description == "" && item.Fields.Body != "" {
		description = truncateRunes(stripTags(item.Fields.Body), guardianDescriptionRunes)
	}

	return domain.Draft{
		Title:       firstNonEmpty(item.Fields.Headline, item.WebTitle),
		Description: description,
		Author:      item.Fields.Byline,
		URL:         item.WebURL,
		ImageURL:    nonEmptyPtr(item.Fields.Thumbnail),
		PublishedAt: publishedAt,
		Content:     item.Fields.Body,
		SourceName:  p.PublisherName,
	}, nil
}
