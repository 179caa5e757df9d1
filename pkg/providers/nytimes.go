package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

// nytimesAdapter maps the NYT article search API (newspaper-search shape).
type nytimesAdapter struct {
	client HTTPClient
}

// NewNYTimesAdapter builds the newspaper-search adapter.
func NewNYTimesAdapter(client HTTPClient) Adapter {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &nytimesAdapter{client: client}
}

func (a *nytimesAdapter) Kind() Kind { return KindNewspaperSearch }

type nytimesEnvelope struct {
	Response struct {
		Docs []json.RawMessage `json:"docs"`
	} `json:"response"`
}

type nytimesPerson struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type nytimesDoc struct {
	WebURL        string `json:"web_url"`
	Abstract      string `json:"abstract"`
	LeadParagraph string `json:"lead_paragraph"`
	Snippet       string `json:"snippet"`
	PubDate       string `json:"pub_date"`
	Headline      struct {
		Main string `json:"main"`
	} `json:"headline"`
	Byline struct {
		Original *string         `json:"original"`
		Person   []nytimesPerson `json:"person"`
	} `json:"byline"`
	// Multimedia is an object in the current API and an array in older payloads.
	Multimedia json.RawMessage `json:"multimedia"`
}

type nytimesImage struct {
	URL string `json:"url"`
}

type nytimesMultimedia struct {
	Default   *nytimesImage `json:"default"`
	Thumbnail *nytimesImage `json:"thumbnail"`
}

func (a *nytimesAdapter) Fetch(ctx context.Context, p Provider, cred domain.Credential) (Batch, error) {
	if p.Kind != KindNewspaperSearch {
		return Batch{}, fmt.Errorf("nytimes adapter received incompatible provider %q (kind %q)", p.ID, p.Kind)
	}

	raw, err := fetchJSON(ctx, a.client, p, cred)
	if err != nil {
		return Batch{}, err
	}

	var env nytimesEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Batch{}, invalidResponse(p, err)
	}
	if env.Response.Docs == nil {
		return Batch{}, invalidResponse(p, nil)
	}

	batch := Batch{Drafts: make([]domain.Draft, 0, len(env.Response.Docs))}
	for _, item := range env.Response.Docs {
		draft, err := mapNYTimesDoc(p, item)
		if err != nil {
			title := bestEffortTitle(item, []string{"headline", "main"})
			batch.Errors = append(batch.Errors, mappingError(title, err))
			continue
		}
		batch.Drafts = append(batch.Drafts, draft)
	}
	return batch, nil
}

func mapNYTimesDoc(p Provider, raw json.RawMessage) (domain.Draft, error) {
	var doc nytimesDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Draft{}, fmt.Errorf("decode item: %w", err)
	}

	publishedAt, err := parseTimestamp(doc.PubDate)
	if err != nil {
		return domain.Draft{}, err
	}

	description := doc.Abstract
	if description == "" {
		description = doc.LeadParagraph
	}

	content := doc.LeadParagraph
	if content == "" {
		content = doc.Snippet
	}

	return domain.Draft{
		Title:       doc.Headline.Main,
		Description: description,
		Author:      nytimesAuthor(doc),
		URL:         doc.WebURL,
		ImageURL:    nytimesImageURL(doc.Multimedia),
		PublishedAt: publishedAt,
		Content:     wrapParagraph(content),
		SourceName:  p.PublisherName,
	}, nil
}

func nytimesAuthor(doc nytimesDoc) string {
	if doc.Byline.Original != nil {
		return *doc.Byline.Original
	}
	names := make([]string, 0, len(doc.Byline.Person))
	for _, person := range doc.Byline.Person {
		names = append(names, person.Firstname+" "+person.Lastname)
	}
	return strings.Join(names, ", ")
}

func nytimesImageURL(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var media nytimesMultimedia
	if err := json.Unmarshal(raw, &media); err != nil {
		return nil
	}
	if media.Default != nil && media.Default.URL != "" {
		return nonEmptyPtr(media.Default.URL)
	}
	if media.Thumbnail != nil {
		return nonEmptyPtr(media.Thumbnail.URL)
	}
	return nil
}
