package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

func TestNewsAPIAdapterMapsArticles(t *testing.T) {
	body := `{"status":"ok","totalResults":3,"articles":[
	  {"source":{"id":"test","name":"Test Source"},"author":"Test Author","title":"Test Article 1","description":"D1",
	   "url":"https://example.com/article1","urlToImage":"https://example.com/image1.jpg","publishedAt":"2025-01-10T12:00:00Z","content":"Test Content 1"},
	  {"source":{"id":null,"name":"Other Source"},"author":null,"title":"Test Article 2","description":null,
	   "url":"https://example.com/article2","urlToImage":null,"publishedAt":null,"content":null},
	  {"source":{"id":"x"},"title":"Nameless","url":"https://example.com/article3"}
	]}`
	calls := 0
	client := mockHTTPClient{
		t:         t,
		expectURL: "https://newsapi.org/v2/everything?q=technology&pageSize=20",
		expect:    map[string]string{"X-Api-Key": "test-api-key"},
		body:      body,
		calls:     &calls,
	}

	batch, err := NewNewsAPIAdapter(client).Fetch(context.Background(), mustProvider(t, "newsapi.org"), domain.Credential{
		ProviderID:  "newsapi.org",
		EndpointURL: "https://newsapi.org/v2/everything?q=technology&pageSize=20",
		APIKey:      "test-api-key",
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
	if len(batch.Drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(batch.Drafts))
	}

	first := batch.Drafts[0]
	if first.SourceExternalID == nil || *first.SourceExternalID != "test" || first.SourceName != "Test Source" {
		t.Errorf("unexpected source %v / %q", first.SourceExternalID, first.SourceName)
	}
	if first.Title != "Test Article 1" || first.Content != "Test Content 1" || first.Author != "Test Author" {
		t.Errorf("unexpected draft %+v", first)
	}

	second := batch.Drafts[1]
	if second.SourceExternalID != nil || second.SourceName != "Other Source" {
		t.Errorf("unexpected source %v / %q", second.SourceExternalID, second.SourceName)
	}
	if second.Author != "" || second.Description != "" || second.ImageURL != nil || second.PublishedAt != nil {
		t.Errorf("nulls should map to empty values, got %+v", second)
	}

	if len(batch.Errors) != 1 || batch.Errors[0].Title != "Nameless" {
		t.Fatalf("expected one error for nameless source, got %+v", batch.Errors)
	}
}

func TestNewsAPIAdapterRequiresArticlesArray(t *testing.T) {
	client := mockHTTPClient{t: t, body: `{"status":"error","code":"apiKeyInvalid"}`}
	_, err := NewNewsAPIAdapter(client).Fetch(context.Background(), mustProvider(t, "newsapi"), domain.Credential{
		EndpointURL: "https://newsapi.org/v2/everything",
		APIKey:      "k",
	})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
