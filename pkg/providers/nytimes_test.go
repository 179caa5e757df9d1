package providers

import (
	"context"
	"testing"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

func nytimesCredential() domain.Credential {
	return domain.Credential{
		ProviderID:  "nytimes.com",
		EndpointURL: "https://api.nytimes.com/svc/search/v2/articlesearch.json",
		APIKey:      "test-nytimes-key",
	}
}

func TestNYTimesAdapterMapsDocs(t *testing.T) {
	body := `{"status":"OK","response":{"docs":[
	  {
	    "web_url": "https://www.nytimes.com/2025/01/10/technology/test-article-1.html",
	    "headline": {"main": "NY Times Article 1"},
	    "byline": {"original": "By Test Author"},
	    "abstract": "Abstract 1",
	    "lead_paragraph": "Plain text.",
	    "pub_date": "2025-01-10T12:00:00+0000",
	    "multimedia": {
	      "default": {"url": "https://static01.nyt.com/default1.jpg"},
	      "thumbnail": {"url": "https://static01.nyt.com/thumb1.jpg"}
	    }
	  },
	  {
	    "web_url": "https://www.nytimes.com/2.html",
	    "headline": {"main": "NY Times Article 2"},
	    "byline": {"person": [{"firstname": "Ada", "lastname": "Lovelace"}, {"firstname": "Alan", "lastname": "Turing"}]},
	    "snippet": "Tom & \"Jerry\"\nsecond line",
	    "multimedia": {"thumbnail": {"url": "https://static01.nyt.com/thumb2.jpg"}}
	  },
	  {
	    "web_url": "https://www.nytimes.com/3.html",
	    "headline": {"main": "NY Times Article 3"},
	    "lead_paragraph": "<p>already markup</p>",
	    "multimedia": [{"url": "images/legacy.jpg"}]
	  }
	]}}`
	client := mockHTTPClient{
		t:         t,
		expectURL: "https://api.nytimes.com/svc/search/v2/articlesearch.json?sort=newest&page=0&api-key=test-nytimes-key",
		body:      body,
	}

	batch, err := NewNYTimesAdapter(client).Fetch(context.Background(), mustProvider(t, "nytimes"), nytimesCredential())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(batch.Errors) != 0 || len(batch.Drafts) != 3 {
		t.Fatalf("expected 3 drafts and no errors, got %d / %v", len(batch.Drafts), batch.Errors)
	}

	first := batch.Drafts[0]
	if first.Content != "<p>Plain text.</p>" {
		t.Errorf("unexpected wrapped content %q", first.Content)
	}
	if first.Description != "Abstract 1" || first.Author != "By Test Author" {
		t.Errorf("unexpected description/author %q / %q", first.Description, first.Author)
	}
	if first.ImageURL == nil || *first.ImageURL != "https://static01.nyt.com/default1.jpg" {
		t.Errorf("expected default image, got %v", first.ImageURL)
	}
	if first.PublishedAt == nil || first.PublishedAt.Hour() != 12 {
		t.Errorf("unexpected published at %v", first.PublishedAt)
	}
	if first.SourceName != "The New York Times" {
		t.Errorf("unexpected source %q", first.SourceName)
	}

	second := batch.Drafts[1]
	if second.Author != "Ada Lovelace, Alan Turing" {
		t.Errorf("unexpected joined author %q", second.Author)
	}
	if second.Description != "" {
		t.Errorf("expected empty description, got %q", second.Description)
	}
	if second.Content != "<p>Tom &amp; &quot;Jerry&quot;<br />\nsecond line</p>" {
		t.Errorf("unexpected escaped content %q", second.Content)
	}
	if second.ImageURL == nil || *second.ImageURL != "https://static01.nyt.com/thumb2.jpg" {
		t.Errorf("expected thumbnail fallback, got %v", second.ImageURL)
	}
	if second.PublishedAt != nil {
		t.Errorf("expected nil published at, got %v", second.PublishedAt)
	}

	third := batch.Drafts[2]
	if third.Content != "<p>already markup</p>" {
		t.Errorf("markup content must not be wrapped, got %q", third.Content)
	}
	if third.ImageURL != nil {
		t.Errorf("legacy multimedia arrays carry no image, got %v", *third.ImageURL)
	}
}

func TestNYTimesAdapterReportsBadDocs(t *testing.T) {
	body := `{"response":{"docs":[{"headline":{"main":"Broken"},"pub_date":"soon"}, {"headline":"flat"}]}}`
	batch, err := NewNYTimesAdapter(mockHTTPClient{t: t, body: body}).Fetch(context.Background(), mustProvider(t, "nytimes"), nytimesCredential())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(batch.Drafts) != 0 || len(batch.Errors) != 2 {
		t.Fatalf("expected 2 item errors, got drafts=%d errors=%v", len(batch.Drafts), batch.Errors)
	}
	if batch.Errors[0].Title != "Broken" || batch.Errors[1].Title != "Unknown" {
		t.Fatalf("unexpected error titles %+v", batch.Errors)
	}
}
