package providers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

func TestDefaultRegistryResolvesAliases(t *testing.T) {
	reg := DefaultRegistry()
	cases := map[string]string{
		"theguardian.com":               "guardian",
		"open-platform.theguardian.com": "guardian",
		" Guardian ":                    "guardian",
		"api.nytimes.com":               "nytimes",
		"NYTIMES.COM":                   "nytimes",
		"newsapi.org":                   "newsapi",
	}
	for alias, want := range cases {
		p, ok := reg.Resolve(alias)
		if !ok {
			t.Fatalf("alias %q did not resolve", alias)
		}
		if p.ID != want {
			t.Fatalf("alias %q resolved to %q, want %q", alias, p.ID, want)
		}
	}

	if _, ok := reg.Resolve("bbc.co.uk"); ok {
		t.Fatalf("unknown alias should not resolve")
	}
	if _, ok := reg.Resolve("   "); ok {
		t.Fatalf("blank alias should not resolve")
	}
}

func TestLoadRegistryMergesOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "providers.yaml")
	content := `
providers:
  - id: guardian
    default_query: page-size=50
    timeout_seconds: 7
  - id: gnews
    name: GNews
    kind: aggregator
    credential_key: gnews.io
    aliases: [gnews.io]
    key_placement: query
    key_name: token
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write providers file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	if got := len(reg.All()); got != 4 {
		t.Fatalf("expected 4 providers, got %d", got)
	}

	g, ok := reg.Resolve("theguardian.com")
	if !ok {
		t.Fatalf("guardian alias lost after merge")
	}
	if g.DefaultQuery != "page-size=50" {
		t.Fatalf("default query not overridden: %q", g.DefaultQuery)
	}
	if g.PublisherName != "The Guardian" {
		t.Fatalf("publisher name should survive merge, got %q", g.PublisherName)
	}
	if g.Timeout(time.Second) != 7*time.Second {
		t.Fatalf("unexpected timeout %v", g.Timeout(time.Second))
	}

	gn, ok := reg.Resolve("gnews.io")
	if !ok || gn.Kind != KindAggregator {
		t.Fatalf("expected data-defined aggregator provider, got %+v", gn)
	}
}

func TestLoadRegistryRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "providers.yaml")
	content := `
providers:
  - id: rss
    kind: rss_feed
    credential_key: rss
    key_name: key
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write providers file: %v", err)
	}
	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected unknown kind error, got nil")
	}
}

func TestNewRegistryRejectsAliasCollision(t *testing.T) {
	ps := DefaultProviders()
	ps[2].Aliases = append(ps[2].Aliases, "guardian")
	if _, err := NewRegistry(ps...); err == nil {
		t.Fatalf("expected alias collision error")
	}
}

func TestBuildRequestURL(t *testing.T) {
	if got := BuildRequestURL("https://content.guardianapis.com/search", "page-size=20"); got != "https://content.guardianapis.com/search?page-size=20" {
		t.Fatalf("default query not appended: %s", got)
	}
	if got := BuildRequestURL("https://newsapi.org/v2/everything?q=go", "q=technology"); got != "https://newsapi.org/v2/everything?q=go" {
		t.Fatalf("endpoint with query must be reused verbatim: %s", got)
	}
}

func TestRequestTargetPlacesKey(t *testing.T) {
	guardian := mustProvider(t, "guardian")
	url, headers := RequestTarget(guardian, domain.Credential{
		EndpointURL: "https://content.guardianapis.com/search?q=x",
		APIKey:      "k&1",
	})
	if url != "https://content.guardianapis.com/search?q=x&api-key=k%261" {
		t.Fatalf("unexpected url %s", url)
	}
	if len(headers) != 0 {
		t.Fatalf("query placement must not add headers: %v", headers)
	}

	newsapi := mustProvider(t, "newsapi")
	url, headers = RequestTarget(newsapi, domain.Credential{
		EndpointURL: "https://newsapi.org/v2/everything",
		APIKey:      "secret",
	})
	if url != "https://newsapi.org/v2/everything?q=technology&language=en&sortBy=publishedAt" {
		t.Fatalf("unexpected url %s", url)
	}
	if headers["X-Api-Key"] != "secret" {
		t.Fatalf("expected key header, got %v", headers)
	}
}
