package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-ingest/internal/config"
	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:        "samvad-news-ingest",
		Env:            "test",
		IngestWorkers:  2,
		RequestTimeout: 5 * time.Second,
		StorageType:    "bbolt",
		BBoltPath:      filepath.Join(t.TempDir(), "news.db"),
	}
}

func TestIngestorRunsWithSeededCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"articles":[{"source":{"id":null,"name":"Reuters"},"title":"T","url":"https://r.example/1"}]}`))
	}))
	defer srv.Close()

	credsPath := filepath.Join(t.TempDir(), "credentials.yaml")
	creds := "credentials:\n  - provider_id: newsapi.org\n    endpoint_url: " + srv.URL + "\n    api_key: k\n"
	if err := os.WriteFile(credsPath, []byte(creds), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}

	cfg := testConfig(t)
	cfg.CredentialsFile = credsPath

	ing, err := NewIngestor(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}
	defer ing.Close()

	summary, err := ing.Run(context.Background(), []string{"newsapi.org", "guardian"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.StoredCount != 1 {
		t.Fatalf("expected 1 stored, got %d (%s)", summary.StoredCount, summary.FailureMessage())
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("guardian has no credential and should fail, got %q", summary.Failures)
	}
}

func TestIngestorRejectsEmptySelection(t *testing.T) {
	ing, err := NewIngestor(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}
	defer ing.Close()

	if _, err := ing.Run(context.Background(), nil); !errors.Is(err, domain.ErrNoProviderSelected) {
		t.Fatalf("expected ErrNoProviderSelected, got %v", err)
	}
}

func TestNewIngestorFailsOnBadPublishersFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PublishersFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewIngestor(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing publishers file")
	}
}
