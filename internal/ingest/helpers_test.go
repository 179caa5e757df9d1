package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
	"github.com/samvad-hq/samvad-news-ingest/internal/storage"
	"github.com/samvad-hq/samvad-news-ingest/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-ingest/pkg/providers"
	"github.com/samvad-hq/samvad-news-ingest/pkg/publishers"
)

// upstream serves a fixed body and records the requests it saw.
type upstream struct {
	*httptest.Server
	mu       sync.Mutex
	requests []*http.Request
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r.Clone(context.Background()))
		u.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func (u *upstream) lastRequest() *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.requests) == 0 {
		return nil
	}
	return u.requests[len(u.requests)-1]
}

func seedCredential(t *testing.T, store storage.Store, key, endpoint string) {
	t.Helper()
	err := store.PutCredential(context.Background(), domain.Credential{
		ProviderID:  key,
		EndpointURL: endpoint,
		APIKey:      "test-key",
	})
	if err != nil {
		t.Fatalf("PutCredential %s: %v", key, err)
	}
}

func newTestService(store Store, opts Options) *Service {
	client := httpclient.NewRestyClient(5 * time.Second)
	return NewService(providers.DefaultRegistry(), providers.DefaultAdapterRegistry(client), store, opts)
}

// recordingPublisher captures published events and can fail on demand.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishers.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if r.err != nil {
		return 0, r.err
	}
	return 1, nil
}

const newsAPIBody = `{
  "status": "ok",
  "articles": [
    {
      "source": {"id": null, "name": "Reuters"},
      "author": "Jane Doe",
      "title": "Markets rally",
      "description": "Stocks up",
      "url": "https://reuters.example/markets",
      "urlToImage": "https://img.example/1.jpg",
      "publishedAt": "2025-01-10T08:00:00Z",
      "content": "Full story"
    },
    {
      "source": {"id": null, "name": "Reuters"},
      "author": null,
      "title": "Oil slips",
      "description": null,
      "url": "https://reuters.example/oil",
      "urlToImage": null,
      "publishedAt": "2025-01-10T09:00:00Z",
      "content": null
    }
  ]
}`

const guardianBody = `{
  "response": {
    "status": "ok",
    "results": [
      {
        "webTitle": "Fallback title",
        "webUrl": "https://www.theguardian.com/world/1",
        "webPublicationDate": "2025-01-11T10:00:00Z",
        "fields": {
          "headline": "Climate talks resume",
          "byline": "A Reporter",
          "body": "<p>Delegates <strong>met</strong> again.</p>",
          "thumbnail": "https://media.guim.example/1.jpg"
        }
      }
    ]
  }
}`

const nytimesBody = `{
  "status": "OK",
  "response": {
    "docs": [
      {
        "web_url": "https://www.nytimes.com/2025/01/12/x.html",
        "abstract": "",
        "lead_paragraph": "Line one\nLine two",
        "pub_date": "2025-01-12T12:00:00+0000",
        "headline": {"main": "City council votes"},
        "byline": {"original": "By Sam Writer"},
        "multimedia": []
      }
    ]
  }
}`
