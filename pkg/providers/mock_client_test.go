package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/samvad-hq/samvad-news-ingest/pkg/httpclient"
)

type mockResponse struct {
	body       []byte
	statusCode int
}

func (r mockResponse) Body() []byte    { return r.body }
func (r mockResponse) StatusCode() int { return r.statusCode }

// mockHTTPClient checks the outgoing request and returns a canned body.
type mockHTTPClient struct {
	t         *testing.T
	expect    map[string]string
	expectURL string
	status    int
	body      string
	err       error
	calls     *int
}

func (m mockHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	if m.calls != nil {
		*m.calls++
	}
	if m.expectURL != "" && url != m.expectURL {
		m.t.Fatalf("expected url %q, got %q", m.expectURL, url)
	}
	for key, want := range m.expect {
		if got := headers[key]; got != want {
			m.t.Fatalf("expected header %s=%q, got %q", key, want, got)
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = 200
	}
	return mockResponse{body: []byte(m.body), statusCode: status}, nil
}

var errTransport = errors.New("connection refused")

func mustProvider(t *testing.T, id string) Provider {
	t.Helper()
	p, ok := DefaultRegistry().Resolve(id)
	if !ok {
		t.Fatalf("provider %q not registered", id)
	}
	return p
}
