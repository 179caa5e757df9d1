package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProviderCounts(t *testing.T) {
	r := New("test")
	r.ObserveProvider("guardian", "succeeded", 3, 2, 1, 150*time.Millisecond)
	r.ObserveProvider("guardian", "failed", 0, 0, 0, time.Second)
	r.PublishFailed("guardian")

	if got := testutil.ToFloat64(r.ArticlesStored.WithLabelValues("guardian")); got != 3 {
		t.Fatalf("stored = %v", got)
	}
	if got := testutil.ToFloat64(r.ArticlesSkipped.WithLabelValues("guardian")); got != 2 {
		t.Fatalf("skipped = %v", got)
	}
	if got := testutil.ToFloat64(r.ProviderRuns.WithLabelValues("guardian", "failed")); got != 1 {
		t.Fatalf("failed runs = %v", got)
	}
	if got := testutil.ToFloat64(r.PublishFailures.WithLabelValues("guardian")); got != 1 {
		t.Fatalf("publish failures = %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveProvider("x", "succeeded", 1, 1, 1, time.Second)
	r.PublishFailed("x")
	if err := r.Push("http://unused", "job"); err != nil {
		t.Fatalf("Push on nil recorder: %v", err)
	}
}

func TestPushSendsToGateway(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New("test")
	r.ObserveProvider("nytimes", "succeeded", 1, 0, 0, time.Second)
	if err := r.Push(srv.URL, "news_ingest"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if path != "/metrics/job/news_ingest" {
		t.Fatalf("unexpected push path %q", path)
	}
}
