package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder holds the ingestion collectors on a private registry so a one-shot
// run can push them to a Pushgateway.
type Recorder struct {
	registry *prometheus.Registry

	ArticlesStored   *prometheus.CounterVec
	ArticlesSkipped  *prometheus.CounterVec
	ItemErrors       *prometheus.CounterVec
	ProviderRuns     *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	PublishFailures  *prometheus.CounterVec
}

// New registers the ingestion collectors.
func New(appName string) *Recorder {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"app": appName}

	r := &Recorder{
		registry: reg,
		ArticlesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "news_ingest_articles_stored_total",
			Help:        "Articles newly persisted, by provider.",
			ConstLabels: constLabels,
		}, []string{"provider"}),
		ArticlesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "news_ingest_articles_skipped_total",
			Help:        "Articles skipped as duplicates, by provider.",
			ConstLabels: constLabels,
		}, []string{"provider"}),
		ItemErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "news_ingest_item_errors_total",
			Help:        "Items that failed mapping or persistence, by provider.",
			ConstLabels: constLabels,
		}, []string{"provider"}),
		ProviderRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "news_ingest_provider_runs_total",
			Help:        "Provider runs by outcome status.",
			ConstLabels: constLabels,
		}, []string{"provider", "status"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "news_ingest_provider_duration_seconds",
			Help:        "Wall time of a provider run.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"provider"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "news_ingest_publish_failures_total",
			Help:        "Downstream publish failures, by provider.",
			ConstLabels: constLabels,
		}, []string{"provider"}),
	}

	reg.MustRegister(
		r.ArticlesStored,
		r.ArticlesSkipped,
		r.ItemErrors,
		r.ProviderRuns,
		r.ProviderDuration,
		r.PublishFailures,
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveProvider records the outcome of one provider run.
func (r *Recorder) ObserveProvider(providerID, status string, stored, skipped, itemErrors int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.ProviderRuns.WithLabelValues(providerID, status).Inc()
	r.ProviderDuration.WithLabelValues(providerID).Observe(elapsed.Seconds())
	if stored > 0 {
		r.ArticlesStored.WithLabelValues(providerID).Add(float64(stored))
	}
	if skipped > 0 {
		r.ArticlesSkipped.WithLabelValues(providerID).Add(float64(skipped))
	}
	if itemErrors > 0 {
		r.ItemErrors.WithLabelValues(providerID).Add(float64(itemErrors))
	}
}

// PublishFailed counts a failed downstream delivery.
func (r *Recorder) PublishFailed(providerID string) {
	if r == nil {
		return
	}
	r.PublishFailures.WithLabelValues(providerID).Inc()
}

// Push sends the collected metrics to a Pushgateway. A blank url is a no-op.
func (r *Recorder) Push(url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
