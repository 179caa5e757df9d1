package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
	"github.com/samvad-hq/samvad-news-ingest/internal/logger"
	"github.com/samvad-hq/samvad-news-ingest/internal/metrics"
	"github.com/samvad-hq/samvad-news-ingest/pkg/providers"
)

const (
	defaultWorkers = 3
	defaultTimeout = 20 * time.Second

	successFormat        = "Successfully fetched %d news articles from %s."
	notImplementedFormat = "The source %s is not yet implemented."
	failureFormat        = "Failed to fetch news from %s: %v"
)

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	Workers        int
	RequestTimeout time.Duration
	Publisher      EventPublisher
	Enricher       Enricher
	Metrics        *metrics.Recorder
	Logger         logger.Logger
}

// Service coordinates ingestion across the requested providers.
type Service struct {
	registry  ProviderResolver
	adapters  providers.AdapterRegistry
	store     Store
	publisher EventPublisher
	enricher  Enricher
	metrics   *metrics.Recorder
	log       logger.Logger
	workers   int
	timeout   time.Duration
}

// NewService wires the orchestrator with its provider table, adapters and store.
func NewService(reg ProviderResolver, adapters providers.AdapterRegistry, store Store, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultTimeout
	}
	return &Service{
		registry:  reg,
		adapters:  adapters,
		store:     store,
		publisher: opts.Publisher,
		enricher:  opts.Enricher,
		metrics:   opts.Metrics,
		log:       logger.Ensure(opts.Logger),
		workers:   opts.Workers,
		timeout:   opts.RequestTimeout,
	}
}

// Run ingests every requested provider and returns one outcome per distinct id,
// in request order. Provider failures are reported in the summary, never returned.
func (s *Service) Run(ctx context.Context, ids []string) (domain.BatchSummary, error) {
	if s == nil || s.registry == nil || s.adapters == nil || s.store == nil {
		return domain.BatchSummary{}, fmt.Errorf("ingest service is not initialized")
	}

	requested := normalizeIDs(ids)
	if len(requested) == 0 {
		return domain.BatchSummary{}, domain.ErrNoProviderSelected
	}

	outcomes := s.runAll(ctx, requested)
	return summarize(outcomes), nil
}

func (s *Service) runAll(ctx context.Context, ids []string) []domain.ProviderOutcome {
	outcomes := make([]domain.ProviderOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i] = s.runProvider(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (s *Service) runProvider(ctx context.Context, id string) domain.ProviderOutcome {
	out := domain.ProviderOutcome{ProviderID: id}

	p, ok := s.registry.Resolve(id)
	if !ok {
		out.Status = domain.OutcomeNotImplemented
		s.log.WarnObj("provider not implemented", "provider_unknown", map[string]any{
			"provider_id": id,
		})
		s.metrics.ObserveProvider(id, string(out.Status), 0, 0, 0, 0)
		return out
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, p.Timeout(s.timeout))
	defer cancel()

	res, err := s.ingestProvider(runCtx, p)
	elapsed := time.Since(start)
	if err != nil {
		out.Status = domain.OutcomeFailed
		out.Err = err
		s.log.ErrorObj("provider ingest failed", "provider_error", map[string]any{
			"provider_id": p.ID,
			"requested":   id,
			"error":       err.Error(),
		})
		s.metrics.ObserveProvider(p.ID, string(out.Status), 0, 0, 0, elapsed)
		return out
	}

	out.Status = domain.OutcomeSucceeded
	out.ProviderName = p.Name
	out.Result = res
	s.log.InfoObj("provider ingest completed", "provider_result", map[string]any{
		"provider_id":   p.ID,
		"requested":     id,
		"stored_count":  res.StoredCount,
		"skipped_count": res.SkippedCount,
		"item_errors":   len(res.Errors),
		"elapsed_ms":    elapsed.Milliseconds(),
	})
	s.metrics.ObserveProvider(p.ID, string(out.Status), res.StoredCount, res.SkippedCount, len(res.Errors), elapsed)
	return out
}

func summarize(outcomes []domain.ProviderOutcome) domain.BatchSummary {
	summary := domain.BatchSummary{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case domain.OutcomeSucceeded:
			summary.StoredCount += o.Result.StoredCount
			summary.Successes = append(summary.Successes, fmt.Sprintf(successFormat, o.Result.StoredCount, displayName(o)))
		case domain.OutcomeNotImplemented:
			summary.Failures = append(summary.Failures, fmt.Sprintf(notImplementedFormat, o.ProviderID))
		default:
			err := o.Err
			if err == nil {
				err = errors.New("unknown error")
			}
			summary.Failures = append(summary.Failures, fmt.Sprintf(failureFormat, o.ProviderID, err))
		}
	}
	return summary
}

// displayName is the provider's name for success lines, or the requested id.
func displayName(o domain.ProviderOutcome) string {
	if o.ProviderName != "" {
		return o.ProviderName
	}
	return o.ProviderID
}

// normalizeIDs trims, drops blanks and removes exact repeats, keeping first occurrence order.
func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
