package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-news-ingest/internal/config"
	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
	"github.com/samvad-hq/samvad-news-ingest/internal/ingest"
	"github.com/samvad-hq/samvad-news-ingest/internal/logger"
	"github.com/samvad-hq/samvad-news-ingest/internal/metrics"
	"github.com/samvad-hq/samvad-news-ingest/internal/storage"
	"github.com/samvad-hq/samvad-news-ingest/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-ingest/pkg/providers"
	"github.com/samvad-hq/samvad-news-ingest/pkg/publishers"
)

const metricsJob = "news_ingest"

// Ingestor owns the runtime wiring for one ingestion invocation: provider table,
// adapters, storage, downstream publishers and metrics.
type Ingestor struct {
	cfg     *config.Config
	service *ingest.Service
	store   storage.Store
	fanout  *publishers.Fanout
	metrics *metrics.Recorder
	log     logger.Logger
}

// NewIngestor builds an ingestor runtime from config.
func NewIngestor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Ingestor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	providerReg, err := providers.LoadRegistry(cfg.ProvidersFile)
	if err != nil {
		return nil, fmt.Errorf("load providers registry: %w", err)
	}
	providerIDs := make([]string, 0)
	for _, p := range providerReg.All() {
		providerIDs = append(providerIDs, p.ID)
	}
	log.InfoObj("providers registry loaded", "providers_meta", map[string]any{
		"count": len(providerIDs),
		"ids":   providerIDs,
	})

	if cfg.TLSInsecureSkipVerify {
		log.WarnObj("TLS certificate verification disabled for provider requests", "tls_config", map[string]any{
			"tls_insecure_skip_verify": true,
		})
	}
	client := httpclient.NewRestyClientWithOptions(httpclient.Options{
		Timeout:            cfg.RequestTimeout,
		InsecureSkipVerify: cfg.TLSInsecureSkipVerify,
	})
	adapters := providers.DefaultAdapterRegistry(client)

	store, err := storage.NewStore(ctx, cfg.StorageType, storage.Options{
		BBoltPath:      cfg.BBoltPath,
		PostgresDSN:    cfg.PostgresDSN,
		MongoURI:       cfg.MongoURI,
		MongoDatabase:  cfg.MongoDatabase,
		ConnectTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	if err := seedCredentials(ctx, cfg.CredentialsFile, store, log); err != nil {
		_ = store.Close()
		return nil, err
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rec := metrics.New(cfg.AppName)
	opts := ingest.Options{
		Workers:        cfg.IngestWorkers,
		RequestTimeout: cfg.RequestTimeout,
		Publisher:      fanout,
		Metrics:        rec,
		Logger:         log,
	}
	if cfg.EnrichPageMeta {
		opts.Enricher = ingest.NewPageMetaEnricher(client, log)
	}

	return &Ingestor{
		cfg:     cfg,
		service: ingest.NewService(providerReg, adapters, store, opts),
		store:   store,
		fanout:  fanout,
		metrics: rec,
		log:     log,
	}, nil
}

func seedCredentials(ctx context.Context, path string, store storage.CredentialStore, log logger.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	creds, err := storage.LoadCredentials(path)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if err := storage.SeedCredentials(ctx, store, creds); err != nil {
		return fmt.Errorf("seed credentials: %w", err)
	}
	keys := make([]string, 0, len(creds))
	for _, c := range creds {
		keys = append(keys, c.ProviderID)
	}
	log.InfoObj("credentials seeded", "credentials_meta", map[string]any{
		"count":        len(creds),
		"provider_ids": keys,
	})
	return nil
}

// buildFanout returns an empty fanout when no publishers file is configured.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run ingests the requested providers once. Provider failures are part of the
// summary; only an empty selection or a wiring problem is returned as an error.
func (i *Ingestor) Run(ctx context.Context, ids []string) (domain.BatchSummary, error) {
	if i == nil || i.service == nil {
		return domain.BatchSummary{}, fmt.Errorf("ingestor is not initialized")
	}

	summary, err := i.service.Run(ctx, ids)
	if err != nil {
		if errors.Is(err, domain.ErrNoProviderSelected) {
			i.log.WarnObj("ingestion requested without providers", "providers", ids)
		}
		return summary, err
	}

	i.log.InfoObj("ingestion completed", "ingest_summary", map[string]any{
		"stored_count": summary.StoredCount,
		"successes":    summary.Successes,
		"failures":     summary.Failures,
	})
	return summary, nil
}

// Close pushes metrics and releases publishers and storage.
func (i *Ingestor) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if err := i.metrics.Push(i.cfg.PushgatewayURL, metricsJob); err != nil {
		i.log.WarnObj("metrics push failed", "error", err.Error())
	}
	if err := i.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := i.store.Close(); err != nil {
		i.log.ErrorObj("storage close failed", "error", err.Error())
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
