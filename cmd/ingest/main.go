package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-news-ingest/internal/app"
	"github.com/samvad-hq/samvad-news-ingest/internal/config"
	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
	"github.com/samvad-hq/samvad-news-ingest/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ingest failed: %v\n", err)
		if errors.Is(err, domain.ErrNoProviderSelected) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("ingest starting", "config", map[string]any{
		"env":            cfg.Env,
		"providers":      cfg.Providers,
		"storage_type":   cfg.StorageType,
		"ingest_workers": cfg.IngestWorkers,
		"timeout":        cfg.RequestTimeout.String(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ingestor, err := app.NewIngestor(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize ingestor", "error", err.Error())
		return err
	}
	defer ingestor.Close()

	summary, err := ingestor.Run(ctx, cfg.Providers)
	if err != nil {
		return err
	}

	if msg := summary.SuccessMessage(); msg != "" {
		fmt.Fprintln(os.Stdout, msg)
	}
	if msg := summary.FailureMessage(); msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	return nil
}
