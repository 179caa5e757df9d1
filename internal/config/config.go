package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from flags, files and environment variables.
type Config struct {
	AppName         string `mapstructure:"app_name"`
	Env             string `mapstructure:"app_env"`
	LogLevel        string `mapstructure:"log_level"`
	ProvidersFile   string `mapstructure:"providers_file"`
	PublishersFile  string `mapstructure:"publishers_file"`
	CredentialsFile string `mapstructure:"credentials_file"`

	Providers             []string      `mapstructure:"providers"`
	IngestWorkers         int           `mapstructure:"ingest_workers"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	TLSInsecureSkipVerify bool          `mapstructure:"tls_insecure_skip_verify"`
	EnrichPageMeta        bool          `mapstructure:"enrich_page_meta"`

	StorageType   string `mapstructure:"storage_type"`
	BBoltPath     string `mapstructure:"bbolt_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

var boundFlags = []string{
	"providers", "ingest-workers", "storage-type", "credentials-file",
	"providers-file", "publishers-file", "enrich-page-meta", "log-level",
}

// Load reads configuration from command line args, environment variables and config files.
// Flags win over environment variables, which win over defaults.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-news-ingest")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("providers_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("credentials_file", "")
	v.SetDefault("providers", []string{})
	v.SetDefault("ingest_workers", 3)
	v.SetDefault("request_timeout_seconds", 20)
	v.SetDefault("tls_insecure_skip_verify", false)
	v.SetDefault("enrich_page_meta", false)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/news.db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", "news")
	v.SetDefault("pushgateway_url", "")

	v.AutomaticEnv()

	fs := pflag.NewFlagSet("ingest", pflag.ContinueOnError)
	fs.StringSlice("providers", nil, "provider ids to ingest (comma separated)")
	fs.Int("ingest-workers", 0, "number of providers fetched concurrently")
	fs.String("storage-type", "", "storage backend: bbolt, postgres, mongo, memory")
	fs.String("credentials-file", "", "YAML/JSON file with provider credentials to seed")
	fs.String("providers-file", "", "YAML/JSON file with provider overrides")
	fs.String("publishers-file", "", "YAML/JSON file with downstream publishers")
	fs.Bool("enrich-page-meta", false, "backfill missing image/description from article pages")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	for _, name := range boundFlags {
		flag := fs.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("invalid ingest_workers (must be positive)")
	}
	c.RequestTimeout = time.Duration(c.RequestTimeoutSeconds) * time.Second
	c.StorageType = strings.ToLower(strings.TrimSpace(c.StorageType))

	providers := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		for _, part := range strings.Split(p, ",") {
			if part = strings.TrimSpace(part); part != "" {
				providers = append(providers, part)
			}
		}
	}
	c.Providers = providers
	return nil
}
