package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

// Package storage persists credentials, sources and articles.

// ErrNotFound is returned when a lookup has no match.
var ErrNotFound = errors.New("not found")

// CredentialStore holds one credential per provider id.
type CredentialStore interface {
	Credential(ctx context.Context, providerID string) (domain.Credential, error)
	PutCredential(ctx context.Context, cred domain.Credential) error
}

// SourceResolver finds or creates the source identified by (externalID, name).
type SourceResolver interface {
	ResolveSource(ctx context.Context, externalID *string, name string) (domain.Source, error)
}

// ArticleStore owns article uniqueness on URL.
type ArticleStore interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
	// InsertArticle stores a unless an article with the same URL exists; the bool
	// reports whether a row was written.
	InsertArticle(ctx context.Context, a domain.Article) (domain.Article, bool, error)
}

// Reader exposes stored rows to the browsing side.
type Reader interface {
	ListSources(ctx context.Context) ([]domain.Source, error)
	ListArticles(ctx context.Context, limit int) ([]domain.Article, error)
}

// Store is the full persistence surface used by the ingest pipeline.
type Store interface {
	CredentialStore
	SourceResolver
	ArticleStore
	Reader
	Close() error
}

const (
	TypeBBolt    = "bbolt"
	TypePostgres = "postgres"
	TypeMongo    = "mongo"
	TypeMemory   = "memory"
)

// Options carries backend connection settings.
type Options struct {
	BBoltPath     string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
	// ConnectTimeout bounds the initial connection and schema bootstrap.
	ConnectTimeout time.Duration
}

const defaultConnectTimeout = 10 * time.Second

// NewStore creates the configured storage backend.
func NewStore(ctx context.Context, typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	switch typ {
	case TypeMemory:
		return NewMemoryStore(), nil
	case "", TypeBBolt:
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.BBoltPath)
	case TypePostgres, "postgresql":
		if strings.TrimSpace(opts.PostgresDSN) == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		return openPostgres(ctx, opts)
	case TypeMongo, "mongodb":
		if strings.TrimSpace(opts.MongoURI) == "" {
			return nil, fmt.Errorf("mongo storage requires a uri")
		}
		return openMongo(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// normalizeExternalID treats a blank external id the same as a missing one.
func normalizeExternalID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := *id
	return &v
}

func validateSourceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("source name is required")
	}
	return nil
}

func validateCredential(cred domain.Credential) error {
	if strings.TrimSpace(cred.ProviderID) == "" {
		return errors.New("credential provider id is required")
	}
	if strings.TrimSpace(cred.EndpointURL) == "" {
		return fmt.Errorf("credential %q endpoint url is required", cred.ProviderID)
	}
	if strings.TrimSpace(cred.APIKey) == "" {
		return fmt.Errorf("credential %q api key is required", cred.ProviderID)
	}
	return nil
}
