package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

// memoryStore keeps everything in process memory. Used for dry runs and tests.
type memoryStore struct {
	mu          sync.Mutex
	credentials map[string]domain.Credential
	sources     []domain.Source
	sourceIdx   map[string]int64
	articles    []domain.Article
	urlIdx      map[string]int64
	now         func() time.Time
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		credentials: make(map[string]domain.Credential),
		sourceIdx:   make(map[string]int64),
		urlIdx:      make(map[string]int64),
		now:         time.Now,
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Credential(_ context.Context, providerID string) (domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[strings.TrimSpace(providerID)]
	if !ok {
		return domain.Credential{}, fmt.Errorf("credential %q: %w", providerID, ErrNotFound)
	}
	return cred, nil
}

func (m *memoryStore) PutCredential(_ context.Context, cred domain.Credential) error {
	if err := validateCredential(cred); err != nil {
		return err
	}
	m.mu.Lock()
	m.credentials[strings.TrimSpace(cred.ProviderID)] = cred
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) ResolveSource(_ context.Context, externalID *string, name string) (domain.Source, error) {
	if err := validateSourceName(name); err != nil {
		return domain.Source{}, err
	}
	externalID = normalizeExternalID(externalID)
	key := sourceKey(externalID, name)

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.sourceIdx[key]; ok {
		return m.sources[id-1], nil
	}
	src := domain.Source{
		ID:         int64(len(m.sources) + 1),
		ExternalID: externalID,
		Name:       name,
		CreatedAt:  m.now().UTC(),
	}
	m.sources = append(m.sources, src)
	m.sourceIdx[key] = src.ID
	return src, nil
}

func (m *memoryStore) ArticleExists(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.urlIdx[url]
	return ok, nil
}

func (m *memoryStore) InsertArticle(_ context.Context, a domain.Article) (domain.Article, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.urlIdx[a.URL]; ok {
		return a, false, nil
	}
	if a.SourceID <= 0 || a.SourceID > int64(len(m.sources)) {
		return a, false, fmt.Errorf("source %d: %w", a.SourceID, ErrNotFound)
	}
	now := m.now().UTC()
	a.ID = int64(len(m.articles) + 1)
	a.CreatedAt, a.UpdatedAt = now, now
	m.articles = append(m.articles, a)
	m.urlIdx[a.URL] = a.ID
	return a, true, nil
}

func (m *memoryStore) ListSources(_ context.Context) ([]domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Source, len(m.sources))
	copy(out, m.sources)
	return out, nil
}

func (m *memoryStore) ListArticles(_ context.Context, limit int) ([]domain.Article, error) {
	m.mu.Lock()
	out := make([]domain.Article, len(m.articles))
	copy(out, m.articles)
	m.mu.Unlock()

	sortArticles(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sourceKey encodes the (external id, name) identity; a nil id and a real id never collide.
func sourceKey(externalID *string, name string) string {
	if externalID == nil {
		return "\x00" + name
	}
	return "\x01" + *externalID + "\x00" + name
}

// sortArticles orders newest published first, unpublished last, then newest id.
func sortArticles(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i].PublishedAt, articles[j].PublishedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return articles[i].ID > articles[j].ID
	})
}
