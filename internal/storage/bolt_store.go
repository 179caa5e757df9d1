package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

const (
	credentialBucket = "credentials"
	sourceBucket     = "sources"
	sourceKeyBucket  = "source_keys"
	articleBucket    = "articles"
	articleURLBucket = "article_urls"

	// urlKeyPrefix keeps the empty URL a valid bbolt key.
	urlKeyPrefix = "u:"
)

var boltBuckets = []string{credentialBucket, sourceBucket, sourceKeyBucket, articleBucket, articleURLBucket}

// boltStore implements a Store backed by BoltDB. Every write runs in a single
// Update transaction, so check-then-insert sequences are atomic.
type boltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range boltBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &boltStore{db: db, now: time.Now}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) Credential(_ context.Context, providerID string) (domain.Credential, error) {
	var cred domain.Credential
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := boltBucket(tx, credentialBucket)
		if err != nil {
			return err
		}
		raw := bucket.Get([]byte(strings.TrimSpace(providerID)))
		if raw == nil {
			return fmt.Errorf("credential %q: %w", providerID, ErrNotFound)
		}
		return json.Unmarshal(raw, &cred)
	})
	return cred, err
}

func (b *boltStore) PutCredential(_ context.Context, cred domain.Credential) error {
	if err := validateCredential(cred); err != nil {
		return err
	}
	cred.ProviderID = strings.TrimSpace(cred.ProviderID)
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := boltBucket(tx, credentialBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(cred.ProviderID), raw)
	})
}

func (b *boltStore) ResolveSource(_ context.Context, externalID *string, name string) (domain.Source, error) {
	if err := validateSourceName(name); err != nil {
		return domain.Source{}, err
	}
	externalID = normalizeExternalID(externalID)
	key := []byte(sourceKey(externalID, name))

	var src domain.Source
	err := b.db.Update(func(tx *bolt.Tx) error {
		keys, err := boltBucket(tx, sourceKeyBucket)
		if err != nil {
			return err
		}
		sources, err := boltBucket(tx, sourceBucket)
		if err != nil {
			return err
		}

		if id := keys.Get(key); id != nil {
			raw := sources.Get(id)
			if raw == nil {
				return fmt.Errorf("source index points at missing row %d", btoi(id))
			}
			return json.Unmarshal(raw, &src)
		}

		seq, err := sources.NextSequence()
		if err != nil {
			return err
		}
		src = domain.Source{
			ID:         int64(seq),
			ExternalID: externalID,
			Name:       name,
			CreatedAt:  b.now().UTC(),
		}
		raw, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("encode source: %w", err)
		}
		if err := sources.Put(itob(seq), raw); err != nil {
			return err
		}
		return keys.Put(key, itob(seq))
	})
	return src, err
}

func (b *boltStore) ArticleExists(_ context.Context, url string) (bool, error) {
	var exists bool
	err := b.db.View(func(tx *bolt.Tx) error {
		urls, err := boltBucket(tx, articleURLBucket)
		if err != nil {
			return err
		}
		exists = urls.Get(urlKey(url)) != nil
		return nil
	})
	return exists, err
}

func (b *boltStore) InsertArticle(_ context.Context, a domain.Article) (domain.Article, bool, error) {
	var inserted bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		urls, err := boltBucket(tx, articleURLBucket)
		if err != nil {
			return err
		}
		articles, err := boltBucket(tx, articleBucket)
		if err != nil {
			return err
		}
		sources, err := boltBucket(tx, sourceBucket)
		if err != nil {
			return err
		}

		key := urlKey(a.URL)
		if urls.Get(key) != nil {
			return nil
		}
		if a.SourceID <= 0 || sources.Get(itob(uint64(a.SourceID))) == nil {
			return fmt.Errorf("source %d: %w", a.SourceID, ErrNotFound)
		}

		seq, err := articles.NextSequence()
		if err != nil {
			return err
		}
		now := b.now().UTC()
		a.ID = int64(seq)
		a.CreatedAt, a.UpdatedAt = now, now

		raw, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode article: %w", err)
		}
		if err := articles.Put(itob(seq), raw); err != nil {
			return err
		}
		if err := urls.Put(key, itob(seq)); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return a, inserted, err
}

func (b *boltStore) ListSources(_ context.Context) ([]domain.Source, error) {
	var out []domain.Source
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := boltBucket(tx, sourceBucket)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, v []byte) error {
			var src domain.Source
			if err := json.Unmarshal(v, &src); err != nil {
				return err
			}
			out = append(out, src)
			return nil
		})
	})
	return out, err
}

func (b *boltStore) ListArticles(_ context.Context, limit int) ([]domain.Article, error) {
	var out []domain.Article
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := boltBucket(tx, articleBucket)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, v []byte) error {
			var a domain.Article
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			out = append(out, a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortArticles(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func boltBucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(name))
	if bucket == nil {
		return nil, fmt.Errorf("%s bucket missing", name)
	}
	return bucket, nil
}

func urlKey(url string) []byte {
	return []byte(urlKeyPrefix + url)
}

func itob(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
