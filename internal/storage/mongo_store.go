package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

const (
	mongoCredentials = "api_credentials"
	mongoSources     = "news_sources"
	mongoArticles    = "news"
	mongoCounters    = "counters"
)

// mongoStore keeps integer ids alongside Mongo's ObjectIDs so rows look the same
// regardless of backend. Uniqueness is enforced by indexes.
type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func openMongo(ctx context.Context, opts Options) (Store, error) {
	initCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(initCtx, options.Client().ApplyURI(opts.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(initCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	name := strings.TrimSpace(opts.MongoDatabase)
	if name == "" {
		name = "news"
	}
	store := &mongoStore{client: client, db: client.Database(name), now: time.Now}
	if err := store.ensureIndexes(initCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (m *mongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		mongoCredentials: {
			Keys:    bson.D{{Key: "provider_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		mongoSources: {
			Keys:    bson.D{{Key: "external_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		mongoArticles: {
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	for coll, model := range indexes {
		if _, err := m.db.Collection(coll).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create %s index: %w", coll, err)
		}
	}
	return nil
}

func (m *mongoStore) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *mongoStore) Credential(ctx context.Context, providerID string) (domain.Credential, error) {
	var cred domain.Credential
	err := m.db.Collection(mongoCredentials).
		FindOne(ctx, bson.M{"provider_id": strings.TrimSpace(providerID)}).
		Decode(&cred)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Credential{}, fmt.Errorf("credential %q: %w", providerID, ErrNotFound)
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("find credential: %w", err)
	}
	return cred, nil
}

func (m *mongoStore) PutCredential(ctx context.Context, cred domain.Credential) error {
	if err := validateCredential(cred); err != nil {
		return err
	}
	cred.ProviderID = strings.TrimSpace(cred.ProviderID)
	_, err := m.db.Collection(mongoCredentials).UpdateOne(ctx,
		bson.M{"provider_id": cred.ProviderID},
		bson.M{"$set": cred},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (m *mongoStore) ResolveSource(ctx context.Context, externalID *string, name string) (domain.Source, error) {
	if err := validateSourceName(name); err != nil {
		return domain.Source{}, err
	}
	externalID = normalizeExternalID(externalID)
	filter := bson.M{"external_id": externalID, "name": name}
	coll := m.db.Collection(mongoSources)

	src, err := m.findSource(ctx, filter)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return src, err
	}

	id, err := m.nextID(ctx, mongoSources)
	if err != nil {
		return domain.Source{}, err
	}
	src = domain.Source{ID: id, ExternalID: externalID, Name: name, CreatedAt: m.now().UTC()}
	if _, err := coll.InsertOne(ctx, src); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return m.findSource(ctx, filter)
		}
		return domain.Source{}, fmt.Errorf("insert source: %w", err)
	}
	return src, nil
}

func (m *mongoStore) findSource(ctx context.Context, filter bson.M) (domain.Source, error) {
	var src domain.Source
	err := m.db.Collection(mongoSources).FindOne(ctx, filter).Decode(&src)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Source{}, ErrNotFound
	}
	if err != nil {
		return domain.Source{}, fmt.Errorf("find source: %w", err)
	}
	return src, nil
}

func (m *mongoStore) ArticleExists(ctx context.Context, url string) (bool, error) {
	n, err := m.db.Collection(mongoArticles).CountDocuments(ctx, bson.M{"url": url}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count articles: %w", err)
	}
	return n > 0, nil
}

func (m *mongoStore) InsertArticle(ctx context.Context, a domain.Article) (domain.Article, bool, error) {
	n, err := m.db.Collection(mongoSources).CountDocuments(ctx, bson.M{"id": a.SourceID}, options.Count().SetLimit(1))
	if err != nil {
		return a, false, fmt.Errorf("count sources: %w", err)
	}
	if n == 0 {
		return a, false, fmt.Errorf("source %d: %w", a.SourceID, ErrNotFound)
	}

	id, err := m.nextID(ctx, mongoArticles)
	if err != nil {
		return a, false, err
	}
	now := m.now().UTC()
	a.ID = id
	a.CreatedAt, a.UpdatedAt = now, now

	if _, err := m.db.Collection(mongoArticles).InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return a, false, nil
		}
		return a, false, fmt.Errorf("insert article: %w", err)
	}
	return a, true, nil
}

func (m *mongoStore) ListSources(ctx context.Context) ([]domain.Source, error) {
	cur, err := m.db.Collection(mongoSources).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find sources: %w", err)
	}
	var out []domain.Source
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return out, nil
}

func (m *mongoStore) ListArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	opts := options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}, {Key: "id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.db.Collection(mongoArticles).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}
	var out []domain.Article
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	return out, nil
}

// nextID bumps the named counter document and returns the new value.
func (m *mongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := m.db.Collection(mongoCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return counter.Seq, nil
}
