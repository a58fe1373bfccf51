package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// MongoStorage upserts merged records into MongoDB collections, one
// document per record keyed by its _id.
type MongoStorage struct {
	client *mongo.Client
	db     *mongo.Database
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewMongoStorage connects to uri and selects database.
func NewMongoStorage(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStorage{
		client: client,
		db:     client.Database(database),
		logger: logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

// Store replaces or inserts every record of the batch. Re-exporting a store
// therefore converges on its current content.
func (s *MongoStorage) Store(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			return &types.StorageError{Backend: "mongodb", Path: collection, Err: types.ErrMissingRecordID}
		}
		doc := make(bson.M, len(rec))
		for k, v := range rec {
			doc[k] = v
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{IDField: id}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.db.Collection(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Path: collection, Err: fmt.Errorf("bulk write: %w", err)}
	}

	s.count += len(records)
	s.logger.Debug("records exported",
		"collection", collection,
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
		"total", s.count,
	)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Export pushes every record of each named merge store to the collection of
// the same name.
func Export(ctx context.Context, dst Storage, stores map[string]*MergeStore, logger *slog.Logger) (int, error) {
	total := 0
	for name, store := range stores {
		records, err := store.All()
		if err != nil {
			return total, fmt.Errorf("load %s: %w", name, err)
		}
		if err := dst.Store(ctx, name, records); err != nil {
			return total, err
		}
		logger.Info("store exported", "store", name, "records", len(records), "backend", dst.Name())
		total += len(records)
	}
	return total, nil
}
