package blogs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ Store = (*MongoStore)(nil)

const mongoCollection = "kv_store"

type mongoEntry struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// MongoStore keeps the serialized collection in one document keyed by _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	key    string
	logger *slog.Logger
}

func OpenMongoStore(ctx context.Context, uri, database, key string, logger *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if key == "" {
		key = DefaultKey
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
		key:    key,
		logger: loggerOrDefault(logger),
	}, nil
}

func (s *MongoStore) Load(ctx context.Context) ([]Blog, error) {
	var entry mongoEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": s.key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []Blog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", s.key, err)
	}
	return decodeRecords(s.logger, s.key, []byte(entry.Value)), nil
}

func (s *MongoStore) SaveAll(ctx context.Context, records []Blog) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx,
		bson.M{"_id": s.key},
		mongoEntry{Key: s.key, Value: string(data)},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save %q: %w", s.key, err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
