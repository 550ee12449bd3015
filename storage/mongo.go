package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"Kirana/lib/sl"
)

const (
	sessionsCollectionName = "chat_logs"
	connectTimeout         = 10 * time.Second
	opTimeout              = 5 * time.Second
)

// Connect opens and pings a MongoDB client shared by all mongo storages.
func Connect(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	return client, nil
}

// MongoStorage is a MongoDB implementation of SessionStore
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoStorage(client *mongo.Client, database string, log *slog.Logger) *MongoStorage {
	collection := client.Database(database).Collection(sessionsCollectionName)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	// unique user index also guards the first insert of a session
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Warn("creating sessions index", sl.Err(err))
	}

	return &MongoStorage{
		client:     client,
		collection: collection,
		log:        log.With(sl.Module("mongo-sessions")),
	}
}

func (m *MongoStorage) GetSession(ctx context.Context, userId string) (*DialogSession, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var session DialogSession
	err := m.collection.FindOne(ctx, userFilter(userId)).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	normalizeSession(&session)
	return &session, nil
}

func (m *MongoStorage) SaveSession(ctx context.Context, session *DialogSession) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := *session
	doc.Version = session.Version + 1
	doc.UpdatedAt = time.Now()

	// version 0 also covers documents written before versioning, upserted
	// in place; the unique user index turns a racing insert into a conflict
	opts := options.Replace().SetUpsert(session.Version == 0)
	res, err := m.collection.ReplaceOne(ctx, versionFilter(session.UserId, session.Version), &doc, opts)
	if mongo.IsDuplicateKeyError(err) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrVersionConflict
	}

	session.Version = doc.Version
	session.UpdatedAt = doc.UpdatedAt
	return nil
}

func (m *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// versionFilter matches the session revision a save was computed from.
func versionFilter(userId string, version int64) bson.M {
	filter := userFilter(userId)
	if version == 0 {
		filter["version"] = bson.M{"$exists": false}
	} else {
		filter["version"] = version
	}
	return filter
}

// normalizeSession fills defaults for documents written before a field existed.
func normalizeSession(session *DialogSession) {
	if session.Messages == nil {
		session.Messages = []Turn{}
	}
	if session.Metadata == nil {
		session.Metadata = map[string]any{}
	}
	if !session.State.Valid() {
		session.State = StateIdle
	}
}
