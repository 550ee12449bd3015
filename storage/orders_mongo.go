package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"Kirana/lib/sl"
)

const ordersCollectionName = "orders"

type orderDoc struct {
	ID    primitive.ObjectID `bson:"_id"`
	User  any                `bson:"user"`
	Order `bson:",inline"`
}

// MongoOrders is a MongoDB implementation of OrderHistory
type MongoOrders struct {
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoOrders(client *mongo.Client, database string, log *slog.Logger) *MongoOrders {
	return &MongoOrders{
		collection: client.Database(database).Collection(ordersCollectionName),
		log:        log.With(sl.Module("mongo-orders")),
	}
}

func (m *MongoOrders) RecentOrders(ctx context.Context, userId string, limit int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := m.collection.Find(ctx, userFilter(userId), opts)
	if err != nil {
		return nil, fmt.Errorf("finding orders: %w", err)
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		err := cursor.Close(ctx)
		if err != nil {
			m.log.Warn("closing cursor", sl.Err(err))
		}
	}(cursor, ctx)

	orders := make([]Order, 0, max(limit, 0))
	for cursor.Next(ctx) {
		var doc orderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding order: %w", err)
		}
		order := doc.Order
		order.Id = doc.ID.Hex()
		order.UserId = userId
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	return orders, nil
}

// Close is a no-op, the client is shared
func (m *MongoOrders) Close() error {
	return nil
}

// userFilter matches orders whose user reference is stored either as an
// ObjectID or as the plain id string.
func userFilter(userId string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(userId); err == nil {
		return bson.M{"user": bson.M{"$in": bson.A{oid, userId}}}
	}
	return bson.M{"user": userId}
}
