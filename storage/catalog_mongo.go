package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"Kirana/lib/sl"
)

const productsCollectionName = "products"

type productDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Product `bson:",inline"`
}

// MongoCatalog is a MongoDB implementation of Catalog
type MongoCatalog struct {
	collection *mongo.Collection
	storeId    string
	log        *slog.Logger
}

// NewMongoCatalog creates a catalog on the shared client; an empty storeId
// means the whole collection is visible.
func NewMongoCatalog(client *mongo.Client, database, storeId string, log *slog.Logger) *MongoCatalog {
	return &MongoCatalog{
		collection: client.Database(database).Collection(productsCollectionName),
		storeId:    storeId,
		log:        log.With(sl.Module("mongo-catalog")),
	}
}

func (m *MongoCatalog) FindByNameFragment(ctx context.Context, fragment string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})

	var doc productDoc
	err := m.collection.FindOne(ctx, fragmentFilter(fragment, m.storeId), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding product: %w", err)
	}
	product := doc.Product
	product.Id = doc.ID.Hex()
	return &product, nil
}

// UpsertProducts inserts or updates products by name within the catalog's
// store and returns how many documents were created or modified.
func (m *MongoCatalog) UpsertProducts(ctx context.Context, products []Product) (int64, error) {
	if len(products) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		p.StoreId = m.storeId
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": p.Name, "store": storeValue(m.storeId)}).
			SetUpdate(bson.M{"$set": p}).
			SetUpsert(true))
	}

	res, err := m.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("upserting products: %w", err)
	}
	m.log.Info("products upserted",
		slog.Int64("inserted", res.UpsertedCount),
		slog.Int64("modified", res.ModifiedCount))
	return res.UpsertedCount + res.ModifiedCount, nil
}

// Close is a no-op, the client is shared
func (m *MongoCatalog) Close() error {
	return nil
}

func fragmentFilter(fragment, storeId string) bson.M {
	filter := bson.M{
		"name": primitive.Regex{Pattern: regexp.QuoteMeta(fragment), Options: "i"},
	}
	if storeId != "" {
		filter["store"] = storeId
	}
	return filter
}

// storeValue matches a missing store field for the global catalogue.
func storeValue(storeId string) any {
	if storeId == "" {
		return bson.M{"$exists": false}
	}
	return storeId
}
