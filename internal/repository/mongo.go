package repository

import (
	"context"
	"errors"
	"time"

	"order-tracking-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOrderRepository stores orders and aliases in two collections.
// Transactions need a replica set deployment.
type MongoOrderRepository struct {
	client  *mongo.Client
	orders  *mongo.Collection
	aliases *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		client:  db.Client(),
		orders:  db.Collection(ordersCollection),
		aliases: db.Collection(aliasesCollection),
	}
}

// EnsureIndexes creates the unique indexes that back code and alias uniqueness.
func (m *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = m.aliases.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "alias_code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "order_code", Value: 1}}},
	})
	return err
}

// WithTransaction runs fn inside a session transaction. Calls nested in an
// open transaction join it.
func (m *MongoOrderRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m *MongoOrderRepository) FindOrderByCode(ctx context.Context, code string) (*model.Order, error) {
	var res model.Order
	err := m.orders.FindOne(ctx, bson.M{"code": code}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoOrderRepository) FindAliasByCode(ctx context.Context, aliasCode string) (*model.OrderAlias, error) {
	var res model.OrderAlias
	err := m.aliases.FindOne(ctx, bson.M{"alias_code": aliasCode}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoOrderRepository) InsertOrder(ctx context.Context, o *model.Order) error {
	stamp(o)
	_, err := m.orders.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *MongoOrderRepository) InsertAlias(ctx context.Context, a *model.OrderAlias) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := m.aliases.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateOrder writes the mutable fields of an existing order.
func (m *MongoOrderRepository) UpdateOrder(ctx context.Context, o *model.Order) error {
	update := bson.M{
		"$set": bson.M{
			"status":     o.Status,
			"image_path": o.ImagePath,
			"updated_at": o.UpdatedAt,
		},
	}
	r, err := m.orders.UpdateOne(ctx, bson.M{"code": o.Code}, update)
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindOrdersInRange returns orders created within [start, end], oldest first.
func (m *MongoOrderRepository) FindOrdersInRange(ctx context.Context, start, end time.Time) ([]*model.Order, error) {
	filter := bson.M{"created_at": bson.M{"$gte": start, "$lte": end}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := m.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeOrders(ctx, cur)
}

func (m *MongoOrderRepository) UpdateStatusForCodes(ctx context.Context, codes []string, status string, at time.Time) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": at,
		},
	}
	r, err := m.orders.UpdateMany(ctx, bson.M{"code": bson.M{"$in": codes}}, update)
	if err != nil {
		return 0, err
	}
	return r.MatchedCount, nil
}

func (m *MongoOrderRepository) FindAll(ctx context.Context) ([]*model.Order, error) {
	cur, err := m.orders.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeOrders(ctx, cur)
}

func (m *MongoOrderRepository) FindByStatus(ctx context.Context, status string) ([]*model.Order, error) {
	cur, err := m.orders.Find(ctx, bson.M{"status": status}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeOrders(ctx, cur)
}

func (m *MongoOrderRepository) FindAliasesForOrder(ctx context.Context, orderCode string) ([]*model.OrderAlias, error) {
	cur, err := m.aliases.Find(ctx, bson.M{"order_code": orderCode})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.OrderAlias
	for cur.Next(ctx) {
		var v model.OrderAlias
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

func decodeOrders(ctx context.Context, cur *mongo.Cursor) ([]*model.Order, error) {
	defer cur.Close(ctx)

	var out []*model.Order
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
