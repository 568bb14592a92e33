package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/metrics"
	"github.com/feastly/feastly/pkg/orm"
)

// MongoStore returns document-backed repositories over db.
func MongoStore(db *mongo.Database) Store {
	return Store{
		Orders:      &MongoOrders{c: db.Collection("orders")},
		Foods:       &MongoFoods{c: db.Collection("foods")},
		Users:       &MongoUsers{c: db.Collection("users")},
		Restaurants: &MongoRestaurants{c: db.Collection("restaurants")},
	}
}

// EnsureMongoIndexes creates the lookup and uniqueness indexes. It is
// idempotent and runs on every boot.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"orders": {
			{Keys: bson.D{{Key: "gatewayOrderId", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "items.food", Value: 1}}},
			{
				Keys: bson.D{{Key: "user", Value: 1}, {Key: "idempotencyKey", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$exists": true}}),
			},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"restaurants": {
			{Keys: bson.D{{Key: "owner", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "gstNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"foods": {
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func mongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

func observe(op string) func() {
	start := time.Now()
	return func() { metrics.ObserveDBQuery(op, start) }
}

type MongoOrders struct {
	c *mongo.Collection
}

func (r *MongoOrders) Create(ctx context.Context, o *models.Order) error {
	defer observe("insert")()
	o.Touch(time.Now())
	_, err := r.c.InsertOne(ctx, o)
	return mongoErr(err)
}

func (r *MongoOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoOrders) FindOne(ctx context.Context, f OrderFilter) (*models.Order, error) {
	if f.IsEmpty() {
		return nil, ErrNotFound
	}
	filter := bson.M{}
	if f.GatewayOrderID != "" {
		filter["gatewayOrderId"] = f.GatewayOrderID
	}
	if f.UserID != "" {
		filter["user"] = f.UserID
	}
	if f.IdempotencyKey != "" {
		filter["idempotencyKey"] = f.IdempotencyKey
	}
	return r.findOne(ctx, filter)
}

func (r *MongoOrders) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	defer observe("select")()
	var o models.Order
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := r.c.FindOne(ctx, filter, opts).Decode(&o); err != nil {
		return nil, mongoErr(err)
	}
	return &o, nil
}

func (r *MongoOrders) FindByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, orm.Pagination, error) {
	defer observe("select")()
	filter := bson.M{"user": userID}

	total, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, orm.Pagination{}, err
	}
	p := orm.NewPagination(page, limit, total)

	cur, err := r.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(p.Offset())).
		SetLimit(int64(p.Limit)))
	if err != nil {
		return nil, p, err
	}
	var out []models.Order
	err = cur.All(ctx, &out)
	return out, p, err
}

func orderSet(p OrderPatch) bson.M {
	set := bson.M{"updatedAt": time.Now()}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.GatewayOrderID != nil {
		set["gatewayOrderId"] = *p.GatewayOrderID
	}
	if p.PaymentSessionID != nil {
		set["paymentSessionId"] = *p.PaymentSessionID
	}
	if p.PaymentResult != nil {
		set["paymentResult"] = *p.PaymentResult
	}
	return bson.M{"$set": set}
}

func (r *MongoOrders) UpdateByID(ctx context.Context, id string, p OrderPatch) error {
	defer observe("update")()
	res, err := r.c.UpdateByID(ctx, id, orderSet(p))
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CompareAndSet relies on single-document atomicity: the status predicate
// and the write are one UpdateOne.
func (r *MongoOrders) CompareAndSet(ctx context.Context, id string, expected []models.OrderStatus, p OrderPatch) (bool, error) {
	defer observe("update")()
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id, "status": bson.M{"$in": expected}}, orderSet(p))
	if err != nil {
		return false, mongoErr(err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoOrders) ExistsWithFood(ctx context.Context, foodID string) (bool, error) {
	defer observe("select")()
	n, err := r.c.CountDocuments(ctx, bson.M{"items.food": foodID}, options.Count().SetLimit(1))
	return n > 0, err
}

type MongoFoods struct {
	c *mongo.Collection
}

func (r *MongoFoods) FindByID(ctx context.Context, id string) (*models.Food, error) {
	defer observe("select")()
	var f models.Food
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, mongoErr(err)
	}
	return &f, nil
}

func (r *MongoFoods) List(ctx context.Context, f FoodFilter) ([]models.Food, error) {
	defer observe("select")()
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Available != nil {
		filter["isAvailable"] = *f.Available
	}
	if f.RestaurantID != "" {
		filter["restaurant"] = f.RestaurantID
	}

	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Food
	err = cur.All(ctx, &out)
	return out, err
}

func (r *MongoFoods) Create(ctx context.Context, f *models.Food) error {
	defer observe("insert")()
	f.Touch(time.Now())
	_, err := r.c.InsertOne(ctx, f)
	return mongoErr(err)
}

func (r *MongoFoods) UpdateByID(ctx context.Context, id string, f *models.Food) error {
	defer observe("update")()
	res, err := r.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":        f.Name,
		"description": f.Description,
		"price":       f.Price,
		"image":       f.Image,
		"category":    f.Category,
		"isAvailable": f.IsAvailable,
		"rating":      f.Rating,
		"updatedAt":   time.Now(),
	}})
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoFoods) DeleteByID(ctx context.Context, id string) error {
	defer observe("delete")()
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type MongoUsers struct {
	c *mongo.Collection
}

func (r *MongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	defer observe("select")()
	var u models.User
	if err := r.c.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mongoErr(err)
	}
	return &u, nil
}

func (r *MongoUsers) Create(ctx context.Context, u *models.User) error {
	defer observe("insert")()
	u.Touch(time.Now())
	if u.OrderHistory == nil {
		u.OrderHistory = []models.OrderHistoryEntry{}
	}
	_, err := r.c.InsertOne(ctx, u)
	return mongoErr(err)
}

func (r *MongoUsers) UpdateRole(ctx context.Context, id, role string) error {
	defer observe("update")()
	res, err := r.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now()}})
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUsers) AppendOrder(ctx context.Context, userID, orderID string, at time.Time) error {
	defer observe("update")()
	res, err := r.c.UpdateByID(ctx, userID, bson.M{"$push": bson.M{
		"orderHistory": models.OrderHistoryEntry{OrderID: orderID, CreatedAt: at},
	}})
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type MongoRestaurants struct {
	c *mongo.Collection
}

func (r *MongoRestaurants) Create(ctx context.Context, rest *models.Restaurant) error {
	defer observe("insert")()
	rest.Touch(time.Now())
	_, err := r.c.InsertOne(ctx, rest)
	return mongoErr(err)
}

func (r *MongoRestaurants) FindByID(ctx context.Context, id string) (*models.Restaurant, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRestaurants) FindByOwner(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	return r.findOne(ctx, bson.M{"owner": ownerID})
}

func (r *MongoRestaurants) findOne(ctx context.Context, filter bson.M) (*models.Restaurant, error) {
	defer observe("select")()
	var rest models.Restaurant
	if err := r.c.FindOne(ctx, filter).Decode(&rest); err != nil {
		return nil, mongoErr(err)
	}
	return &rest, nil
}

func (r *MongoRestaurants) List(ctx context.Context, status models.RestaurantStatus) ([]models.Restaurant, error) {
	defer observe("select")()
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Restaurant
	err = cur.All(ctx, &out)
	return out, err
}

func (r *MongoRestaurants) UpdateStatus(ctx context.Context, id string, status models.RestaurantStatus) error {
	defer observe("update")()
	res, err := r.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}})
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
