package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/orm"
)

// GormStore returns SQL-backed repositories sharing db.
func GormStore(db *gorm.DB) Store {
	return Store{
		Orders:      &GormOrders{db: db},
		Foods:       &GormFoods{db: db},
		Users:       &GormUsers{db: db},
		Restaurants: &GormRestaurants{db: db},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

type GormOrders struct {
	db *gorm.DB
}

func (r *GormOrders) q(ctx context.Context) *orm.Query {
	return orm.New(r.db).WithContext(ctx)
}

func (r *GormOrders) Create(ctx context.Context, o *models.Order) error {
	return translate(r.q(ctx).Create(o))
}

func (r *GormOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := r.q(ctx).Preload("Items").Where("id = ?", id).First(&o)
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormOrders) FindOne(ctx context.Context, f OrderFilter) (*models.Order, error) {
	if f.IsEmpty() {
		return nil, ErrNotFound
	}

	q := r.q(ctx).Preload("Items")
	if f.GatewayOrderID != "" {
		q = q.Where("gateway_order_id = ?", f.GatewayOrderID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.IdempotencyKey != "" {
		q = q.Where("idempotency_key = ?", f.IdempotencyKey)
	}

	var o models.Order
	if err := q.Order("created_at desc").First(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormOrders) FindByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, orm.Pagination, error) {
	var orders []models.Order
	p, err := r.q(ctx).
		Model(&models.Order{}).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Paginate(&orders, page, limit)
	return orders, p, err
}

func orderColumns(p OrderPatch) map[string]interface{} {
	cols := map[string]interface{}{"updated_at": time.Now()}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.GatewayOrderID != nil {
		cols["gateway_order_id"] = *p.GatewayOrderID
	}
	if p.PaymentSessionID != nil {
		cols["payment_session_id"] = *p.PaymentSessionID
	}
	if pr := p.PaymentResult; pr != nil {
		cols["payment_external_payment_id"] = pr.ExternalPaymentID
		cols["payment_status"] = pr.Status
		cols["payment_settled_at"] = pr.SettledAt
		cols["payment_transaction_ref"] = pr.TransactionRef
	}
	return cols
}

func (r *GormOrders) UpdateByID(ctx context.Context, id string, p OrderPatch) error {
	n, err := r.q(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(orderColumns(p))
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompareAndSet is a single conditional UPDATE; the affected row count is the verdict.
func (r *GormOrders) CompareAndSet(ctx context.Context, id string, expected []models.OrderStatus, p OrderPatch) (bool, error) {
	if len(expected) == 0 {
		return false, nil
	}
	n, err := r.q(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(orderColumns(p))
	if err != nil {
		return false, translate(err)
	}
	return n == 1, nil
}

func (r *GormOrders) ExistsWithFood(ctx context.Context, foodID string) (bool, error) {
	return r.q(ctx).Model(&models.OrderItem{}).Where("food_id = ?", foodID).Exists()
}
