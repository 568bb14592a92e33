// Package repositories defines the persistence contracts used by the
// services and their SQL (gorm) and document (mongo) implementations. The
// in-memory implementation lives in repositories/memory.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/orm"
)

var (
	// ErrNotFound is returned by every lookup or update that matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (email, owner, idempotency key) is taken.
	ErrDuplicate = errors.New("duplicate record")
)

// OrderFilter matches on every non-empty field.
type OrderFilter struct {
	GatewayOrderID string
	UserID         string
	IdempotencyKey string
}

func (f OrderFilter) IsEmpty() bool {
	return f.GatewayOrderID == "" && f.UserID == "" && f.IdempotencyKey == ""
}

// OrderPatch lists the mutable order fields; nil means "leave as is".
type OrderPatch struct {
	Status           *models.OrderStatus
	GatewayOrderID   *string
	PaymentSessionID *string
	PaymentResult    *models.PaymentResult
}

// Apply writes the patch onto o.
func (p OrderPatch) Apply(o *models.Order, now time.Time) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.GatewayOrderID != nil {
		o.GatewayOrderID = *p.GatewayOrderID
	}
	if p.PaymentSessionID != nil {
		o.PaymentSessionID = *p.PaymentSessionID
	}
	if p.PaymentResult != nil {
		o.PaymentResult = *p.PaymentResult
	}
	o.UpdatedAt = now
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindOne(ctx context.Context, f OrderFilter) (*models.Order, error)
	FindByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, orm.Pagination, error)
	UpdateByID(ctx context.Context, id string, p OrderPatch) error
	// CompareAndSet applies p only while the stored status is one of
	// expected. The boolean reports whether the write happened.
	CompareAndSet(ctx context.Context, id string, expected []models.OrderStatus, p OrderPatch) (bool, error)
	ExistsWithFood(ctx context.Context, foodID string) (bool, error)
}

type FoodFilter struct {
	Category     models.FoodCategory
	Available    *bool
	RestaurantID string
}

type FoodRepository interface {
	FindByID(ctx context.Context, id string) (*models.Food, error)
	List(ctx context.Context, f FoodFilter) ([]models.Food, error)
	Create(ctx context.Context, f *models.Food) error
	// UpdateByID replaces the editable catalog fields of id with those of f.
	UpdateByID(ctx context.Context, id string, f *models.Food) error
	DeleteByID(ctx context.Context, id string) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateRole(ctx context.Context, id, role string) error
	AppendOrder(ctx context.Context, userID, orderID string, at time.Time) error
}

type RestaurantRepository interface {
	Create(ctx context.Context, r *models.Restaurant) error
	FindByID(ctx context.Context, id string) (*models.Restaurant, error)
	FindByOwner(ctx context.Context, ownerID string) (*models.Restaurant, error)
	// List returns applications with the given status, or all when status is empty.
	List(ctx context.Context, status models.RestaurantStatus) ([]models.Restaurant, error)
	UpdateStatus(ctx context.Context, id string, status models.RestaurantStatus) error
}

// Store bundles one implementation of every repository.
type Store struct {
	Orders      OrderRepository
	Foods       FoodRepository
	Users       UserRepository
	Restaurants RestaurantRepository
}
