package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/orm"
)

type GormFoods struct {
	db *gorm.DB
}

func (r *GormFoods) q(ctx context.Context) *orm.Query {
	return orm.New(r.db).WithContext(ctx)
}

func (r *GormFoods) FindByID(ctx context.Context, id string) (*models.Food, error) {
	var f models.Food
	if err := r.q(ctx).Where("id = ?", id).First(&f); err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *GormFoods) List(ctx context.Context, f FoodFilter) ([]models.Food, error) {
	q := r.q(ctx).Model(&models.Food{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Available != nil {
		q = q.Where("is_available = ?", *f.Available)
	}
	if f.RestaurantID != "" {
		q = q.Where("restaurant_id = ?", f.RestaurantID)
	}

	var foods []models.Food
	err := q.Order("created_at desc").Get(&foods)
	return foods, err
}

func (r *GormFoods) Create(ctx context.Context, f *models.Food) error {
	return translate(r.q(ctx).Create(f))
}

func (r *GormFoods) UpdateByID(ctx context.Context, id string, f *models.Food) error {
	n, err := r.q(ctx).Model(&models.Food{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":         f.Name,
		"description":  f.Description,
		"price":        f.Price,
		"image":        f.Image,
		"category":     f.Category,
		"is_available": f.IsAvailable,
		"rating":       f.Rating,
		"updated_at":   time.Now(),
	})
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormFoods) DeleteByID(ctx context.Context, id string) error {
	n, err := r.q(ctx).Where("id = ?", id).Delete(&models.Food{})
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type GormUsers struct {
	db *gorm.DB
}

func (r *GormUsers) q(ctx context.Context) *orm.Query {
	return orm.New(r.db).WithContext(ctx)
}

func (r *GormUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.q(ctx).Where("id = ?", id).First(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *GormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.q(ctx).Where("email = ?", email).First(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *GormUsers) Create(ctx context.Context, u *models.User) error {
	return translate(r.q(ctx).Create(u))
}

func (r *GormUsers) UpdateRole(ctx context.Context, id, role string) error {
	n, err := r.q(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"role": role, "updated_at": time.Now()})
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormUsers) AppendOrder(ctx context.Context, userID, orderID string, at time.Time) error {
	return translate(r.q(ctx).Create(&models.OrderHistoryEntry{UserID: userID, OrderID: orderID, CreatedAt: at}))
}

type GormRestaurants struct {
	db *gorm.DB
}

func (r *GormRestaurants) q(ctx context.Context) *orm.Query {
	return orm.New(r.db).WithContext(ctx)
}

func (r *GormRestaurants) Create(ctx context.Context, rest *models.Restaurant) error {
	return translate(r.q(ctx).Create(rest))
}

func (r *GormRestaurants) FindByID(ctx context.Context, id string) (*models.Restaurant, error) {
	var rest models.Restaurant
	if err := r.q(ctx).Where("id = ?", id).First(&rest); err != nil {
		return nil, translate(err)
	}
	return &rest, nil
}

func (r *GormRestaurants) FindByOwner(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	var rest models.Restaurant
	if err := r.q(ctx).Where("owner_id = ?", ownerID).First(&rest); err != nil {
		return nil, translate(err)
	}
	return &rest, nil
}

func (r *GormRestaurants) List(ctx context.Context, status models.RestaurantStatus) ([]models.Restaurant, error) {
	q := r.q(ctx).Model(&models.Restaurant{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Restaurant
	err := q.Order("created_at desc").Get(&out)
	return out, err
}

func (r *GormRestaurants) UpdateStatus(ctx context.Context, id string, status models.RestaurantStatus) error {
	n, err := r.q(ctx).Model(&models.Restaurant{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
