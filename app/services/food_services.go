package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/pkg/cache"
	"github.com/feastly/feastly/pkg/logger"
)

const foodCacheTTL = 5 * time.Minute

type FoodInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    models.FoodCategory
	IsAvailable bool
	Rating      *float64
}

func (in FoodInput) apply(f *models.Food) {
	f.Name = in.Name
	f.Description = in.Description
	f.Price = in.Price
	f.Image = in.Image
	f.Category = in.Category
	f.IsAvailable = in.IsAvailable
	f.Rating = in.Rating
}

type FoodService struct {
	foods       repo.FoodRepository
	orders      repo.OrderRepository
	restaurants repo.RestaurantRepository
}

func NewFoodService(store repo.Store) *FoodService {
	return &FoodService{foods: store.Foods, orders: store.Orders, restaurants: store.Restaurants}
}

func foodCacheKey(f repo.FoodFilter) string {
	avail := "any"
	if f.Available != nil {
		avail = fmt.Sprint(*f.Available)
	}
	return fmt.Sprintf("foods:%s:%s:%s", f.Category, avail, f.RestaurantID)
}

// List serves the catalog, from Redis when it is connected.
func (s *FoodService) List(ctx context.Context, f repo.FoodFilter) ([]models.Food, error) {
	key := foodCacheKey(f)

	var cached []models.Food
	if cache.Get(key, &cached) {
		return cached, nil
	}

	foods, err := s.foods.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(key, foods, foodCacheTTL); err != nil {
		logger.WithCtx(ctx).Warn("food cache write failed", "error", err)
	}
	return foods, nil
}

func (s *FoodService) Get(ctx context.Context, id string) (*models.Food, error) {
	f, err := s.foods.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return f, err
}

// Create adds a menu item. Restaurant operators publish under their own
// approved restaurant.
func (s *FoodService) Create(ctx context.Context, actor Actor, in FoodInput) (*models.Food, error) {
	restaurantID, err := s.ownerScope(ctx, actor)
	if err != nil {
		return nil, err
	}

	f := &models.Food{RestaurantID: restaurantID}
	in.apply(f)
	if err := s.foods.Create(ctx, f); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return f, nil
}

func (s *FoodService) Update(ctx context.Context, actor Actor, id string, in FoodInput) (*models.Food, error) {
	f, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	in.apply(f)
	if err := s.foods.UpdateByID(ctx, id, f); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.invalidate(ctx)
	return f, nil
}

// Delete refuses while any order references the item.
func (s *FoodService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}

	used, err := s.orders.ExistsWithFood(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: food is referenced by existing orders", ErrConflict)
	}

	if err := s.foods.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *FoodService) editable(ctx context.Context, actor Actor, id string) (*models.Food, error) {
	restaurantID, err := s.ownerScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if restaurantID != "" && f.RestaurantID != restaurantID {
		return nil, ErrForbidden
	}
	return f, nil
}

// ownerScope returns "" for admins (no restriction) and the approved
// restaurant id for restaurant operators.
func (s *FoodService) ownerScope(ctx context.Context, actor Actor) (string, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return "", nil
	case models.RoleRestaurant:
		r, err := s.restaurants.FindByOwner(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrForbidden
		}
		if err != nil {
			return "", err
		}
		if r.Status != models.RestaurantApproved {
			return "", ErrForbidden
		}
		return r.ID, nil
	}
	return "", ErrForbidden
}

func (s *FoodService) invalidate(ctx context.Context) {
	if err := cache.Forget("foods:*"); err != nil {
		logger.WithCtx(ctx).Warn("food cache invalidation failed", "error", err)
	}
}
