package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/pkg/logger"
)

type RestaurantInput struct {
	Title       string
	Description string
	GSTNumber   string
	Address     string
	Phone       string
	Image       string
}

type RestaurantService struct {
	restaurants repo.RestaurantRepository
	users       repo.UserRepository
}

func NewRestaurantService(store repo.Store) *RestaurantService {
	return &RestaurantService{restaurants: store.Restaurants, users: store.Users}
}

// Apply files a partnership application. Each user may hold one.
func (s *RestaurantService) Apply(ctx context.Context, ownerID string, in RestaurantInput) (*models.Restaurant, error) {
	r := &models.Restaurant{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		GSTNumber:   in.GSTNumber,
		Address:     in.Address,
		Phone:       in.Phone,
		Image:       in.Image,
		Status:      models.RestaurantPending,
	}
	if err := s.restaurants.Create(ctx, r); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: an application already exists for this user or GST number", ErrConflict)
		}
		return nil, err
	}
	return r, nil
}

func (s *RestaurantService) Mine(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	r, err := s.restaurants.FindByOwner(ctx, ownerID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *RestaurantService) List(ctx context.Context, status string) ([]models.Restaurant, error) {
	st := models.RestaurantStatus(status)
	if status != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.restaurants.List(ctx, st)
}

// SetStatus moves an application. Approval promotes the owner to the
// restaurant role; the new role takes effect on their next login.
func (s *RestaurantService) SetStatus(ctx context.Context, id, status string) (*models.Restaurant, error) {
	st := models.RestaurantStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.restaurants.UpdateStatus(ctx, id, st); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r, err := s.restaurants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if st == models.RestaurantApproved {
		if err := s.users.UpdateRole(ctx, r.OwnerID, models.RoleRestaurant); err != nil {
			return nil, fmt.Errorf("promote owner: %w", err)
		}
	}
	logger.WithCtx(ctx).Info("restaurant status updated", "restaurant_id", id, "status", st)
	return r, nil
}
