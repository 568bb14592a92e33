package seeders

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/config"
	"github.com/feastly/feastly/pkg/auth"
)

func init() {
	Register("admin", SeedAdmin)
	Register("foods", SeedFoods)
}

var starterMenu = []models.Food{
	{Name: "Margherita", Description: "Tomato, mozzarella, basil", Price: decimal.NewFromInt(249), Category: "Pizza"},
	{Name: "Farmhouse", Description: "Onion, capsicum, mushroom, tomato", Price: decimal.NewFromInt(329), Category: "Pizza"},
	{Name: "Classic Veg Burger", Description: "Potato patty, lettuce, house sauce", Price: decimal.NewFromInt(129), Category: "Burger"},
	{Name: "Paneer Tikka", Description: "Char-grilled cottage cheese, mint chutney", Price: decimal.NewFromInt(279), Category: "Indian"},
	{Name: "Veg Hakka Noodles", Description: "Wok-tossed noodles with vegetables", Price: decimal.NewFromInt(189), Category: "Chinese"},
	{Name: "Caesar Salad", Description: "Romaine, parmesan, croutons", Price: decimal.NewFromInt(219), Category: "Salad"},
	{Name: "Gulab Jamun", Description: "Two pieces in rose syrup", Price: decimal.NewFromInt(99), Category: "Dessert"},
	{Name: "Cold Coffee", Description: "Blended with vanilla ice cream", Price: decimal.NewFromInt(149), Category: "Drinks"},
}

// SeedFoods inserts the starter menu when the catalog is empty.
func SeedFoods(ctx context.Context, store repo.Store) error {
	existing, err := store.Foods.List(ctx, repo.FoodFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, f := range starterMenu {
		f.IsAvailable = true
		if err := store.Foods.Create(ctx, &f); err != nil {
			return err
		}
	}
	return nil
}

// SeedAdmin creates the operator account named by APP_SEED_ADMIN_EMAIL.
func SeedAdmin(ctx context.Context, store repo.Store) error {
	email, password := config.SeedAdminEmail(), config.SeedAdminPassword()
	if email == "" {
		return nil
	}
	if password == "" {
		return errors.New("APP_SEED_ADMIN_PASSWORD is required with APP_SEED_ADMIN_EMAIL")
	}

	_, err := store.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, repo.ErrNotFound):
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return store.Users.Create(ctx, &models.User{
		Name:     "Administrator",
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
	})
}
