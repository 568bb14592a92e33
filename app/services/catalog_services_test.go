package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/app/repositories/memory"
	"github.com/feastly/feastly/pkg/auth"
)

func TestAuth_RegisterLoginMe(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(memory.NewStore())

	reg, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: " Ada@Example.com ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.Equal(t, models.RoleUser, reg.User.Role)

	claims, err := auth.ValidateToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	_, err = svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Login(ctx, "ADA@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	in, err := svc.Login(ctx, "ADA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, in.User.ID)

	me, err := svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)

	_, err = svc.Me(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SetRole(ctx, reg.User.ID, "superuser")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	promoted, err := svc.SetRole(ctx, reg.User.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
}

func application(title, gst string) RestaurantInput {
	return RestaurantInput{Title: title, GSTNumber: gst, Address: "12 MG Road", Phone: "9876543210"}
}

func TestRestaurant_ApprovalPromotesOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewRestaurantService(store)

	owner := &models.User{Name: "Ravi", Email: "ravi@example.com", Role: models.RoleUser}
	require.NoError(t, store.Users.Create(ctx, owner))

	r, err := svc.Apply(ctx, owner.ID, application("Ravi's Kitchen", "29ABCDE1234F1Z5"))
	require.NoError(t, err)
	assert.Equal(t, models.RestaurantPending, r.Status)

	_, err = svc.Apply(ctx, owner.ID, application("Second", "29ABCDE1234F1Z6"))
	assert.ErrorIs(t, err, ErrConflict)

	pending, err := svc.List(ctx, "Pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	_, err = svc.List(ctx, "Maybe")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.SetStatus(ctx, r.ID, "Open")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.SetStatus(ctx, "missing", "Approved")
	assert.ErrorIs(t, err, ErrNotFound)

	approved, err := svc.SetStatus(ctx, r.ID, "Approved")
	require.NoError(t, err)
	assert.Equal(t, models.RestaurantApproved, approved.Status)

	u, err := store.Users.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRestaurant, u.Role)

	mine, err := svc.Mine(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, mine.ID)
	_, err = svc.Mine(ctx, "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFood_OperatorScopeAndDeleteGuard(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewFoodService(store)

	admin := Actor{UserID: "admin-1", Role: models.RoleAdmin}
	shopper := Actor{UserID: "user-1", Role: models.RoleUser}
	operator := Actor{UserID: "owner-1", Role: models.RoleRestaurant}

	dosa := FoodInput{Name: "Masala Dosa", Description: "Crisp crepe", Price: decimal.NewFromInt(120), Category: "Indian", IsAvailable: true}

	_, err := svc.Create(ctx, shopper, dosa)
	assert.ErrorIs(t, err, ErrForbidden)

	rest := &models.Restaurant{OwnerID: operator.UserID, Title: "Dosa Co", GSTNumber: "29ABCDE1234F1Z5", Status: models.RestaurantPending}
	require.NoError(t, store.Restaurants.Create(ctx, rest))
	_, err = svc.Create(ctx, operator, dosa)
	assert.ErrorIs(t, err, ErrForbidden, "pending restaurants cannot publish")

	require.NoError(t, store.Restaurants.UpdateStatus(ctx, rest.ID, models.RestaurantApproved))
	own, err := svc.Create(ctx, operator, dosa)
	require.NoError(t, err)
	assert.Equal(t, rest.ID, own.RestaurantID)

	house, err := svc.Create(ctx, admin, FoodInput{Name: "Lassi", Description: "Sweet", Price: decimal.NewFromInt(60), Category: "Drinks", IsAvailable: true})
	require.NoError(t, err)
	assert.Empty(t, house.RestaurantID)

	_, err = svc.Update(ctx, operator, house.ID, dosa)
	assert.ErrorIs(t, err, ErrForbidden)

	dosa.Price = decimal.NewFromInt(140)
	updated, err := svc.Update(ctx, operator, own.ID, dosa)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(140)))

	listed, err := svc.List(ctx, repo.FoodFilter{Category: "Indian"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, store.Orders.Create(ctx, &models.Order{
		UserID:      "user-1",
		Items:       []models.OrderItem{{FoodID: own.ID, Quantity: 1, Price: decimal.NewFromInt(120)}},
		TotalAmount: decimal.NewFromInt(120),
		OrderType:   models.OrderTypePickup,
		Status:      models.StatusPending,
	}))
	assert.ErrorIs(t, svc.Delete(ctx, operator, own.ID), ErrConflict)

	require.NoError(t, svc.Delete(ctx, admin, house.ID))
	_, err = svc.Get(ctx, house.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
