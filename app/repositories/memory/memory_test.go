package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
)

func newOrder(user string) *models.Order {
	return &models.Order{
		UserID:      user,
		Status:      models.StatusPending,
		OrderType:   models.OrderTypeDineIn,
		TotalAmount: decimal.NewFromInt(100),
		Items: []models.OrderItem{
			{FoodID: "food-1", Quantity: 1, Price: decimal.NewFromInt(100), Subtotal: decimal.NewFromInt(100)},
		},
	}
}

func TestOrders_CreateAssignsIDsAndCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	o := newOrder("u1")
	require.NoError(t, s.Orders.Create(ctx, o))
	assert.NotEmpty(t, o.ID)
	assert.False(t, o.CreatedAt.IsZero())

	o.Items[0].Price = decimal.NewFromInt(1)

	got, err := s.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, o.ID, got.Items[0].OrderID)
}

func TestOrders_FindByIDMissing(t *testing.T) {
	s := NewStore()
	_, err := s.Orders.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOrders_IdempotencyKeyUniquePerUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	key := "abc"

	first := newOrder("u1")
	first.IdempotencyKey = &key
	require.NoError(t, s.Orders.Create(ctx, first))

	dup := newOrder("u1")
	dup.IdempotencyKey = &key
	assert.ErrorIs(t, s.Orders.Create(ctx, dup), repo.ErrDuplicate)

	other := newOrder("u2")
	other.IdempotencyKey = &key
	assert.NoError(t, s.Orders.Create(ctx, other))

	got, err := s.Orders.FindOne(ctx, repo.OrderFilter{UserID: "u1", IdempotencyKey: key})
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestOrders_FindOneByGatewayID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	o := newOrder("u1")
	require.NoError(t, s.Orders.Create(ctx, o))
	gid := "CF123"
	require.NoError(t, s.Orders.UpdateByID(ctx, o.ID, repo.OrderPatch{GatewayOrderID: &gid}))

	got, err := s.Orders.FindOne(ctx, repo.OrderFilter{GatewayOrderID: gid})
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = s.Orders.FindOne(ctx, repo.OrderFilter{GatewayOrderID: "other"})
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = s.Orders.FindOne(ctx, repo.OrderFilter{})
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOrders_CompareAndSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	o := newOrder("u1")
	require.NoError(t, s.Orders.Create(ctx, o))

	processing := models.StatusProcessing
	ok, err := s.Orders.CompareAndSet(ctx, o.ID, []models.OrderStatus{models.StatusPending}, repo.OrderPatch{Status: &processing})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Orders.CompareAndSet(ctx, o.ID, []models.OrderStatus{models.StatusPending}, repo.OrderPatch{Status: &processing})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Orders.CompareAndSet(ctx, "missing", []models.OrderStatus{models.StatusPending}, repo.OrderPatch{Status: &processing})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrders_CompareAndSetSingleWinner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	o := newOrder("u1")
	require.NoError(t, s.Orders.Create(ctx, o))

	processing := models.StatusProcessing
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := s.Orders.CompareAndSet(ctx, o.ID, []models.OrderStatus{models.StatusPending}, repo.OrderPatch{Status: &processing})
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestOrders_FindByUserPaginatesNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		o := newOrder("u1")
		o.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Orders.Create(ctx, o))
		ids = append(ids, o.ID)
	}
	require.NoError(t, s.Orders.Create(ctx, newOrder("u2")))

	page, p, err := s.Orders.FindByUser(ctx, "u1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.Total)
	assert.Equal(t, 3, p.TotalPages)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	last, _, err := s.Orders.FindByUser(ctx, "u1", 3, 2)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, ids[0], last[0].ID)

	beyond, _, err := s.Orders.FindByUser(ctx, "u1", 9, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestOrders_ExistsWithFood(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Orders.Create(ctx, newOrder("u1")))

	ok, err := s.Orders.ExistsWithFood(ctx, "food-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Orders.ExistsWithFood(ctx, "food-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUsers_UniqueEmailAndHistory(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	u := &models.User{Name: "Asha", Email: "asha@example.com", Role: models.RoleUser}
	require.NoError(t, s.Users.Create(ctx, u))
	assert.ErrorIs(t, s.Users.Create(ctx, &models.User{Email: "asha@example.com"}), repo.ErrDuplicate)

	require.NoError(t, s.Users.AppendOrder(ctx, u.ID, "order-1", time.Now()))
	require.NoError(t, s.Users.UpdateRole(ctx, u.ID, models.RoleRestaurant))

	got, err := s.Users.FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleRestaurant, got.Role)
	require.Len(t, got.OrderHistory, 1)
	assert.Equal(t, "order-1", got.OrderHistory[0].OrderID)

	assert.ErrorIs(t, s.Users.AppendOrder(ctx, "missing", "o", time.Now()), repo.ErrNotFound)
}

func TestRestaurants_OnePerOwner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	r := &models.Restaurant{OwnerID: "u1", Title: "Tandoor", GSTNumber: "GST1", Status: models.RestaurantPending}
	require.NoError(t, s.Restaurants.Create(ctx, r))
	assert.ErrorIs(t, s.Restaurants.Create(ctx, &models.Restaurant{OwnerID: "u1", GSTNumber: "GST2"}), repo.ErrDuplicate)
	assert.ErrorIs(t, s.Restaurants.Create(ctx, &models.Restaurant{OwnerID: "u2", GSTNumber: "GST1"}), repo.ErrDuplicate)

	require.NoError(t, s.Restaurants.UpdateStatus(ctx, r.ID, models.RestaurantApproved))

	pending, err := s.Restaurants.List(ctx, models.RestaurantPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := s.Restaurants.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFoods_FilterAndUpdate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	pizza := &models.Food{Name: "Margherita", Price: decimal.NewFromInt(100), Category: "Pizza", IsAvailable: true}
	salad := &models.Food{Name: "Caesar", Price: decimal.NewFromInt(50), Category: "Salad", IsAvailable: false}
	require.NoError(t, s.Foods.Create(ctx, pizza))
	require.NoError(t, s.Foods.Create(ctx, salad))

	available := true
	list, err := s.Foods.List(ctx, repo.FoodFilter{Available: &available})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Margherita", list[0].Name)

	edit := *pizza
	edit.Price = decimal.NewFromInt(120)
	require.NoError(t, s.Foods.UpdateByID(ctx, pizza.ID, &edit))

	got, err := s.Foods.FindByID(ctx, pizza.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, pizza.CreatedAt, got.CreatedAt)

	require.NoError(t, s.Foods.DeleteByID(ctx, salad.ID))
	assert.ErrorIs(t, s.Foods.DeleteByID(ctx, salad.ID), repo.ErrNotFound)
}
