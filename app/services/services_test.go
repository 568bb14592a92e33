package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/app/gateway"
	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/app/repositories/memory"
	"github.com/feastly/feastly/pkg/event"
)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateOrder(ctx context.Context, in gateway.CreateOrderInput) (gateway.Session, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(gateway.Session), args.Error(1)
}

func (m *mockGateway) FetchPaymentStatus(ctx context.Context, id string) (gateway.PaymentStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(gateway.PaymentStatus), args.Error(1)
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Dispatch(_ context.Context, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Name() == name {
			n++
		}
	}
	return n
}

type fixture struct {
	store  repo.Store
	gw     *mockGateway
	events *recorder
	svc    *OrderService
	user   *models.User
	foodA  *models.Food
	foodB  *models.Food
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	user := &models.User{Name: "Asha", Email: "asha@example.com", Phone: "9876543210", Role: models.RoleUser}
	require.NoError(t, store.Users.Create(ctx, user))

	foodA := &models.Food{Name: "Paneer Tikka", Price: decimal.NewFromInt(100), Category: "Indian", IsAvailable: true}
	foodB := &models.Food{Name: "Gulab Jamun", Price: decimal.NewFromInt(50), Category: "Dessert", IsAvailable: true}
	require.NoError(t, store.Foods.Create(ctx, foodA))
	require.NoError(t, store.Foods.Create(ctx, foodB))

	gw := &mockGateway{}
	rec := &recorder{}
	svc := NewOrderService(store, gw, opts)
	svc.UseEvents(rec)

	return &fixture{store: store, gw: gw, events: rec, svc: svc, user: user, foodA: foodA, foodB: foodB}
}

// cart is 2 x A (100) + 1 x B (50).
func (f *fixture) cart(orderType models.OrderType, claimed int64) Cart {
	return Cart{
		Items: []CartLine{
			{FoodID: f.foodA.ID, Quantity: 2},
			{FoodID: f.foodB.ID, Quantity: 1},
		},
		OrderType:    orderType,
		ClaimedTotal: decimal.NewFromInt(claimed),
	}
}

func (f *fixture) expectSession(gid string) {
	f.gw.On("CreateOrder", mock.Anything, mock.Anything).
		Return(gateway.Session{GatewayOrderID: gid, PaymentSessionID: "session_" + gid}, nil)
}

func (f *fixture) place(t *testing.T, gid string) *models.Order {
	t.Helper()
	f.expectSession(gid)
	res, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: f.user.ID,
		Cart:   f.cart(models.OrderTypeDineIn, 250),
	})
	require.NoError(t, err)
	return res.Order
}

func (f *fixture) persisted(t *testing.T) int64 {
	t.Helper()
	_, p, err := f.store.Orders.FindByUser(context.Background(), f.user.ID, 1, 20)
	require.NoError(t, err)
	return p.Total
}

func (f *fixture) setStatus(t *testing.T, id string, st models.OrderStatus) {
	t.Helper()
	require.NoError(t, f.store.Orders.UpdateByID(context.Background(), id, repo.OrderPatch{Status: &st}))
}


var (
	t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(5 * time.Minute)
)
