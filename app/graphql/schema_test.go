package graphql

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/app/repositories/memory"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/middleware"
)

func setup(t *testing.T) (graphql.Schema, *models.Order) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Foods.Create(ctx, &models.Food{Name: "Margherita", Price: decimal.NewFromInt(300), Category: "Pizza", IsAvailable: true}))
	require.NoError(t, store.Foods.Create(ctx, &models.Food{Name: "Lassi", Price: decimal.NewFromInt(80), Category: "Drinks", IsAvailable: true}))

	order := &models.Order{
		UserID:        "u1",
		Status:        models.StatusProcessing,
		OrderType:     models.OrderTypePickup,
		TotalAmount:   decimal.RequireFromString("250.50"),
		PaymentResult: models.PaymentResult{Status: models.PaymentPaid},
		Items:         []models.OrderItem{{FoodID: "f1", Name: "Thali", Quantity: 1, Price: decimal.RequireFromString("250.50"), Subtotal: decimal.RequireFromString("250.50")}},
	}
	require.NoError(t, store.Orders.Create(ctx, order))

	schema, err := NewSchema(services.NewOrderService(store, nil, services.Options{}), services.NewFoodService(store))
	require.NoError(t, err)
	return schema, order
}

func run(schema graphql.Schema, ctx context.Context, q string) *graphql.Result {
	return graphql.Do(graphql.Params{Schema: schema, RequestString: q, Context: ctx})
}

func TestMyOrders(t *testing.T) {
	schema, order := setup(t)
	ctx := middleware.WithIdentity(context.Background(), middleware.Identity{UserID: "u1", Role: "user"})

	res := run(schema, ctx, `{ myOrders { total items { id status totalAmount paymentResult { status } items { name quantity } } } }`)
	require.Empty(t, res.Errors)

	page := res.Data.(map[string]interface{})["myOrders"].(map[string]interface{})
	assert.Equal(t, 1, page["total"])
	items := page["items"].([]interface{})
	require.Len(t, items, 1)

	first := items[0].(map[string]interface{})
	assert.Equal(t, order.ID, first["id"])
	assert.Equal(t, "Processing", first["status"])
	assert.Equal(t, 250.5, first["totalAmount"])
	assert.Equal(t, "Paid", first["paymentResult"].(map[string]interface{})["status"])
}

func TestOrder_RequiresOwnerAndIdentity(t *testing.T) {
	schema, order := setup(t)

	res := run(schema, context.Background(), `{ order(id: "`+order.ID+`") { id } }`)
	assert.NotEmpty(t, res.Errors)

	stranger := middleware.WithIdentity(context.Background(), middleware.Identity{UserID: "u2", Role: "user"})
	res = run(schema, stranger, `{ order(id: "`+order.ID+`") { id } }`)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0].Message, "forbidden")

	owner := middleware.WithIdentity(context.Background(), middleware.Identity{UserID: "u1", Role: "user"})
	res = run(schema, owner, `{ order(id: "`+order.ID+`") { id orderType } }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, "Pickup", res.Data.(map[string]interface{})["order"].(map[string]interface{})["orderType"])
}

func TestFoods_FilterByCategory(t *testing.T) {
	schema, _ := setup(t)

	res := run(schema, context.Background(), `{ foods(category: "Drinks") { name price } }`)
	require.Empty(t, res.Errors)

	foods := res.Data.(map[string]interface{})["foods"].([]interface{})
	require.Len(t, foods, 1)
	assert.Equal(t, "Lassi", foods[0].(map[string]interface{})["name"])
	assert.Equal(t, 80.0, foods[0].(map[string]interface{})["price"])
}
