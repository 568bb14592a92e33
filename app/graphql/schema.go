// Package graphql exposes a read model of orders and the catalog:
//
//	{ myOrders(page: 1, limit: 5) { items { id status totalAmount } total } }
//	{ order(id: "...") { status paymentResult { status settledAt } } }
//	{ foods(category: "Pizza", available: true) { id name price } }
package graphql

import (
	"errors"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/middleware"
	gql "github.com/feastly/feastly/pkg/graphql"
)

var errUnauthenticated = errors.New("authentication required")

var paymentResultType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PaymentResult",
	Fields: graphql.Fields{
		"status":            &graphql.Field{Type: graphql.String},
		"externalPaymentId": &graphql.Field{Type: graphql.String},
		"transactionRef":    &graphql.Field{Type: graphql.String},
		"settledAt":         &graphql.Field{Type: graphql.String},
	},
})

var orderItemType = graphql.NewObject(graphql.ObjectConfig{
	Name: "OrderItem",
	Fields: graphql.Fields{
		"food":     &graphql.Field{Type: graphql.String},
		"name":     &graphql.Field{Type: graphql.String},
		"quantity": &graphql.Field{Type: graphql.Int},
		"price":    &graphql.Field{Type: graphql.Float},
		"subtotal": &graphql.Field{Type: graphql.Float},
	},
})

var orderType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Order",
	Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.String},
		"status":         &graphql.Field{Type: graphql.String},
		"orderType":      &graphql.Field{Type: graphql.String},
		"totalAmount":    &graphql.Field{Type: graphql.Float},
		"gatewayOrderId": &graphql.Field{Type: graphql.String},
		"createdAt":      &graphql.Field{Type: graphql.String},
		"items":          &graphql.Field{Type: graphql.NewList(orderItemType)},
		"paymentResult":  &graphql.Field{Type: paymentResultType},
	},
})

var orderPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "OrderPage",
	Fields: graphql.Fields{
		"items":      &graphql.Field{Type: graphql.NewList(orderType)},
		"page":       &graphql.Field{Type: graphql.Int},
		"limit":      &graphql.Field{Type: graphql.Int},
		"total":      &graphql.Field{Type: graphql.Int},
		"totalPages": &graphql.Field{Type: graphql.Int},
	},
})

var foodType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Food",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.String},
		"name":        &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"price":       &graphql.Field{Type: graphql.Float},
		"category":    &graphql.Field{Type: graphql.String},
		"isAvailable": &graphql.Field{Type: graphql.Boolean},
		"rating":      &graphql.Field{Type: graphql.Float},
		"image":       &graphql.Field{Type: graphql.String},
	},
})

// NewSchema wires the resolvers to the order and food services.
func NewSchema(orders *services.OrderService, foods *services.FoodService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"order": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, ok := middleware.IdentityFromCtx(p.Context)
					if !ok {
						return nil, errUnauthenticated
					}
					o, err := orders.Get(p.Context, services.Actor{UserID: id.UserID, Role: id.Role}, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return orderView(o), nil
				},
			},
			"myOrders": &graphql.Field{
				Type: orderPageType,
				Args: graphql.FieldConfigArgument{
					"page":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, ok := middleware.IdentityFromCtx(p.Context)
					if !ok {
						return nil, errUnauthenticated
					}
					list, page, err := orders.ListMine(p.Context, id.UserID, p.Args["page"].(int), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					items := make([]map[string]interface{}, len(list))
					for i := range list {
						items[i] = orderView(&list[i])
					}
					return map[string]interface{}{
						"items":      items,
						"page":       page.Page,
						"limit":      page.Limit,
						"total":      int(page.Total),
						"totalPages": page.TotalPages,
					}, nil
				},
			},
			"foods": &graphql.Field{
				Type: graphql.NewList(foodType),
				Args: graphql.FieldConfigArgument{
					"category":  &graphql.ArgumentConfig{Type: graphql.String},
					"available": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var f repo.FoodFilter
					if c, ok := p.Args["category"].(string); ok {
						f.Category = models.FoodCategory(c)
					}
					if a, ok := p.Args["available"].(bool); ok {
						f.Available = &a
					}
					list, err := foods.List(p.Context, f)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(list))
					for i, food := range list {
						out[i] = foodView(food)
					}
					return out, nil
				},
			},
		},
	})

	return gql.NewSchema(query)
}

func orderView(o *models.Order) map[string]interface{} {
	items := make([]map[string]interface{}, len(o.Items))
	for i, it := range o.Items {
		items[i] = map[string]interface{}{
			"food":     it.FoodID,
			"name":     it.Name,
			"quantity": it.Quantity,
			"price":    it.Price.InexactFloat64(),
			"subtotal": it.Subtotal.InexactFloat64(),
		}
	}

	payment := map[string]interface{}{
		"status":            string(o.PaymentResult.Status),
		"externalPaymentId": o.PaymentResult.ExternalPaymentID,
		"transactionRef":    o.PaymentResult.TransactionRef,
	}
	if o.PaymentResult.SettledAt != nil {
		payment["settledAt"] = o.PaymentResult.SettledAt.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"id":             o.ID,
		"status":         string(o.Status),
		"orderType":      string(o.OrderType),
		"totalAmount":    o.TotalAmount.InexactFloat64(),
		"gatewayOrderId": o.GatewayOrderID,
		"createdAt":      o.CreatedAt.Format(time.RFC3339),
		"items":          items,
		"paymentResult":  payment,
	}
}

func foodView(f models.Food) map[string]interface{} {
	v := map[string]interface{}{
		"id":          f.ID,
		"name":        f.Name,
		"description": f.Description,
		"price":       f.Price.InexactFloat64(),
		"category":    string(f.Category),
		"isAvailable": f.IsAvailable,
		"image":       f.Image,
	}
	if f.Rating != nil {
		v["rating"] = *f.Rating
	}
	return v
}
