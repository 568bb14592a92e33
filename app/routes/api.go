// Package routes maps URLs to controllers.
package routes

import (
	"net/http"

	"github.com/feastly/feastly/app/controllers"
	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/ctx"
	"github.com/feastly/feastly/pkg/middleware"
	"github.com/feastly/feastly/pkg/rbac"
	"github.com/feastly/feastly/pkg/router"
)

// Controllers is everything RegisterAPI mounts. GraphQL and Live are
// optional; nil skips their routes.
type Controllers struct {
	Auth        *controllers.AuthController
	Foods       *controllers.FoodController
	Restaurants *controllers.RestaurantController
	Orders      *controllers.OrderController
	Payments    *controllers.PaymentController
	Live        *controllers.LiveController
	GraphQL     http.Handler
}

func RegisterAPI(r *router.Router, c Controllers) {
	api := r.Group("/api")
	admin := rbac.HasRole(models.RoleAdmin)
	operator := rbac.HasRole(models.RoleAdmin, models.RoleRestaurant)

	authn := api.Group("/auth")
	authn.Post("/register", "auth.register", ctx.Wrap(c.Auth.Register))
	authn.Post("/login", "auth.login", ctx.Wrap(c.Auth.Login))
	authn.Get("/me", "auth.me", ctx.Wrap(c.Auth.Me), middleware.Auth)
	authn.Get("/users/{id}", "auth.users.show", ctx.Wrap(c.Auth.ShowUser), middleware.Auth, admin)
	authn.Put("/role/{id}", "auth.role", ctx.Wrap(c.Auth.SetRole), middleware.Auth, admin)

	foods := api.Group("/foods")
	foods.Get("", "foods.index", ctx.Wrap(c.Foods.Index))
	foods.Get("/{id}", "foods.show", ctx.Wrap(c.Foods.Show))
	foods.Post("", "foods.store", ctx.Wrap(c.Foods.Store), middleware.Auth, operator)
	foods.Put("/{id}", "foods.update", ctx.Wrap(c.Foods.Update), middleware.Auth, operator)
	foods.Delete("/{id}", "foods.destroy", ctx.Wrap(c.Foods.Destroy), middleware.Auth, operator)

	restaurant := api.Group("/restaurant", middleware.Auth)
	restaurant.Post("/apply", "restaurant.apply", ctx.Wrap(c.Restaurants.Apply))
	restaurant.Get("/status", "restaurant.status", ctx.Wrap(c.Restaurants.Status))
	restaurant.Get("/applications", "restaurant.applications", ctx.Wrap(c.Restaurants.Applications), admin)
	restaurant.Put("/status/{id}", "restaurant.status.update", ctx.Wrap(c.Restaurants.SetStatus), admin)

	orders := api.Group("/orders", middleware.Auth)
	orders.Post("", "orders.store", ctx.Wrap(c.Orders.Store))
	orders.Get("", "orders.index", ctx.Wrap(c.Orders.Index))
	orders.Get("/{id}", "orders.show", ctx.Wrap(c.Orders.Show))
	orders.Post("/{id}/cancel", "orders.cancel", ctx.Wrap(c.Orders.Cancel))
	orders.Put("/{id}/status", "orders.status", ctx.Wrap(c.Orders.UpdateStatus), operator)

	payment := api.Group("/payment")
	payment.Post("/verify", "payment.verify", ctx.Wrap(c.Payments.Verify), middleware.Auth)
	payment.Get("/status/{orderId}", "payment.status", ctx.Wrap(c.Payments.Status), middleware.Auth)
	payment.Post("/webhook", "payment.webhook", ctx.Wrap(c.Payments.Webhook))

	if c.GraphQL != nil {
		api.Handle("/graphql", "graphql", c.GraphQL, middleware.Auth)
	}
	if c.Live != nil {
		api.Get("/ws/orders", "ws.orders", ctx.Wrap(c.Live.Orders), middleware.Auth)
		api.Get("/events/orders", "events.orders", ctx.Wrap(c.Live.Events), middleware.Auth)
	}
}
