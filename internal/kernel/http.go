// Package kernel assembles the HTTP application: services, controllers,
// the global middleware stack and the route table. Infrastructure (store,
// gateway, bus, hub) is built by the caller and passed in through Deps, so
// tests can run the full stack on the in-memory store.
package kernel

import (
	"context"
	"net/http"
	"time"

	"github.com/feastly/feastly/app/controllers"
	appgraphql "github.com/feastly/feastly/app/graphql"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/app/routes"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/graphql"
	"github.com/feastly/feastly/pkg/metrics"
	"github.com/feastly/feastly/pkg/middleware"
	"github.com/feastly/feastly/pkg/reqid"
	"github.com/feastly/feastly/pkg/response"
	"github.com/feastly/feastly/pkg/router"
	"github.com/feastly/feastly/pkg/ws"
)

type Deps struct {
	Store         repo.Store
	Gateway       services.PaymentGateway
	Options       services.Options
	WebhookSecret string

	// Optional.
	Locker services.Locker
	Events services.EventDispatcher
	Hub    *ws.Hub
	Health func(ctx context.Context) error

	CORSOrigin string
	RateLimit  int
	MaxBody    int64
}

// Kernel is the assembled application.
type Kernel struct {
	Router  *router.Router
	Orders  *services.OrderService
	Limiter *middleware.Limiter

	handler http.Handler
}

func New(d Deps) (*Kernel, error) {
	orders := services.NewOrderService(d.Store, d.Gateway, d.Options)
	if d.Locker != nil {
		orders.UseLocker(d.Locker)
	}
	if d.Events != nil {
		orders.UseEvents(d.Events)
	}
	foods := services.NewFoodService(d.Store)

	schema, err := appgraphql.NewSchema(orders, foods)
	if err != nil {
		return nil, err
	}

	c := routes.Controllers{
		Auth:        controllers.NewAuthController(services.NewAuthService(d.Store)),
		Foods:       controllers.NewFoodController(foods),
		Restaurants: controllers.NewRestaurantController(services.NewRestaurantService(d.Store)),
		Orders:      controllers.NewOrderController(orders),
		Payments:    controllers.NewPaymentController(orders, d.WebhookSecret),
		GraphQL:     graphql.Handler(schema),
	}
	if d.Hub != nil {
		c.Live = controllers.NewLiveController(d.Hub)
	}

	limiter := middleware.NewLimiter(d.RateLimit, time.Minute)

	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(d.CORSOrigin)))
	r.Use(limiter.Handler)
	r.Use(middleware.BodyLimit(d.MaxBody))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) { response.MethodNotAllowed(w) })

	r.Get("/health", "health", healthHandler(d.Health))
	r.Get("/metrics", "metrics", metrics.Handler())

	routes.RegisterAPI(r, c)

	return &Kernel{Router: r, Orders: orders, Limiter: limiter, handler: r.Handler()}, nil
}

func (k *Kernel) Handler() http.Handler { return k.handler }

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				response.Fail(w, http.StatusServiceUnavailable, "unhealthy", map[string]string{"database": err.Error()})
				return
			}
		}
		response.Success(w, map[string]string{"status": "ok"})
	}
}
