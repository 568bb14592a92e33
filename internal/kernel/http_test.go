package kernel

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/app/gateway"
	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/app/repositories/memory"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/auth"
	"github.com/feastly/feastly/pkg/testkit"
)

const webhookSecret = "whsec_test"

func newTestKernel(t *testing.T, health func(context.Context) error) (*Kernel, repo.Store) {
	t.Helper()

	store := memory.NewStore()
	gw := gateway.NewCashfree(gateway.Config{
		AppID:         "app",
		SecretKey:     "secret",
		BaseURL:       "https://cf.test/pg",
		Timeout:       time.Second,
		ReturnURLBase: "https://shop.test",
	})

	k, err := New(Deps{
		Store:         store,
		Gateway:       gw,
		Options:       services.Options{DeliveryFee: decimal.NewFromInt(40)},
		WebhookSecret: webhookSecret,
		Health:        health,
	})
	require.NoError(t, err)
	return k, store
}

func sign(t *testing.T, timestamp, bodyFile string) string {
	t.Helper()
	body, err := os.ReadFile(bodyFile)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestCheckoutFlow(t *testing.T) {
	k, store := newTestKernel(t, nil)

	require.NoError(t, store.Foods.Create(context.Background(), &models.Food{
		Base:        models.Base{ID: "food-margherita"},
		Name:        "Margherita",
		Description: "Tomato, mozzarella, basil",
		Price:       decimal.NewFromInt(100),
		Category:    "Pizza",
		IsAvailable: true,
	}))

	adminToken, err := auth.GenerateToken("admin-1", models.RoleAdmin)
	require.NoError(t, err)

	r := testkit.New(k.Handler()).
		Set("adminToken", adminToken).
		Set("webhookSignature", sign(t, "1760000000", "testdata/checkout/webhook_req.json"))
	r.RunDir(t, "testdata/checkout")

	abandoned := r.Var("abandonedOrderId")
	require.NotEmpty(t, abandoned)
	o, err := store.Orders.FindByID(context.Background(), abandoned)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, o.Status)
	assert.Equal(t, models.PaymentFailed, o.PaymentResult.Status)
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		k, _ := newTestKernel(t, func(context.Context) error { return nil })
		rec := httptest.NewRecorder()
		k.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":200,"data":{"status":"ok"}}`, rec.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		k, _ := newTestKernel(t, func(context.Context) error { return errors.New("connection refused") })
		rec := httptest.NewRecorder()
		k.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})
}

func TestUnknownRouteIsJSON(t *testing.T) {
	k, _ := newTestKernel(t, nil)
	rec := httptest.NewRecorder()
	k.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestMetricsEndpoint(t *testing.T) {
	k, _ := newTestKernel(t, nil)
	rec := httptest.NewRecorder()
	k.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feastly_http_requests_in_flight")
}

func TestRouteTableNamesEveryEndpoint(t *testing.T) {
	k, _ := newTestKernel(t, nil)

	names := map[string]bool{}
	for _, ri := range k.Router.Routes() {
		assert.NotEmpty(t, ri.Name, "%s %s", ri.Method, ri.Path)
		names[ri.Name] = true
	}
	for _, want := range []string{"orders.store", "payment.verify", "payment.webhook", "payment.status", "graphql", "health"} {
		assert.True(t, names[want], want)
	}
	assert.False(t, names["ws.orders"], "no hub, no websocket route")
}
