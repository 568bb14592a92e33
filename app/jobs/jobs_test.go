package jobs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/app/repositories/memory"
	"github.com/feastly/feastly/pkg/queue"
	"github.com/feastly/feastly/pkg/storage"
)

func seed(t *testing.T, deps *Deps, paid bool) *models.Order {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Name: "Asha", Email: "asha@example.com", Role: models.RoleUser}
	require.NoError(t, deps.Store.Users.Create(ctx, user))

	order := &models.Order{
		UserID: user.ID,
		Items: []models.OrderItem{{
			FoodID: "f1", Name: "Margherita", Quantity: 2,
			Price: decimal.NewFromInt(100), Subtotal: decimal.NewFromInt(200),
		}},
		TotalAmount:    decimal.NewFromInt(200),
		OrderType:      models.OrderTypeDineIn,
		Status:         models.StatusPending,
		GatewayOrderID: "CF1",
		PaymentResult:  models.PaymentResult{Status: models.PaymentInitiated},
	}
	if paid {
		now := time.Now()
		order.Status = models.StatusProcessing
		order.PaymentResult = models.PaymentResult{Status: models.PaymentPaid, ExternalPaymentID: "p1", SettledAt: &now}
	}
	require.NoError(t, deps.Store.Orders.Create(ctx, order))
	return order
}

func TestArchiveReceiptWritesOnce(t *testing.T) {
	disk := storage.NewLocal(t.TempDir(), "")
	deps := &Deps{Store: memory.NewStore(), Disk: disk}
	order := seed(t, deps, true)
	ctx := context.Background()

	job := &ArchiveReceipt{OrderID: order.ID, deps: deps}
	require.NoError(t, job.Handle(ctx))

	raw, err := disk.Get(ctx, ReceiptPath(order))
	require.NoError(t, err)

	var r Receipt
	require.NoError(t, json.Unmarshal(raw, &r))
	assert.Equal(t, order.ID, r.OrderID)
	assert.Equal(t, "CF1", r.GatewayOrderID)
	assert.Equal(t, models.PaymentPaid, r.Payment.Status)
	assert.True(t, decimal.NewFromInt(200).Equal(r.TotalAmount))

	require.NoError(t, disk.Put(ctx, ReceiptPath(order), []byte("kept"), ""))
	require.NoError(t, job.Handle(ctx))
	raw, err = disk.Get(ctx, ReceiptPath(order))
	require.NoError(t, err)
	assert.Equal(t, "kept", string(raw))
}

func TestArchiveReceiptSkipsUnpaidOrders(t *testing.T) {
	disk := storage.NewLocal(t.TempDir(), "")
	deps := &Deps{Store: memory.NewStore(), Disk: disk}
	order := seed(t, deps, false)

	require.NoError(t, (&ArchiveReceipt{OrderID: order.ID, deps: deps}).Handle(context.Background()))

	ok, err := disk.Exists(context.Background(), ReceiptPath(order))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveReceiptMissingOrderIsRetried(t *testing.T) {
	deps := &Deps{Store: memory.NewStore(), Disk: storage.NewLocal(t.TempDir(), "")}
	err := (&ArchiveReceipt{OrderID: "nope", deps: deps}).Handle(context.Background())
	assert.Error(t, err)
}

func TestSendOrderConfirmationPostsWebhook(t *testing.T) {
	var payload map[string]interface{}
	var event string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event = r.Header.Get("X-Feastly-Event")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	deps := &Deps{Store: memory.NewStore(), WebhookURL: srv.URL}
	order := seed(t, deps, true)

	require.NoError(t, (&SendOrderConfirmation{OrderID: order.ID, deps: deps}).Handle(context.Background()))
	assert.Equal(t, "order.paid", event)
	assert.Equal(t, order.ID, payload["orderId"])
	assert.Equal(t, float64(200), payload["totalAmount"])
}

func TestSendOrderConfirmationWithoutChannels(t *testing.T) {
	deps := &Deps{Store: memory.NewStore()}
	order := seed(t, deps, true)
	assert.NoError(t, (&SendOrderConfirmation{OrderID: order.ID, deps: deps}).Handle(context.Background()))
}

func TestRegisteredJobsRoundTripThroughQueue(t *testing.T) {
	disk := storage.NewLocal(t.TempDir(), "")
	deps := &Deps{Store: memory.NewStore(), Disk: disk}
	order := seed(t, deps, true)

	driver := queue.NewMemoryDriver(10)
	m := queue.NewManager(driver)
	Register(m, deps)

	require.NoError(t, m.Dispatch(&ArchiveReceipt{OrderID: order.ID}))
	raw, err := driver.Pop(context.Background())
	require.NoError(t, err)
	m.Process(context.Background(), raw)

	ok, err := disk.Exists(context.Background(), ReceiptPath(order))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMailNoticeEscapesNames(t *testing.T) {
	n := orderPaidNotice{
		order: &models.Order{Base: models.Base{ID: "o1"}, Items: []models.OrderItem{{Name: "<b>x</b>", Quantity: 1}}},
		user:  &models.User{Name: "<script>"},
	}
	m := n.ToMail()
	assert.Contains(t, m.Body, "&lt;script&gt;")
	assert.Contains(t, m.Body, "&lt;b&gt;x&lt;/b&gt;")
	assert.Equal(t, "Your order o1 is confirmed", m.Subject)
}
