package listeners

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/app/events"
	"github.com/feastly/feastly/app/jobs"
	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/event"
	"github.com/feastly/feastly/pkg/queue"
)

type fakeHub struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func (h *fakeHub) SendTo(userID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sent == nil {
		h.sent = map[string][][]byte{}
	}
	h.sent[userID] = append(h.sent[userID], data)
}

type fakeQueue struct{ jobs []queue.Job }

func (q *fakeQueue) Dispatch(j queue.Job) error {
	q.jobs = append(q.jobs, j)
	return nil
}

func paidOrder() models.Order {
	return models.Order{
		Base:          models.Base{ID: "o1"},
		UserID:        "u1",
		Status:        models.StatusProcessing,
		PaymentResult: models.PaymentResult{Status: models.PaymentPaid},
	}
}

func TestPaidOrderPushesAndQueues(t *testing.T) {
	hub := &fakeHub{}
	q := &fakeQueue{}
	bus := event.NewBus(nil)
	Register(bus, hub, q)

	bus.Dispatch(context.Background(), events.OrderPaid{Order: paidOrder()})

	require.Len(t, hub.sent["u1"], 1)
	var u Update
	require.NoError(t, json.Unmarshal(hub.sent["u1"][0], &u))
	assert.Equal(t, "order.paid", u.Event)
	assert.Equal(t, "o1", u.OrderID)
	assert.Equal(t, models.StatusProcessing, u.Status)
	assert.Equal(t, models.PaymentPaid, u.PaymentStatus)

	require.Len(t, q.jobs, 2)
	assert.Equal(t, &jobs.SendOrderConfirmation{OrderID: "o1"}, q.jobs[0])
	assert.Equal(t, &jobs.ArchiveReceipt{OrderID: "o1"}, q.jobs[1])
}

func TestCancelledOrderCarriesReason(t *testing.T) {
	hub := &fakeHub{}
	q := &fakeQueue{}
	bus := event.NewBus(nil)
	Register(bus, hub, q)

	o := paidOrder()
	o.Status = models.StatusCancelled
	bus.Dispatch(context.Background(), events.OrderCancelled{Order: o, Reason: "user"})

	require.Len(t, hub.sent["u1"], 1)
	var u Update
	require.NoError(t, json.Unmarshal(hub.sent["u1"][0], &u))
	assert.Equal(t, "user", u.Reason)
	assert.Empty(t, q.jobs)
}

func TestRegisterWithoutHubOrQueue(t *testing.T) {
	bus := event.NewBus(nil)
	Register(bus, nil, nil)
	assert.NotPanics(t, func() {
		bus.Dispatch(context.Background(), events.OrderPaid{Order: paidOrder()})
	})
}
