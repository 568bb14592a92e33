// Package listeners reacts to order lifecycle events: live updates to the
// order owner over websocket and queued follow-up work once an order is paid.
package listeners

import (
	"context"
	"encoding/json"
	"time"

	"github.com/feastly/feastly/app/events"
	"github.com/feastly/feastly/app/jobs"
	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/event"
	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/queue"
)

// Pusher is satisfied by *ws.Hub.
type Pusher interface {
	SendTo(userID string, data []byte)
}

// JobDispatcher is satisfied by *queue.Manager.
type JobDispatcher interface {
	Dispatch(job queue.Job) error
}

// Update is the websocket frame sent to the order owner.
type Update struct {
	Event         string               `json:"event"`
	OrderID       string               `json:"orderId"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Reason        string               `json:"reason,omitempty"`
	At            time.Time            `json:"at"`
}

// Register subscribes every listener on bus. A nil hub or queue skips the
// listeners that need it.
func Register(bus *event.Bus, hub Pusher, q JobDispatcher) {
	if hub != nil {
		push := PushUpdates(hub)
		for _, name := range []string{
			events.OrderPlacedName, events.OrderPaidName,
			events.OrderCancelledName, events.OrderStatusChangedName,
		} {
			bus.Listen(name, push)
		}
	}
	if q != nil {
		bus.Listen(events.OrderPaidName, QueuePaidFollowUps(q))
	}
}

// PushUpdates forwards order events to the owner's open sockets.
func PushUpdates(hub Pusher) event.Listener {
	return func(ctx context.Context, e event.Event) {
		u, userID, ok := updateFor(e)
		if !ok {
			return
		}
		data, err := json.Marshal(u)
		if err != nil {
			logger.WithCtx(ctx).Error("ws: encode update", "event", e.Name(), "error", err)
			return
		}
		hub.SendTo(userID, data)
	}
}

func updateFor(e event.Event) (Update, string, bool) {
	var (
		o      models.Order
		reason string
	)
	switch ev := e.(type) {
	case events.OrderPlaced:
		o = ev.Order
	case events.OrderPaid:
		o = ev.Order
	case events.OrderCancelled:
		o, reason = ev.Order, ev.Reason
	case events.OrderStatusChanged:
		o = ev.Order
	default:
		return Update{}, "", false
	}
	return Update{
		Event:         e.Name(),
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentStatus: o.PaymentResult.Status,
		Reason:        reason,
		At:            o.UpdatedAt,
	}, o.UserID, true
}

// QueuePaidFollowUps queues the confirmation and the receipt for a paid order.
func QueuePaidFollowUps(q JobDispatcher) event.Listener {
	return func(ctx context.Context, e event.Event) {
		paid, ok := e.(events.OrderPaid)
		if !ok {
			return
		}
		log := logger.WithCtx(ctx).With("order_id", paid.Order.ID)
		for _, job := range []queue.Job{
			&jobs.SendOrderConfirmation{OrderID: paid.Order.ID},
			&jobs.ArchiveReceipt{OrderID: paid.Order.ID},
		} {
			if err := q.Dispatch(job); err != nil {
				log.Error("queue: dispatch failed", "job", queue.TypeName(job), "error", err)
			}
		}
	}
}
