// Package events declares the order lifecycle events published on the bus.
package events

import "github.com/feastly/feastly/app/models"

const (
	OrderPlacedName        = "order.placed"
	OrderPaidName          = "order.paid"
	OrderCancelledName     = "order.cancelled"
	OrderStatusChangedName = "order.status_changed"
)

// OrderPlaced fires once the gateway session has been opened.
type OrderPlaced struct{ Order models.Order }

func (OrderPlaced) Name() string { return OrderPlacedName }

// OrderPaid fires on the single Pending to Processing transition.
type OrderPaid struct{ Order models.Order }

func (OrderPaid) Name() string { return OrderPaidName }

// OrderCancelled carries why the order ended: "payment_failed",
// "initiation_failed", "user" or "operator".
type OrderCancelled struct {
	Order  models.Order
	Reason string
}

func (OrderCancelled) Name() string { return OrderCancelledName }

type OrderStatusChanged struct {
	Order models.Order
	From  models.OrderStatus
	By    string
}

func (OrderStatusChanged) Name() string { return OrderStatusChangedName }
