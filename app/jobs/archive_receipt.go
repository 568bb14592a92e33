package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/logger"
)

// ArchiveReceipt writes a JSON receipt of a paid order to the storage disk.
// Re-running it for an archived order is a no-op.
type ArchiveReceipt struct {
	OrderID string `json:"orderId"`

	deps *Deps
}

// Receipt is the archived document.
type Receipt struct {
	OrderID         string                 `json:"orderId"`
	GatewayOrderID  string                 `json:"gatewayOrderId"`
	UserID          string                 `json:"user"`
	OrderType       models.OrderType       `json:"orderType"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	Items           []models.OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal        `json:"totalAmount"`
	Payment         models.PaymentResult   `json:"payment"`
	PlacedAt        time.Time              `json:"placedAt"`
}

// ReceiptPath is receipts/<yyyy>/<mm>/<order id>.json, dated by placement.
func ReceiptPath(o *models.Order) string {
	return fmt.Sprintf("receipts/%s/%s.json", o.CreatedAt.UTC().Format("2006/01"), o.ID)
}

func (j *ArchiveReceipt) Handle(ctx context.Context) error {
	if j.deps.Disk == nil {
		return nil
	}
	log := logger.WithCtx(ctx)

	order, err := j.deps.Store.Orders.FindByID(ctx, j.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", j.OrderID, err)
	}
	if order.PaymentResult.Status != models.PaymentPaid {
		log.Warn("receipt: order is not paid, skipping", "order_id", order.ID, "payment_status", order.PaymentResult.Status)
		return nil
	}

	path := ReceiptPath(order)
	exists, err := j.deps.Disk.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body, err := json.MarshalIndent(Receipt{
		OrderID:         order.ID,
		GatewayOrderID:  order.GatewayOrderID,
		UserID:          order.UserID,
		OrderType:       order.OrderType,
		ShippingAddress: order.ShippingAddress,
		Items:           order.Items,
		TotalAmount:     order.TotalAmount,
		Payment:         order.PaymentResult,
		PlacedAt:        order.CreatedAt,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := j.deps.Disk.Put(ctx, path, body, "application/json"); err != nil {
		return err
	}

	log.Info("receipt archived", "order_id", order.ID, "path", path)
	return nil
}
