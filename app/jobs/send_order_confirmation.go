package jobs

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/notification"
)

// SendOrderConfirmation tells the shopper (mail) and the configured order
// webhook that an order was paid.
type SendOrderConfirmation struct {
	OrderID string `json:"orderId"`

	deps *Deps
}

func (j *SendOrderConfirmation) Handle(ctx context.Context) error {
	order, err := j.deps.Store.Orders.FindByID(ctx, j.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", j.OrderID, err)
	}
	user, err := j.deps.Store.Users.FindByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", order.UserID, err)
	}

	n := orderPaidNotice{order: order, user: user, webhookURL: j.deps.WebhookURL}
	if j.deps.MailEnabled {
		n.channels = append(n.channels, "mail")
	}
	if j.deps.WebhookURL != "" {
		n.channels = append(n.channels, "webhook")
	}
	if len(n.channels) == 0 {
		logger.WithCtx(ctx).Debug("order confirmation: no channel configured", "order_id", order.ID)
		return nil
	}

	return notification.Send(ctx, user.Email, n)
}

type orderPaidNotice struct {
	order      *models.Order
	user       *models.User
	webhookURL string
	channels   []string
}

func (n orderPaidNotice) Via() []string { return n.channels }

func (n orderPaidNotice) ToMail() notification.MailData {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p><p>We received your payment for order <b>%s</b>.</p><ul>",
		html.EscapeString(n.user.Name), n.order.ID)
	for _, it := range n.order.Items {
		fmt.Fprintf(&b, "<li>%d x %s: %s</li>", it.Quantity, html.EscapeString(it.Name), it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "</ul><p>Total: %s</p>", n.order.TotalAmount.StringFixed(2))

	return notification.MailData{
		Subject: "Your order " + n.order.ID + " is confirmed",
		Body:    b.String(),
	}
}

func (n orderPaidNotice) ToWebhook() notification.WebhookData {
	return notification.WebhookData{
		URL: n.webhookURL,
		Payload: map[string]interface{}{
			"event":          "order.paid",
			"orderId":        n.order.ID,
			"gatewayOrderId": n.order.GatewayOrderID,
			"user":           n.order.UserID,
			"orderType":      n.order.OrderType,
			"totalAmount":    n.order.TotalAmount,
			"status":         n.order.Status,
			"paymentResult":  n.order.PaymentResult,
		},
		Headers: map[string]string{"X-Feastly-Event": "order.paid"},
	}
}
