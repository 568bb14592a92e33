package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/feastly/feastly/app/gateway"
	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/ctx"
)

const maxWebhookBytes = 64 << 10

type PaymentController struct {
	orders        *services.OrderService
	webhookSecret string
}

func NewPaymentController(orders *services.OrderService, webhookSecret string) *PaymentController {
	return &PaymentController{orders: orders, webhookSecret: webhookSecret}
}

type verifyRequest struct {
	OrderID string `json:"orderId"`
}

type paymentResponse struct {
	Outcome       services.Outcome     `json:"outcome"`
	OrderID       string               `json:"orderId"`
	Status        models.OrderStatus   `json:"status"`
	PaymentResult models.PaymentResult `json:"paymentResult"`
}

func paymentView(res *services.ReconcileResult) paymentResponse {
	return paymentResponse{
		Outcome:       res.Outcome,
		OrderID:       res.Order.ID,
		Status:        res.Order.Status,
		PaymentResult: res.Order.PaymentResult,
	}
}

// Verify reconciles by gateway order id, as sent by the checkout return page.
// Only the order's owner or an admin may trigger it. An empty orderId reaches
// the service so it reports MissingReference.
func (c *PaymentController) Verify(x *ctx.Context) {
	var req verifyRequest
	if !x.BindJSON(&req) {
		return
	}
	res, err := c.orders.VerifyPayment(x.Context(), actorOf(x), req.OrderID)
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(paymentView(res))
}

// Status reconciles by local order id on behalf of its owner.
func (c *PaymentController) Status(x *ctx.Context) {
	res, err := c.orders.PaymentStatus(x.Context(), actorOf(x), x.Param("orderId"))
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(paymentView(res))
}

// Webhook accepts Cashfree payment notifications. The payload is only used
// to find the order; the verdict always comes from the gateway API.
func (c *PaymentController) Webhook(x *ctx.Context) {
	body, err := io.ReadAll(io.LimitReader(x.R.Body, maxWebhookBytes))
	if err != nil {
		x.Error(http.StatusBadRequest, "Unreadable body")
		return
	}

	err = gateway.VerifySignature(c.webhookSecret, x.Header("x-webhook-timestamp"), body, x.Header("x-webhook-signature"))
	if err != nil {
		x.Logger().Warn("webhook signature rejected")
		x.Problem(http.StatusUnauthorized, "Invalid webhook signature", "BadSignature")
		return
	}

	gatewayOrderID, err := gateway.WebhookOrderID(body)
	if err != nil {
		x.Problem(http.StatusBadRequest, "Webhook carries no order id", "MissingReference")
		return
	}

	res, err := c.orders.ReconcilePayment(x.Context(), gatewayOrderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			x.Logger().Warn("webhook for unknown order", "gateway_order_id", gatewayOrderID)
		}
		respondError(x, err)
		return
	}
	x.Success(paymentView(res))
}
