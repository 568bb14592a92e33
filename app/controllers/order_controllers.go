package controllers

import (
	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/ctx"
)

// IdempotencyHeader lets a client retry POST /api/orders safely.
const IdempotencyHeader = "Idempotency-Key"

type OrderController struct {
	service *services.OrderService
}

func NewOrderController(s *services.OrderService) *OrderController {
	return &OrderController{service: s}
}

type orderLineRequest struct {
	Food     string `json:"food"     validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type placeOrderRequest struct {
	Items           []orderLineRequest     `json:"items"       validate:"required,dive"`
	OrderType       string                 `json:"orderType"   validate:"required,in=Delivery,Dine-in,Pickup"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	TotalAmount     decimal.Decimal        `json:"totalAmount" validate:"required,gte=0"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type placeOrderResponse struct {
	Order            *models.Order `json:"order"`
	PaymentSessionID string        `json:"paymentSessionId"`
	Replayed         bool          `json:"replayed"`
}

func (c *OrderController) Store(x *ctx.Context) {
	var req placeOrderRequest
	if !x.BindJSON(&req) {
		return
	}

	cart := services.Cart{
		OrderType:       models.OrderType(req.OrderType),
		ShippingAddress: req.ShippingAddress,
		ClaimedTotal:    req.TotalAmount,
	}
	for _, it := range req.Items {
		cart.Items = append(cart.Items, services.CartLine{FoodID: it.Food, Quantity: it.Quantity})
	}

	res, err := c.service.PlaceOrder(x.Context(), services.PlaceOrderInput{
		UserID:         x.UserID(),
		Cart:           cart,
		IdempotencyKey: x.Header(IdempotencyHeader),
	})
	if err != nil {
		respondError(x, err)
		return
	}

	body := placeOrderResponse{Order: res.Order, PaymentSessionID: res.PaymentSessionID, Replayed: res.Replayed}
	if res.Replayed {
		x.Success(body)
		return
	}
	x.Created(body)
}

// Index is the caller's order history, newest first (?page=&limit=).
func (c *OrderController) Index(x *ctx.Context) {
	orders, p, err := c.service.ListMine(x.Context(), x.UserID(), x.QueryInt("page", 1), x.QueryInt("limit", 20))
	if err != nil {
		respondError(x, err)
		return
	}
	x.Paginated(orders, p)
}

func (c *OrderController) Show(x *ctx.Context) {
	o, err := c.service.Get(x.Context(), actorOf(x), x.Param("id"))
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(o)
}

func (c *OrderController) Cancel(x *ctx.Context) {
	o, err := c.service.CancelOrder(x.Context(), actorOf(x), x.Param("id"))
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(o)
}

// UpdateStatus is for admins and approved restaurant operators.
func (c *OrderController) UpdateStatus(x *ctx.Context) {
	var req statusRequest
	if !x.BindJSON(&req) {
		return
	}
	o, err := c.service.UpdateStatus(x.Context(), actorOf(x), x.Param("id"), req.Status)
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(o)
}
