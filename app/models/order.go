package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "Pending"
	StatusProcessing     OrderStatus = "Processing"
	StatusPreparing      OrderStatus = "Preparing"
	StatusShipped        OrderStatus = "Shipped"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending, StatusProcessing, StatusPreparing, StatusShipped,
	StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

// NonTerminalStatuses are the states an order can still leave.
var NonTerminalStatuses = []OrderStatus{
	StatusPending, StatusProcessing, StatusPreparing, StatusShipped, StatusOutForDelivery,
}

// ParseOrderStatus matches s case-insensitively; hyphens and underscores
// count as spaces so "out-for-delivery" is accepted.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))
	for _, st := range OrderStatuses {
		if strings.EqualFold(string(st), norm) {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) Valid() bool {
	_, ok := ParseOrderStatus(string(s))
	return ok && string(s) != ""
}

// IsTerminal reports Delivered and Cancelled.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Cancellable reports whether the owner may still cancel.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

type OrderType string

const (
	OrderTypeDelivery OrderType = "Delivery"
	OrderTypeDineIn   OrderType = "Dine-in"
	OrderTypePickup   OrderType = "Pickup"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDelivery || t == OrderTypeDineIn || t == OrderTypePickup
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentInitiated PaymentStatus = "Initiated"
	PaymentPaid      PaymentStatus = "Paid"
	PaymentFailed    PaymentStatus = "Failed"
)

type ShippingAddress struct {
	Street  string `gorm:"size:255" bson:"street"  json:"street"`
	City    string `gorm:"size:100" bson:"city"    json:"city"`
	State   string `gorm:"size:100" bson:"state"   json:"state"`
	ZipCode string `gorm:"size:20"  bson:"zipCode" json:"zipCode"`
	Country string `gorm:"size:100" bson:"country" json:"country"`
}

// IsEmpty is true when no postal field carries text.
func (a ShippingAddress) IsEmpty() bool {
	for _, f := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type PaymentResult struct {
	ExternalPaymentID string        `gorm:"size:100"                 bson:"externalPaymentId,omitempty" json:"externalPaymentId,omitempty"`
	Status            PaymentStatus `gorm:"size:20;default:Pending"  bson:"status"                      json:"status"`
	SettledAt         *time.Time    `                                bson:"settledAt,omitempty"         json:"settledAt,omitempty"`
	TransactionRef    string        `gorm:"size:100"                 bson:"transactionRef,omitempty"    json:"transactionRef,omitempty"`
}

// OrderItem is one cart line with the unit price frozen at placement time.
type OrderItem struct {
	ID       string          `gorm:"primaryKey;size:36"        bson:"-"        json:"-"`
	OrderID  string          `gorm:"size:36;index;not null"    bson:"-"        json:"-"`
	FoodID   string          `gorm:"size:36;index;not null"    bson:"food"     json:"food"`
	Name     string          `gorm:"size:100"                  bson:"name"     json:"name"`
	Quantity int             `gorm:"not null"                  bson:"quantity" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2)"        bson:"price"    json:"price"`
	Subtotal decimal.Decimal `gorm:"type:decimal(12,2)"        bson:"subtotal" json:"subtotal"`
}

type Order struct {
	Base             `bson:",inline"`
	UserID           string          `gorm:"size:36;not null;index:idx_orders_user_key,unique,priority:1;index" bson:"user"                     json:"user"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"                      bson:"items"                    json:"items"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null"                                         bson:"totalAmount"              json:"totalAmount"`
	OrderType        OrderType       `gorm:"size:20;not null"                                                    bson:"orderType"                json:"orderType"`
	ShippingAddress  ShippingAddress `gorm:"embedded;embeddedPrefix:ship_"                                       bson:"shippingAddress"          json:"shippingAddress"`
	Status           OrderStatus     `gorm:"size:30;not null;index"                                              bson:"status"                   json:"status"`
	GatewayOrderID   string          `gorm:"size:64;index"                                                       bson:"gatewayOrderId,omitempty" json:"gatewayOrderId,omitempty"`
	PaymentSessionID string          `gorm:"size:512"                                                            bson:"paymentSessionId,omitempty" json:"-"`
	IdempotencyKey   *string         `gorm:"size:128;index:idx_orders_user_key,unique,priority:2"                bson:"idempotencyKey,omitempty" json:"-"`
	PaymentResult    PaymentResult   `gorm:"embedded;embeddedPrefix:payment_"                                    bson:"paymentResult"            json:"paymentResult"`
}

// FoodIDs returns the catalog ids referenced by the order.
func (o *Order) FoodIDs() []string {
	ids := make([]string, len(o.Items))
	for i, it := range o.Items {
		ids[i] = it.FoodID
	}
	return ids
}

func (it *OrderItem) BeforeCreate(*gorm.DB) error {
	if it.ID == "" {
		it.ID = NewID()
	}
	return nil
}
