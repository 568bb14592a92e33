package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
)

// amountTolerance absorbs rounding in client-side totals.
var amountTolerance = decimal.New(1, -2)

type CartLine struct {
	FoodID   string
	Quantity int
}

// Cart is the untrusted checkout request.
type Cart struct {
	Items           []CartLine
	OrderType       models.OrderType
	ShippingAddress models.ShippingAddress
	ClaimedTotal    decimal.Decimal
}

// Draft is a server-priced cart ready to persist.
type Draft struct {
	Items []models.OrderItem
	Total decimal.Decimal
}

// Pricer turns a cart into a Draft using catalog prices. It never writes.
type Pricer struct {
	foods       repo.FoodRepository
	deliveryFee decimal.Decimal
}

func NewPricer(foods repo.FoodRepository, deliveryFee decimal.Decimal) *Pricer {
	return &Pricer{foods: foods, deliveryFee: deliveryFee}
}

func (p *Pricer) Price(ctx context.Context, c Cart) (Draft, error) {
	if len(c.Items) == 0 {
		return Draft{}, ErrEmptyCart
	}
	if c.OrderType == models.OrderTypeDelivery && c.ShippingAddress.IsEmpty() {
		return Draft{}, ErrMissingAddress
	}

	items := make([]models.OrderItem, 0, len(c.Items))
	total := decimal.Zero

	for _, line := range c.Items {
		if line.Quantity < 1 {
			return Draft{}, fmt.Errorf("%w: food %s", ErrInvalidQuantity, line.FoodID)
		}

		food, err := p.foods.FindByID(ctx, line.FoodID)
		if errors.Is(err, repo.ErrNotFound) {
			return Draft{}, fmt.Errorf("%w: food %s", ErrNotFound, line.FoodID)
		}
		if err != nil {
			return Draft{}, fmt.Errorf("pricing: load food %s: %w", line.FoodID, err)
		}
		if !food.IsAvailable {
			return Draft{}, fmt.Errorf("%w: %s", ErrUnavailable, food.Name)
		}

		subtotal := food.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, models.OrderItem{
			FoodID:   food.ID,
			Name:     food.Name,
			Quantity: line.Quantity,
			Price:    food.Price,
			Subtotal: subtotal,
		})
		total = total.Add(subtotal)
	}

	if c.OrderType == models.OrderTypeDelivery {
		total = total.Add(p.deliveryFee)
	}

	if c.ClaimedTotal.Sub(total).Abs().GreaterThan(amountTolerance) {
		return Draft{}, fmt.Errorf("%w: expected %s, got %s", ErrAmountMismatch, total.StringFixed(2), c.ClaimedTotal.StringFixed(2))
	}

	return Draft{Items: items, Total: total}, nil
}
