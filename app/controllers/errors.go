package controllers

import (
	"errors"
	"net/http"

	"github.com/feastly/feastly/app/gateway"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/ctx"
)

type errorKind struct {
	status int
	kind   string
}

// kinds is checked in order; the first sentinel err matches wins.
var kinds = []struct {
	target error
	errorKind
}{
	{services.ErrOrderNotFound, errorKind{http.StatusNotFound, "OrderNotFound"}},
	{services.ErrNotFound, errorKind{http.StatusNotFound, "NotFound"}},
	{services.ErrUnavailable, errorKind{http.StatusUnprocessableEntity, "Unavailable"}},
	{services.ErrAmountMismatch, errorKind{http.StatusUnprocessableEntity, "AmountMismatch"}},
	{services.ErrMissingAddress, errorKind{http.StatusUnprocessableEntity, "MissingAddress"}},
	{services.ErrEmptyCart, errorKind{http.StatusUnprocessableEntity, "EmptyCart"}},
	{services.ErrInvalidQuantity, errorKind{http.StatusUnprocessableEntity, "InvalidQuantity"}},
	{services.ErrForbidden, errorKind{http.StatusForbidden, "Forbidden"}},
	{services.ErrInvalidTransition, errorKind{http.StatusConflict, "InvalidTransition"}},
	{services.ErrInvalidStatus, errorKind{http.StatusBadRequest, "InvalidStatus"}},
	{services.ErrMissingReference, errorKind{http.StatusBadRequest, "MissingReference"}},
	{services.ErrDuplicateRequest, errorKind{http.StatusConflict, "DuplicateRequest"}},
	{services.ErrConflict, errorKind{http.StatusConflict, "Conflict"}},
	{services.ErrInvalidCredentials, errorKind{http.StatusUnauthorized, "InvalidCredentials"}},
}

// respondError renders err as the JSON envelope with a machine readable
// errors.kind. Gateway failures never expose the transport message.
func respondError(x *ctx.Context, err error) {
	var initErr *services.PaymentInitiationError
	if errors.As(err, &initErr) {
		x.Problem(http.StatusBadGateway, "Payment initiation failed; the order has been cancelled",
			"PaymentInitiationFailed", "orderId", initErr.OrderID)
		return
	}
	if errors.Is(err, gateway.ErrGateway) {
		x.Logger().Error("payment gateway error", "error", err)
		x.Problem(http.StatusBadGateway, "Payment gateway is unavailable, please retry", "GatewayError")
		return
	}

	for _, k := range kinds {
		if errors.Is(err, k.target) {
			x.Problem(k.status, err.Error(), k.kind)
			return
		}
	}

	x.Logger().Error("unhandled error", "error", err)
	x.Problem(http.StatusInternalServerError, "Internal server error", "Internal")
}

func actorOf(x *ctx.Context) services.Actor {
	id := x.Identity()
	return services.Actor{UserID: id.UserID, Role: id.Role}
}
