package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/app/events"
	"github.com/feastly/feastly/app/gateway"
	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/pkg/event"
	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/metrics"
	"github.com/feastly/feastly/pkg/orm"
)

// PaymentGateway is the part of the gateway adapter the order flow needs.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, in gateway.CreateOrderInput) (gateway.Session, error)
	FetchPaymentStatus(ctx context.Context, gatewayOrderID string) (gateway.PaymentStatus, error)
}

// Locker guards idempotency keys while a placement is in flight.
// cache.Lock satisfies it through LockFunc.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, func(), error)
}

type LockFunc func(ctx context.Context, key string, ttl time.Duration) (bool, func(), error)

func (f LockFunc) Lock(ctx context.Context, key string, ttl time.Duration) (bool, func(), error) {
	return f(ctx, key, ttl)
}

// EventDispatcher is satisfied by *event.Bus.
type EventDispatcher interface {
	Dispatch(ctx context.Context, e event.Event)
}

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string, time.Duration) (bool, func(), error) {
	return true, func() {}, nil
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, event.Event) {}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

type Options struct {
	DeliveryFee       decimal.Decimal
	DefaultPayerPhone string
	LockTTL           time.Duration
}

// Outcome is the coarse reconciliation verdict shown to the shopper.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending"
)

type PlaceOrderInput struct {
	UserID         string
	Cart           Cart
	IdempotencyKey string
}

type PlaceOrderResult struct {
	Order            *models.Order
	PaymentSessionID string
	Replayed         bool
}

type ReconcileResult struct {
	Order   *models.Order
	Outcome Outcome
}

// OrderService owns the order state machine. Every status write goes
// through CompareAndSet so concurrent callers cannot apply a transition twice.
type OrderService struct {
	orders      repo.OrderRepository
	users       repo.UserRepository
	restaurants repo.RestaurantRepository
	pricer      *Pricer
	gateway     PaymentGateway
	locker      Locker
	events      EventDispatcher
	opts        Options
	now         func() time.Time
}

func NewOrderService(store repo.Store, gw PaymentGateway, opts Options) *OrderService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.DefaultPayerPhone == "" {
		opts.DefaultPayerPhone = "9999999999"
	}
	return &OrderService{
		orders:      store.Orders,
		users:       store.Users,
		restaurants: store.Restaurants,
		pricer:      NewPricer(store.Foods, opts.DeliveryFee),
		gateway:     gw,
		locker:      nopLocker{},
		events:      nopDispatcher{},
		opts:        opts,
		now:         time.Now,
	}
}

func (s *OrderService) UseLocker(l Locker)            { s.locker = l }
func (s *OrderService) UseEvents(d EventDispatcher)   { s.events = d }
func (s *OrderService) UseClock(now func() time.Time) { s.now = now }

// PlaceOrder prices the cart, saves a Pending order and opens a gateway
// checkout session for it. With an idempotency key a repeat of a finished
// request returns the original order instead of creating another.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	log := logger.WithCtx(ctx)

	if in.IdempotencyKey != "" {
		ok, release, err := s.locker.Lock(ctx, "orders:idem:"+in.UserID+":"+in.IdempotencyKey, s.opts.LockTTL)
		switch {
		case err != nil:
			log.Warn("idempotency lock unavailable, relying on unique index", "error", err)
		case !ok:
			metrics.OrdersPlaced.WithLabelValues("rejected").Inc()
			return nil, ErrDuplicateRequest
		default:
			defer release()
		}

		if prev, err := s.replay(ctx, in.UserID, in.IdempotencyKey); err != nil || prev != nil {
			return prev, err
		}
	}

	draft, err := s.pricer.Price(ctx, in.Cart)
	if err != nil {
		metrics.OrdersPlaced.WithLabelValues("rejected").Inc()
		return nil, err
	}

	order := &models.Order{
		UserID:        in.UserID,
		Items:         draft.Items,
		TotalAmount:   draft.Total,
		OrderType:     in.Cart.OrderType,
		Status:        models.StatusPending,
		PaymentResult: models.PaymentResult{Status: models.PaymentPending},
	}
	if in.Cart.OrderType == models.OrderTypeDelivery {
		order.ShippingAddress = in.Cart.ShippingAddress
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		order.IdempotencyKey = &key
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repo.ErrDuplicate) && in.IdempotencyKey != "" {
			if prev, rerr := s.replay(ctx, in.UserID, in.IdempotencyKey); rerr != nil || prev != nil {
				return prev, rerr
			}
		}
		return nil, fmt.Errorf("place order: save: %w", err)
	}

	log = log.With("order_id", order.ID)

	if err := s.users.AppendOrder(ctx, in.UserID, order.ID, order.CreatedAt); err != nil {
		log.Warn("order history append failed", "error", err)
	}

	session, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderInput{
		LocalOrderID:  order.ID,
		Amount:        order.TotalAmount,
		CustomerID:    in.UserID,
		CustomerPhone: s.payerPhone(ctx, in.UserID),
	})
	if err != nil {
		return s.abandon(ctx, order, err)
	}

	initiated := models.PaymentResult{Status: models.PaymentInitiated}
	patch := repo.OrderPatch{
		GatewayOrderID:   &session.GatewayOrderID,
		PaymentSessionID: &session.PaymentSessionID,
		PaymentResult:    &initiated,
	}
	if err := s.orders.UpdateByID(ctx, order.ID, patch); err != nil {
		log.Error("gateway session opened but not stored",
			"gateway_order_id", session.GatewayOrderID, "payment_session_id", session.PaymentSessionID, "error", err)
		return s.abandon(ctx, order, fmt.Errorf("store gateway reference: %w", err))
	}
	patch.Apply(order, s.now())

	metrics.OrdersPlaced.WithLabelValues("initiated").Inc()
	log.Info("order placed", "status", order.Status, "total", order.TotalAmount.StringFixed(2), "gateway_order_id", order.GatewayOrderID)
	s.events.Dispatch(ctx, events.OrderPlaced{Order: *order})

	return &PlaceOrderResult{Order: order, PaymentSessionID: session.PaymentSessionID}, nil
}

func (s *OrderService) replay(ctx context.Context, userID, key string) (*PlaceOrderResult, error) {
	prev, err := s.orders.FindOne(ctx, repo.OrderFilter{UserID: userID, IdempotencyKey: key})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("place order: idempotency lookup: %w", err)
	}

	metrics.OrdersPlaced.WithLabelValues("replayed").Inc()
	logger.WithCtx(ctx).Info("order replayed", "order_id", prev.ID, "status", prev.Status)
	result := &PlaceOrderResult{Order: prev, PaymentSessionID: prev.PaymentSessionID, Replayed: true}
	if abandoned(prev) {
		return result, &PaymentInitiationError{OrderID: prev.ID, Err: errEarlierInitiationFailed}
	}
	return result, nil
}

// abandoned reports an order closed because its payment session never opened.
func abandoned(o *models.Order) bool {
	return o.Status == models.StatusCancelled &&
		o.PaymentResult.Status == models.PaymentFailed &&
		o.GatewayOrderID == ""
}

// abandon closes an order whose payment session could not be opened.
func (s *OrderService) abandon(ctx context.Context, order *models.Order, cause error) (*PlaceOrderResult, error) {
	log := logger.WithCtx(ctx).With("order_id", order.ID)
	metrics.OrdersPlaced.WithLabelValues("gateway_failed").Inc()

	cancelled := models.StatusCancelled
	failed := models.PaymentResult{Status: models.PaymentFailed}
	patch := repo.OrderPatch{Status: &cancelled, PaymentResult: &failed}

	if _, err := s.orders.CompareAndSet(ctx, order.ID, []models.OrderStatus{models.StatusPending}, patch); err != nil {
		log.Error("could not cancel order after gateway failure", "error", err)
	} else {
		patch.Apply(order, s.now())
		metrics.OrderTransitions.WithLabelValues(string(cancelled)).Inc()
		s.events.Dispatch(ctx, events.OrderCancelled{Order: *order, Reason: "initiation_failed"})
	}

	log.Warn("payment initiation failed", "status", order.Status, "error", cause)
	return &PlaceOrderResult{Order: order}, &PaymentInitiationError{OrderID: order.ID, Err: cause}
}

func (s *OrderService) payerPhone(ctx context.Context, userID string) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u.Phone == "" {
		return s.opts.DefaultPayerPhone
	}
	return u.Phone
}

// ReconcilePayment applies the gateway's verdict for gatewayOrderID to the
// local order. It is safe to call repeatedly: only the first SUCCESS moves
// the order out of Pending, later calls report the stored state.
func (s *OrderService) ReconcilePayment(ctx context.Context, gatewayOrderID string) (*ReconcileResult, error) {
	if gatewayOrderID == "" {
		return nil, ErrMissingReference
	}
	log := logger.WithCtx(ctx).With("gateway_order_id", gatewayOrderID)

	verdict, err := s.gateway.FetchPaymentStatus(ctx, gatewayOrderID)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return nil, err
	}

	order, err := s.orders.FindOne(ctx, repo.OrderFilter{GatewayOrderID: gatewayOrderID})
	if errors.Is(err, repo.ErrNotFound) {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return nil, ErrOrderNotFound
	}
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("reconcile: load order: %w", err)
	}
	log = log.With("order_id", order.ID)

	switch verdict.Status {
	case gateway.StatusSuccess:
		settledAt := s.now()
		paid := models.PaymentResult{
			ExternalPaymentID: verdict.ExternalPaymentID,
			Status:            models.PaymentPaid,
			SettledAt:         &settledAt,
			TransactionRef:    verdict.TransactionRef,
		}
		processing := models.StatusProcessing
		patch := repo.OrderPatch{Status: &processing, PaymentResult: &paid}

		applied, err := s.transition(ctx, order, patch)
		if err != nil {
			return nil, err
		}
		if !applied {
			if order.PaymentResult.Status == models.PaymentPaid {
				return s.settled(order, OutcomeSuccess), nil
			}
			return s.recordPayment(ctx, order, paid)
		}

		metrics.Reconciliations.WithLabelValues("paid").Inc()
		log.Info("payment reconciled", "status", order.Status, "outcome", OutcomeSuccess)
		s.events.Dispatch(ctx, events.OrderPaid{Order: *order})
		return &ReconcileResult{Order: order, Outcome: OutcomeSuccess}, nil

	case gateway.StatusFailed:
		failed := order.PaymentResult
		failed.Status = models.PaymentFailed
		if verdict.ExternalPaymentID != "" {
			failed.ExternalPaymentID = verdict.ExternalPaymentID
		}
		cancelled := models.StatusCancelled
		patch := repo.OrderPatch{Status: &cancelled, PaymentResult: &failed}

		applied, err := s.transition(ctx, order, patch)
		if err != nil {
			return nil, err
		}
		if !applied {
			return s.settled(order, outcomeOf(order)), nil
		}

		metrics.Reconciliations.WithLabelValues("failed").Inc()
		log.Info("payment reconciled", "status", order.Status, "outcome", OutcomeFailed)
		s.events.Dispatch(ctx, events.OrderCancelled{Order: *order, Reason: "payment_failed"})
		return &ReconcileResult{Order: order, Outcome: OutcomeFailed}, nil

	default:
		metrics.Reconciliations.WithLabelValues("pending").Inc()
		log.Debug("payment still pending", "gateway_status", verdict.Status)
		return &ReconcileResult{Order: order, Outcome: outcomeOf(order)}, nil
	}
}

// transition moves a Pending order with patch. When the order has already
// left Pending (or another caller wins the race) it reloads order in place
// and reports false.
func (s *OrderService) transition(ctx context.Context, order *models.Order, patch repo.OrderPatch) (bool, error) {
	if order.Status == models.StatusPending {
		ok, err := s.orders.CompareAndSet(ctx, order.ID, []models.OrderStatus{models.StatusPending}, patch)
		if err != nil {
			metrics.Reconciliations.WithLabelValues("error").Inc()
			return false, fmt.Errorf("reconcile: update order: %w", err)
		}
		if ok {
			patch.Apply(order, s.now())
			metrics.OrderTransitions.WithLabelValues(string(order.Status)).Inc()
			return true, nil
		}
	}

	fresh, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return false, fmt.Errorf("reconcile: reload order: %w", err)
	}
	*order = *fresh
	return false, nil
}

// recordPayment stores a captured payment on an order an operator already
// moved past Pending. The status is left where it is. A terminal order only
// gets a warning.
func (s *OrderService) recordPayment(ctx context.Context, order *models.Order, paid models.PaymentResult) (*ReconcileResult, error) {
	log := logger.WithCtx(ctx).With("order_id", order.ID, "status", order.Status)
	if order.Status.IsTerminal() {
		log.Warn("payment captured for a closed order", "external_payment_id", paid.ExternalPaymentID)
		return s.settled(order, outcomeOf(order)), nil
	}

	patch := repo.OrderPatch{PaymentResult: &paid}
	ok, err := s.orders.CompareAndSet(ctx, order.ID, []models.OrderStatus{order.Status}, patch)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("reconcile: record payment: %w", err)
	}
	if !ok {
		fresh, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			metrics.Reconciliations.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("reconcile: reload order: %w", err)
		}
		*order = *fresh
		return s.settled(order, outcomeOf(order)), nil
	}
	patch.Apply(order, s.now())

	metrics.Reconciliations.WithLabelValues("paid").Inc()
	log.Info("payment recorded on an advanced order", "outcome", OutcomeSuccess)
	s.events.Dispatch(ctx, events.OrderPaid{Order: *order})
	return &ReconcileResult{Order: order, Outcome: OutcomeSuccess}, nil
}

func (s *OrderService) settled(order *models.Order, outcome Outcome) *ReconcileResult {
	metrics.Reconciliations.WithLabelValues("already_settled").Inc()
	return &ReconcileResult{Order: order, Outcome: outcome}
}

func outcomeOf(o *models.Order) Outcome {
	switch o.PaymentResult.Status {
	case models.PaymentPaid:
		return OutcomeSuccess
	case models.PaymentFailed:
		return OutcomeFailed
	}
	if o.Status == models.StatusCancelled {
		return OutcomeFailed
	}
	return OutcomePending
}

// VerifyPayment is ReconcilePayment on behalf of actor, who must own the
// order behind gatewayOrderID or be an admin.
func (s *OrderService) VerifyPayment(ctx context.Context, actor Actor, gatewayOrderID string) (*ReconcileResult, error) {
	if gatewayOrderID == "" {
		return nil, ErrMissingReference
	}
	order, err := s.orders.FindOne(ctx, repo.OrderFilter{GatewayOrderID: gatewayOrderID})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verify payment: load order: %w", err)
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.ReconcilePayment(ctx, gatewayOrderID)
}

// PaymentStatus reconciles a local order through its gateway reference.
// Orders that never reached the gateway report their stored state.
func (s *OrderService) PaymentStatus(ctx context.Context, actor Actor, orderID string) (*ReconcileResult, error) {
	order, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.GatewayOrderID == "" {
		return &ReconcileResult{Order: order, Outcome: outcomeOf(order)}, nil
	}
	return s.ReconcilePayment(ctx, order.GatewayOrderID)
}

// CancelOrder lets the owner cancel while the order is Pending or Processing.
// The payment result is left untouched.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	if !order.Status.Cancellable() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	cancelled := models.StatusCancelled
	patch := repo.OrderPatch{Status: &cancelled}
	ok, err := s.orders.CompareAndSet(ctx, order.ID, []models.OrderStatus{models.StatusPending, models.StatusProcessing}, patch)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
	}
	patch.Apply(order, s.now())

	metrics.OrderTransitions.WithLabelValues(string(cancelled)).Inc()
	logger.WithCtx(ctx).Info("order cancelled", "order_id", order.ID, "status", order.Status)
	s.events.Dispatch(ctx, events.OrderCancelled{Order: *order, Reason: "user"})
	return order, nil
}

// UpdateStatus is the operator override: any recognised status may be set
// on a non-terminal order. Restaurant operators need an approved restaurant.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID, status string) (*models.Order, error) {
	if err := s.authorizeOperator(ctx, actor); err != nil {
		return nil, err
	}

	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, order.Status)
	}

	from := order.Status
	patch := repo.OrderPatch{Status: &next}
	applied, err := s.orders.CompareAndSet(ctx, order.ID, models.NonTerminalStatuses, patch)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
	}
	patch.Apply(order, s.now())

	metrics.OrderTransitions.WithLabelValues(string(next)).Inc()
	logger.WithCtx(ctx).Info("order status updated", "order_id", order.ID, "from", from, "status", next, "by", actor.UserID)
	s.events.Dispatch(ctx, events.OrderStatusChanged{Order: *order, From: from, By: actor.UserID})
	if next == models.StatusCancelled {
		s.events.Dispatch(ctx, events.OrderCancelled{Order: *order, Reason: "operator"})
	}
	return order, nil
}

func (s *OrderService) authorizeOperator(ctx context.Context, actor Actor) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleRestaurant:
		r, err := s.restaurants.FindByOwner(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
		if r.Status != models.RestaurantApproved {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}

// Get returns an order to its owner or an admin.
func (s *OrderService) Get(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID string, page, limit int) ([]models.Order, orm.Pagination, error) {
	return s.orders.FindByUser(ctx, userID, page, limit)
}

func (s *OrderService) find(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return order, err
}
