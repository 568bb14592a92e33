// Package gateway talks to the Cashfree payment gateway. It creates hosted
// checkout sessions and reports the authoritative payment status of a
// gateway order; deciding what that means for a local order is left to the
// order service.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/pkg/http"
	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/metrics"
)

const (
	SandboxURL    = "https://sandbox.cashfree.com/pg"
	ProductionURL = "https://api.cashfree.com/pg"

	DefaultAPIVersion = "2023-08-01"

	// maxOrderIDLen is Cashfree's limit on order_id.
	maxOrderIDLen = 45
)

// Status is the coarse payment verdict for a gateway order.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusPending Status = "PENDING"
	StatusUnknown Status = "UNKNOWN"
)

// Config is built by the server wiring from CASHFREE_* settings.
type Config struct {
	AppID         string
	SecretKey     string
	Environment   string // "sandbox" | "production"
	APIVersion    string
	BaseURL       string // overrides Environment when set
	Timeout       time.Duration
	ReturnURLBase string
	Currency      string
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Environment == "production" {
		return ProductionURL
	}
	return SandboxURL
}

// CreateOrderInput describes one checkout attempt for a local order.
type CreateOrderInput struct {
	LocalOrderID  string
	Amount        decimal.Decimal
	CustomerID    string
	CustomerPhone string
}

type Session struct {
	GatewayOrderID   string
	PaymentSessionID string
}

type PaymentStatus struct {
	Status            Status
	ExternalPaymentID string
	TransactionRef    string
}

// Cashfree implements the payment gateway over the Cashfree PG REST API.
type Cashfree struct {
	cfg Config
}

func NewCashfree(cfg Config) *Cashfree {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Cashfree{cfg: cfg}
}

func (c *Cashfree) request(ctx context.Context, req *http.Request) *http.Request {
	return req.
		Header("x-client-id", c.cfg.AppID).
		Header("x-client-secret", c.cfg.SecretKey).
		Header("x-api-version", c.cfg.APIVersion).
		Timeout(c.cfg.Timeout).
		WithContext(ctx)
}

func (c *Cashfree) configured() error {
	if c.cfg.AppID == "" || c.cfg.SecretKey == "" {
		return ErrNotConfigured
	}
	return nil
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url"`
}

type createOrderBody struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     json.Number     `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
}

type createOrderReply struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CreateOrder opens a hosted checkout session. A fresh gateway order id is
// generated for every call.
func (c *Cashfree) CreateOrder(ctx context.Context, in CreateOrderInput) (s Session, err error) {
	const op = "create_order"
	start := time.Now()
	defer func() { metrics.ObserveGateway(op, start, err) }()

	if err := c.configured(); err != nil {
		return Session{}, &Error{Op: op, Err: err}
	}

	body := createOrderBody{
		OrderID:       NewOrderID(),
		OrderAmount:   json.Number(in.Amount.StringFixed(2)),
		OrderCurrency: c.cfg.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    in.CustomerID,
			CustomerPhone: in.CustomerPhone,
		},
		OrderMeta: orderMeta{ReturnURL: c.returnURL(in.LocalOrderID)},
	}

	resp, err := c.request(ctx, http.Post(c.cfg.baseURL()+"/orders")).Body(body).Send()
	if err != nil {
		return Session{}, &Error{Op: op, Err: err}
	}
	if err := resp.Throw(); err != nil {
		return Session{}, &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var reply createOrderReply
	if err := resp.JSON(&reply); err != nil {
		return Session{}, &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if reply.PaymentSessionID == "" {
		return Session{}, &Error{Op: op, StatusCode: resp.StatusCode, Err: ErrMalformedResponse}
	}

	gid := reply.OrderID
	if gid == "" {
		gid = body.OrderID
	}

	logger.WithCtx(ctx).Info("gateway order created",
		"order_id", in.LocalOrderID, "gateway_order_id", gid, "amount", body.OrderAmount)

	return Session{GatewayOrderID: gid, PaymentSessionID: reply.PaymentSessionID}, nil
}

func (c *Cashfree) returnURL(localOrderID string) string {
	base := strings.TrimRight(c.cfg.ReturnURLBase, "/")
	return base + "/order/success?order_id=" + url.QueryEscape(localOrderID)
}

type paymentAttempt struct {
	CFPaymentID   flexString `json:"cf_payment_id"`
	PaymentStatus string     `json:"payment_status"`
	PaymentTime   string     `json:"payment_time"`
	BankReference string     `json:"bank_reference"`
	PaymentGroup  string     `json:"payment_group"`
}

// FetchPaymentStatus asks Cashfree for every payment attempt on
// gatewayOrderID. No attempts yet reads as PENDING. A successful attempt
// wins over any other; otherwise the most recent attempt decides.
func (c *Cashfree) FetchPaymentStatus(ctx context.Context, gatewayOrderID string) (ps PaymentStatus, err error) {
	const op = "fetch_payments"
	start := time.Now()
	defer func() { metrics.ObserveGateway(op, start, err) }()

	if err := c.configured(); err != nil {
		return PaymentStatus{}, &Error{Op: op, Err: err}
	}

	endpoint := fmt.Sprintf("%s/orders/%s/payments", c.cfg.baseURL(), url.PathEscape(gatewayOrderID))
	resp, err := c.request(ctx, http.Get(endpoint)).Send()
	if err != nil {
		return PaymentStatus{}, &Error{Op: op, Err: err}
	}
	if err := resp.Throw(); err != nil {
		return PaymentStatus{}, &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var attempts []paymentAttempt
	if err := resp.JSON(&attempts); err != nil {
		return PaymentStatus{}, &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	return decide(attempts), nil
}

func decide(attempts []paymentAttempt) PaymentStatus {
	if len(attempts) == 0 {
		return PaymentStatus{Status: StatusPending}
	}

	for _, a := range attempts {
		if strings.EqualFold(a.PaymentStatus, "SUCCESS") {
			return a.toStatus()
		}
	}

	latest := make([]paymentAttempt, len(attempts))
	copy(latest, attempts)
	sort.SliceStable(latest, func(i, j int) bool {
		return latest[i].time().Before(latest[j].time())
	})
	return latest[len(latest)-1].toStatus()
}

func (a paymentAttempt) time() time.Time {
	t, err := time.Parse(time.RFC3339, a.PaymentTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (a paymentAttempt) toStatus() PaymentStatus {
	ref := a.BankReference
	if ref == "" {
		ref = a.PaymentGroup
	}
	return PaymentStatus{
		Status:            mapStatus(a.PaymentStatus),
		ExternalPaymentID: string(a.CFPaymentID),
		TransactionRef:    ref,
	}
}

// mapStatus folds Cashfree's attempt states onto the coarse verdict. An
// attempt the shopper never finished stays PENDING since the session can
// still be paid; one the gateway voided is final.
func mapStatus(s string) Status {
	switch strings.ToUpper(s) {
	case "SUCCESS":
		return StatusSuccess
	case "FAILED", "CANCELLED", "VOID":
		return StatusFailed
	case "PENDING", "NOT_ATTEMPTED", "USER_DROPPED":
		return StatusPending
	default:
		return StatusUnknown
	}
}

// NewOrderID returns "CF" + unix millis + 8 random hex chars.
func NewOrderID() string {
	var b [4]byte
	_, _ = rand.Read(b[:]) // never fails since Go 1.24
	return truncate("CF"+strconv.FormatInt(time.Now().UnixMilli(), 10)+hex.EncodeToString(b[:]), maxOrderIDLen)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// flexString accepts both the numeric and the string form of an id.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
