package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// VerifySignature checks Cashfree's x-webhook-signature header:
// base64(HMAC-SHA256(secret, timestamp + body)).
func VerifySignature(secret, timestamp string, body []byte, signature string) error {
	if secret == "" || signature == "" {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
	} `json:"data"`
}

// WebhookOrderID extracts the gateway order id a payment webhook refers to.
func WebhookOrderID(body []byte) (string, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("gateway: decode webhook: %w", err)
	}
	if env.Data.Order.OrderID == "" {
		return "", ErrMalformedResponse
	}
	return env.Data.Order.OrderID, nil
}
