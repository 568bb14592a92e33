// Package notification fans a message out over mail, Slack and webhook
// channels. A notification opts into a channel by implementing the matching
// To* method and naming the channel in Via:
//
//	type OrderPaid struct{ Order models.Order }
//	func (n OrderPaid) Via() []string { return []string{"mail", "webhook"} }
//	func (n OrderPaid) ToMail() notification.MailData { ... }
//	func (n OrderPaid) ToWebhook() notification.WebhookData { ... }
//
//	errs := notification.Send(ctx, user.Email, OrderPaid{Order: o})
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feastly/feastly/pkg/http"
	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/mail"
)

type MailData struct {
	To      string // overrides the notifiable address
	Subject string
	Body    string // HTML
	Text    string
}

type SlackData struct {
	WebhookURL string
	Text       string
}

type WebhookData struct {
	URL     string
	Payload interface{}
	Headers map[string]string
}

type Notification interface {
	Via() []string
}

type Mailable interface{ ToMail() MailData }
type Slackable interface{ ToSlack() SlackData }
type Webhookable interface{ ToWebhook() WebhookData }

var defaultSlackWebhook string

// SetSlackWebhook sets the incoming webhook used when SlackData has none.
func SetSlackWebhook(url string) { defaultSlackWebhook = url }

// Send dispatches n through every channel in Via and collects the failures.
func Send(ctx context.Context, address string, n Notification) error {
	var errs []error
	for _, channel := range n.Via() {
		if err := dispatch(ctx, address, channel, n); err != nil {
			logger.WithCtx(ctx).Error("notification: channel failed", "channel", channel, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func dispatch(ctx context.Context, address, channel string, n Notification) error {
	switch channel {
	case "mail":
		m, ok := n.(Mailable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Mailable", n)
		}
		return sendMail(address, m.ToMail())
	case "slack":
		s, ok := n.(Slackable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Slackable", n)
		}
		return sendSlack(ctx, s.ToSlack())
	case "webhook":
		wh, ok := n.(Webhookable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Webhookable", n)
		}
		return sendWebhook(ctx, wh.ToWebhook())
	default:
		return fmt.Errorf("notification: unknown channel %q", channel)
	}
}

func sendMail(address string, d MailData) error {
	to := d.To
	if to == "" {
		to = address
	}
	if d.Body == "" {
		return mail.To(to).Subject(d.Subject).Text(d.Text).Send()
	}
	return mail.To(to).Subject(d.Subject).Body(d.Body).Send()
}

func sendSlack(ctx context.Context, d SlackData) error {
	url := d.WebhookURL
	if url == "" {
		url = defaultSlackWebhook
	}
	if url == "" {
		return errors.New("notification: slack webhook URL not configured")
	}
	return post(ctx, url, map[string]string{"text": d.Text}, nil, 5*time.Second)
}

func sendWebhook(ctx context.Context, d WebhookData) error {
	if d.URL == "" {
		return errors.New("notification: webhook URL is empty")
	}
	return post(ctx, d.URL, d.Payload, d.Headers, 10*time.Second)
}

func post(ctx context.Context, url string, payload interface{}, headers map[string]string, timeout time.Duration) error {
	req := http.Post(url).Body(payload).Timeout(timeout).Retry(2, 250*time.Millisecond).WithContext(ctx)
	for k, v := range headers {
		req.Header(k, v)
	}
	resp, err := req.Send()
	if err != nil {
		return fmt.Errorf("notification: post: %w", err)
	}
	if err := resp.Throw(); err != nil {
		return fmt.Errorf("notification: %s: %w", url, err)
	}
	return nil
}
