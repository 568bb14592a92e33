package notification

import (
	"context"
	"encoding/json"
	"io"
	gohttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/pkg/mail"
)

type paid struct {
	url      string
	channels []string
}

func (p paid) Via() []string { return p.channels }

func (p paid) ToMail() MailData {
	return MailData{Subject: "Paid", Text: "thanks"}
}

func (p paid) ToWebhook() WebhookData {
	return WebhookData{
		URL:     p.url,
		Payload: map[string]string{"orderId": "o1"},
		Headers: map[string]string{"X-Event": "order.paid"},
	}
}

func TestWebhookChannelPostsJSON(t *testing.T) {
	var (
		gotEvent string
		gotBody  map[string]string
	)
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		gotEvent = r.Header.Get("X-Event")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(gohttp.StatusNoContent)
	}))
	defer srv.Close()

	err := Send(context.Background(), "a@example.com", paid{url: srv.URL, channels: []string{"webhook"}})
	require.NoError(t, err)
	assert.Equal(t, "order.paid", gotEvent)
	assert.Equal(t, "o1", gotBody["orderId"])
}

func TestWebhookNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, _ *gohttp.Request) {
		w.WriteHeader(gohttp.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Send(context.Background(), "a@example.com", paid{url: srv.URL, channels: []string{"webhook"}})
	assert.Error(t, err)
}

func TestMailChannelRequiresCredentials(t *testing.T) {
	var to []string
	prev := mail.Transport
	mail.Transport = func(_ mail.SMTP, _ string, rcpt []string, _ []byte) error {
		to = rcpt
		return nil
	}
	t.Cleanup(func() { mail.Transport = prev })

	err := sendMail("a@example.com", MailData{Subject: "x", Text: "y"})
	// MAIL_USERNAME is unset in tests.
	assert.ErrorIs(t, err, mail.ErrNotConfigured)
	assert.Nil(t, to)
}

func TestUnsupportedChannel(t *testing.T) {
	err := Send(context.Background(), "a@example.com", paid{channels: []string{"slack", "pager"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Slackable")
	assert.Contains(t, err.Error(), `unknown channel "pager"`)
}
