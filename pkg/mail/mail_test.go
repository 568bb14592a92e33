package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendBuildsMessage(t *testing.T) {
	var (
		gotFrom string
		gotTo   []string
		gotRaw  string
	)
	capture := func(_ SMTP, from string, to []string, raw []byte) error {
		gotFrom, gotTo, gotRaw = from, to, string(raw)
		return nil
	}

	err := To("a@example.com").
		CC("b@example.com").
		Subject("Order confirmed").
		Body("<p>hi</p>").
		UseConfig(SMTP{Username: "u", From: "orders@example.com", FromName: "Shop"}).
		Via(capture).
		Send()
	require.NoError(t, err)

	assert.Equal(t, "orders@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
	assert.Contains(t, gotRaw, "From: Shop <orders@example.com>\r\n")
	assert.Contains(t, gotRaw, "Cc: b@example.com\r\n")
	assert.Contains(t, gotRaw, "Subject: Order confirmed\r\n")
	assert.Contains(t, gotRaw, "Content-Type: text/html")
	assert.Contains(t, gotRaw, "\r\n\r\n<p>hi</p>")
}

func TestSendRequiresCredentials(t *testing.T) {
	err := To("a@example.com").UseConfig(SMTP{}).Send()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTextBody(t *testing.T) {
	var raw string
	err := To("a@example.com").
		Text("plain").
		UseConfig(SMTP{Username: "u"}).
		Via(func(_ SMTP, _ string, _ []string, r []byte) error { raw = string(r); return nil }).
		Send()
	require.NoError(t, err)
	assert.Contains(t, raw, "Content-Type: text/plain")
}
