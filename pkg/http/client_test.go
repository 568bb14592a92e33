package http_test

import (
	"context"
	"errors"
	"io"
	gohttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/pkg/http"
)

func TestPostSendsJSONAndHeaders(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "2023-08-01", r.Header.Get("x-api-version"))
		assert.JSONEq(t, `{"amount":"250.00"}`, string(body))
		w.WriteHeader(gohttp.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := http.Post(srv.URL).
		Header("x-api-version", "2023-08-01").
		Body(map[string]string{"amount": "250.00"}).
		Send()
	require.NoError(t, err)
	require.True(t, resp.OK())

	var out struct{ OK bool }
	require.NoError(t, resp.JSON(&out))
	assert.True(t, out.OK)
}

func TestThrowReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusBadGateway)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL).Send()
	require.NoError(t, err)

	var se *http.StatusError
	require.True(t, errors.As(resp.Throw(), &se))
	assert.Equal(t, gohttp.StatusBadGateway, se.Code)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := http.Get(srv.URL).Timeout(20 * time.Millisecond).Send()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type flaky struct{ calls int }

func (f *flaky) RoundTrip(r *gohttp.Request) (*gohttp.Response, error) {
	f.calls++
	if f.calls < 3 {
		return nil, errors.New("connection reset")
	}
	return &gohttp.Response{StatusCode: 200, Body: gohttp.NoBody, Header: gohttp.Header{}}, nil
}

func TestRetryOnTransportError(t *testing.T) {
	tr := &flaky{}
	resp, err := http.Get("http://gateway.test/x").
		Client(&gohttp.Client{Transport: tr}).
		Retry(3, time.Millisecond).
		Send()
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 3, tr.calls)
}
