package testkit_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	feastlyhttp "github.com/feastly/feastly/pkg/http"
	"github.com/feastly/feastly/pkg/testkit"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func echoHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]string{"reply": "pong", "id": "p-1"},
		})
	})
	mux.HandleFunc("POST /echo/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, nil)
			return
		}

		resp, err := feastlyhttp.Post("https://upstream.test/echo").Body(in).WithContext(r.Context()).Send()
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": err.Error()})
			return
		}
		var up map[string]string
		_ = resp.JSON(&up)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"data": map[string]string{
				"path":     r.URL.Path,
				"trace":    r.Header.Get("X-Trace"),
				"message":  in["message"],
				"upstream": up["upstream"],
			},
		})
	})
	return mux
}

func TestRunDir_CapturesFeedLaterScenarios(t *testing.T) {
	r := testkit.New(echoHandler())
	r.RunDir(t, "testdata")
	assert.Equal(t, "p-1", r.Var("pingId"))
}

func TestLoadScenario_Defaults(t *testing.T) {
	s, err := testkit.LoadScenario("testdata/01_ping.json")
	require.NoError(t, err)

	assert.Equal(t, "GET", s.Request.Method)
	assert.Equal(t, 200, s.Expect.Status)
	assert.Equal(t, map[string]string{"pingId": "data.id"}, s.Capture)
}

func TestLoadDir_SkipsBodyFiles(t *testing.T) {
	all, err := testkit.LoadDir("testdata")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ping returns pong", all[0].Name)
	assert.Equal(t, "echo forwards upstream reply", all[1].Name)
}

func TestMockTransport_ConsumesInOrder(t *testing.T) {
	mt := testkit.NewMockTransport([]testkit.Mock{
		{Method: "GET", URL: "https://api.test/orders/1", Body: json.RawMessage(`{"n":1}`)},
		{Method: "GET", URL: "https://api.test/orders/1", Body: json.RawMessage(`{"n":2}`)},
	}, true)

	read := func() string {
		req := httptest.NewRequest(http.MethodGet, "https://api.test/orders/1/payments", nil)
		resp, err := mt.RoundTrip(req)
		require.NoError(t, err)
		b, _ := io.ReadAll(resp.Body)
		return string(b)
	}

	assert.Equal(t, `{"n":1}`, read())
	assert.Equal(t, `{"n":2}`, read())
	assert.Equal(t, `{"n":2}`, read())
	assert.Empty(t, mt.Unused())
	assert.Len(t, mt.Requests(), 3)
}

func TestMockTransport_MethodMustMatch(t *testing.T) {
	mt := testkit.NewMockTransport([]testkit.Mock{
		{Method: "POST", URL: "https://api.test/"},
	}, true)

	_, err := mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://api.test/x", nil))
	assert.Error(t, err)
	assert.Equal(t, []string{"POST https://api.test/"}, mt.Unused())
}

func TestMockTransport_LenientReturns404(t *testing.T) {
	mt := testkit.NewMockTransport(nil, false)

	resp, err := mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://elsewhere.test/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDiff(t *testing.T) {
	var actual interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":{"c":"x","d":null},"e":[1,2]}`), &actual))

	cases := []struct {
		name     string
		expected string
		diffs    int
	}{
		{"subset", `{"a":1}`, 0},
		{"wildcard", `{"b":{"c":"*"}}`, 0},
		{"wildcard rejects null", `{"b":{"d":"*"}}`, 1},
		{"missing key", `{"z":1}`, 1},
		{"wrong value", `{"a":2}`, 1},
		{"array length", `{"e":[1]}`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var exp interface{}
			require.NoError(t, json.Unmarshal([]byte(tc.expected), &exp))
			assert.Len(t, testkit.Diff("", exp, actual), tc.diffs)
		})
	}
}

func TestLookup(t *testing.T) {
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"items":[{"id":"x"}]}}`), &doc))

	v, ok := testkit.Lookup(doc, "data.items.0.id")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = testkit.Lookup(doc, "data.items.3.id")
	assert.False(t, ok)
}
