package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport answers outbound requests from a scenario's mocks. Install
// it on pkg/http's DefaultClient:
//
//	mt := testkit.NewMockTransport(s.Mocks, true)
//	feastlyhttp.DefaultClient.Transport = mt
//	defer feastlyhttp.ResetTransport()
//
// Mocks are consumed in order: the first unused mock that matches wins, and
// once every match is used the last one keeps answering.
type MockTransport struct {
	mu     sync.Mutex
	mocks  []Mock
	calls  []int
	seen   []string
	strict bool
}

func NewMockTransport(mocks []Mock, strict bool) *MockTransport {
	return &MockTransport{
		mocks:  mocks,
		calls:  make([]int, len(mocks)),
		strict: strict,
	}
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.seen = append(mt.seen, req.Method+" "+req.URL.String())

	idx := -1
	for i, m := range mt.mocks {
		if !m.matches(req) {
			continue
		}
		if mt.calls[i] == 0 {
			idx = i
			break
		}
		idx = i
	}

	if idx < 0 {
		if mt.strict {
			return nil, fmt.Errorf("testkit: no mock for %s %s", req.Method, req.URL)
		}
		return respond(req, http.StatusNotFound, []byte(`{"message":"no mock configured"}`)), nil
	}

	mt.calls[idx]++
	m := mt.mocks[idx]
	status := m.Status
	if status == 0 {
		status = http.StatusOK
	}
	return respond(req, status, m.Body), nil
}

func (m Mock) matches(req *http.Request) bool {
	if m.Method != "" && !strings.EqualFold(m.Method, req.Method) {
		return false
	}
	return strings.HasPrefix(req.URL.String(), m.URL)
}

// Unused lists the non-optional mocks that were never called.
func (mt *MockTransport) Unused() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var out []string
	for i, m := range mt.mocks {
		if mt.calls[i] == 0 && !m.Optional {
			out = append(out, strings.TrimSpace(m.Method+" "+m.URL))
		}
	}
	return out
}

// Requests returns every outbound call seen, as "METHOD URL".
func (mt *MockTransport) Requests() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]string(nil), mt.seen...)
}

func respond(req *http.Request, status int, body []byte) *http.Response {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     h,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
}
