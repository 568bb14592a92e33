package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	feastlyhttp "github.com/feastly/feastly/pkg/http"
)

// Runner fires scenarios at one handler. Vars are substituted for {{name}}
// in the request URL, headers and body, and grow with each capture.
type Runner struct {
	handler http.Handler

	mu   sync.Mutex
	vars map[string]string
}

func New(h http.Handler) *Runner {
	return &Runner{handler: h, vars: map[string]string{}}
}

// Set defines a variable for later scenarios.
func (r *Runner) Set(name, value string) *Runner {
	r.mu.Lock()
	r.vars[name] = value
	r.mu.Unlock()
	return r
}

// Var returns a variable, typically one captured by an earlier scenario.
func (r *Runner) Var(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vars[name]
}

// Run executes the scenario at path as a subtest.
func (r *Runner) Run(t *testing.T, path string) {
	t.Helper()
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Run(s.Name, func(t *testing.T) { r.Exec(t, s) })
}

// RunDir executes every scenario in dir, in file-name order, sharing vars.
func (r *Runner) RunDir(t *testing.T, dir string) {
	t.Helper()
	scenarios, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) { r.Exec(t, s) })
	}
}

// Exec runs one loaded scenario and returns the recorded response.
func (r *Runner) Exec(t *testing.T, s *Scenario) *httptest.ResponseRecorder {
	t.Helper()

	body, err := s.RequestBody()
	if err != nil {
		t.Fatalf("[%s] request body: %v", s.Name, err)
	}

	mt := NewMockTransport(s.Mocks, s.Strict)
	prev := feastlyhttp.DefaultClient.Transport
	feastlyhttp.DefaultClient.Transport = mt
	defer func() { feastlyhttp.DefaultClient.Transport = prev }()

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader([]byte(r.expand(string(body))))
	}

	req := httptest.NewRequest(s.Request.Method, r.expand(s.Request.URL), reader)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range s.Request.Headers {
		req.Header.Set(k, r.expand(v))
	}

	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)

	if rec.Code != s.Expect.Status {
		t.Errorf("[%s] status: want %d, got %d\nbody: %s", s.Name, s.Expect.Status, rec.Code, rec.Body.String())
	}

	expected, err := s.ExpectedBody()
	if err != nil {
		t.Errorf("[%s] expected body: %v", s.Name, err)
	} else if expected != nil {
		AssertSubset(t, s.Name, []byte(r.expand(string(expected))), rec.Body.Bytes())
	}

	for _, m := range mt.Unused() {
		t.Errorf("[%s] mock %s was never called", s.Name, m)
	}

	if len(s.Capture) > 0 {
		r.capture(t, s, rec.Body.Bytes())
	}
	return rec
}

func (r *Runner) capture(t *testing.T, s *Scenario, body []byte) {
	t.Helper()

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Errorf("[%s] capture: response is not JSON: %v", s.Name, err)
		return
	}
	for name, path := range s.Capture {
		v, ok := Lookup(doc, path)
		if !ok {
			t.Errorf("[%s] capture %s: %q not in response", s.Name, name, path)
			continue
		}
		r.Set(name, fmt.Sprint(v))
	}
}

func (r *Runner) expand(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.vars {
		s = strings.ReplaceAll(s, "{{"+k+"}}", v)
	}
	return s
}

// Run executes a single scenario file against h.
func Run(t *testing.T, h http.Handler, path string) {
	t.Helper()
	New(h).Run(t, path)
}

// RunDir executes every scenario in dir against h.
func RunDir(t *testing.T, h http.Handler, dir string) {
	t.Helper()
	New(h).RunDir(t, dir)
}
