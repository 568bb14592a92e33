// Package testkit drives HTTP API tests from JSON scenario files.
//
// A scenario names one request, the response it expects, and the outbound
// calls (payment gateway, webhooks) to fake while it runs:
//
//	{
//	  "name": "place order",
//	  "request": {"method": "POST", "url": "/api/orders",
//	              "headers": {"Authorization": "Bearer {{userToken}}"},
//	              "bodyFile": "place_order_req.json"},
//	  "expect":  {"status": 201, "body": {"data": {"order": {"id": "*"}}}},
//	  "capture": {"orderId": "data.order.id"},
//	  "mocks":   [{"method": "POST", "url": "https://sandbox.cashfree.com/pg/orders",
//	               "status": 200, "body": {"order_id": "CF1", "payment_session_id": "s1"}}]
//	}
//
// Expected bodies are matched as subsets: keys missing from the expectation
// are ignored and the string "*" accepts any non-null value. Values listed
// under capture become {{vars}} for the scenarios that follow.
package testkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scenario is one request/response case loaded from a JSON file.
type Scenario struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Request     Request           `json:"request"`
	Expect      Expect            `json:"expect"`
	Capture     map[string]string `json:"capture"`
	Mocks       []Mock            `json:"mocks"`

	// Strict fails any outbound call that no mock matches. Otherwise such
	// calls get a 404.
	Strict bool `json:"strict"`

	dir string
}

type Request struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	Body     json.RawMessage   `json:"body"`
	BodyFile string            `json:"bodyFile"`
}

type Expect struct {
	Status   int             `json:"status"`
	Body     json.RawMessage `json:"body"`
	BodyFile string          `json:"bodyFile"`
}

// Mock fakes one outbound HTTP call made through pkg/http. URL is a prefix;
// an empty Method matches any verb.
type Mock struct {
	Method string          `json:"method"`
	URL    string          `json:"url"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`

	// Optional mocks are not reported when the scenario never triggers them.
	Optional bool `json:"optional"`
}

// LoadScenario reads and validates the scenario at path.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	s.dir = filepath.Dir(abs)

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: %q: %w", abs, err)
	}
	return &s, nil
}

// LoadDir loads every *.json scenario in dir in file-name order. Files whose
// name ends in _req.json or _res.json are bodies, not scenarios.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	var (
		out  []*Scenario
		errs []error
	)
	for _, p := range paths {
		if isBodyFile(p) {
			continue
		}
		s, err := LoadScenario(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 && len(errs) == 0 {
		return nil, fmt.Errorf("testkit: no scenarios in %q", dir)
	}
	return out, errors.Join(errs...)
}

func isBodyFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "_req.json") || strings.HasSuffix(base, "_res.json")
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Request.URL == "" {
		return errors.New("request.url is required")
	}
	if s.Expect.Status == 0 {
		return errors.New("expect.status is required")
	}
	if s.Request.Method == "" {
		s.Request.Method = "GET"
	}
	s.Request.Method = strings.ToUpper(s.Request.Method)
	if len(s.Request.Body) > 0 && s.Request.BodyFile != "" {
		return errors.New("request.body and request.bodyFile are exclusive")
	}
	if len(s.Expect.Body) > 0 && s.Expect.BodyFile != "" {
		return errors.New("expect.body and expect.bodyFile are exclusive")
	}
	for i, m := range s.Mocks {
		if m.URL == "" {
			return fmt.Errorf("mocks[%d].url is required", i)
		}
	}
	return nil
}

func (s *Scenario) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// RequestBody returns the raw request payload, or nil when there is none.
func (s *Scenario) RequestBody() ([]byte, error) {
	if s.Request.BodyFile != "" {
		return os.ReadFile(s.resolve(s.Request.BodyFile))
	}
	if len(s.Request.Body) == 0 {
		return nil, nil
	}
	return s.Request.Body, nil
}

// ExpectedBody returns the expected response payload, or nil when the body
// is not asserted.
func (s *Scenario) ExpectedBody() ([]byte, error) {
	if s.Expect.BodyFile != "" {
		return os.ReadFile(s.resolve(s.Expect.BodyFile))
	}
	if len(s.Expect.Body) == 0 {
		return nil, nil
	}
	return s.Expect.Body, nil
}
