package testkit

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Wildcard in an expected body matches any non-null value.
const Wildcard = "*"

// AssertSubset fails t when actual does not contain everything in expected.
func AssertSubset(t *testing.T, name string, expected, actual []byte) bool {
	t.Helper()

	var exp, act interface{}
	if err := json.Unmarshal(expected, &exp); err != nil {
		t.Errorf("[%s] expected body is not JSON: %v", name, err)
		return false
	}
	if !assert.NoError(t, json.Unmarshal(actual, &act),
		"[%s] response is not JSON\nbody: %s", name, actual) {
		return false
	}

	diffs := Diff("", exp, act)
	return assert.Empty(t, diffs, "[%s] response body mismatch\nbody: %s", name, actual)
}

// Diff lists where actual departs from expected. Objects are compared by the
// expected keys only; arrays must have the same length.
func Diff(path string, expected, actual interface{}) []string {
	if s, ok := expected.(string); ok && s == Wildcard {
		if actual == nil {
			return []string{fmt.Sprintf("%s: expected a value, got null", label(path))}
		}
		return nil
	}

	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return []string{fmt.Sprintf("%s: expected object, got %T", label(path), actual)}
		}
		var diffs []string
		for k, ev := range exp {
			p := path + "." + k
			av, exists := act[k]
			if !exists {
				diffs = append(diffs, fmt.Sprintf("%s: missing", label(p)))
				continue
			}
			diffs = append(diffs, Diff(p, ev, av)...)
		}
		return diffs
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return []string{fmt.Sprintf("%s: expected array, got %T", label(path), actual)}
		}
		if len(exp) != len(act) {
			return []string{fmt.Sprintf("%s: expected %d items, got %d", label(path), len(exp), len(act))}
		}
		var diffs []string
		for i := range exp {
			diffs = append(diffs, Diff(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i])...)
		}
		return diffs
	default:
		if !assert.ObjectsAreEqual(expected, actual) {
			return []string{fmt.Sprintf("%s: want %v, got %v", label(path), expected, actual)}
		}
		return nil
	}
}

// Lookup walks a dotted path ("data.items.0.id") through decoded JSON.
func Lookup(doc interface{}, path string) (interface{}, bool) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]interface{}:
			next, ok := v[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []interface{}:
			var i int
			if _, err := fmt.Sscanf(part, "%d", &i); err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func label(path string) string {
	if path == "" {
		return "root"
	}
	return strings.TrimPrefix(path, ".")
}
