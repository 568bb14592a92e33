// Package response owns the JSON envelope every endpoint answers with:
//
//	{"status": 409, "message": "invalid status transition", "errors": {"kind": "InvalidTransition"}}
//
// Successful calls fill data; failures fill message and, when the client
// needs to branch on the cause, errors.kind.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/feastly/feastly/pkg/orm"
)

type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Write sends body with status. The envelope's own Status is filled in
// when left zero.
func Write(w http.ResponseWriter, status int, body Envelope) {
	if body.Status == 0 {
		body.Status = status
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Details builds the errors object for a failure of the given kind. extra
// is read as key/value pairs; a trailing key without a value is dropped.
func Details(kind string, extra ...string) map[string]string {
	d := make(map[string]string, 1+len(extra)/2)
	d["kind"] = kind
	for i := 0; i+1 < len(extra); i += 2 {
		d[extra[i]] = extra[i+1]
	}
	return d
}

func Success(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	Write(w, http.StatusCreated, Envelope{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Message: message})
}

// Fail sends message with arbitrary details under errors.
func Fail(w http.ResponseWriter, status int, message string, details any) {
	Write(w, status, Envelope{Message: message, Errors: details})
}

// Problem is Fail with a kind-tagged errors object.
func Problem(w http.ResponseWriter, status int, message, kind string, extra ...string) {
	Fail(w, status, message, Details(kind, extra...))
}

func Paginated(w http.ResponseWriter, items any, p orm.Pagination) {
	Success(w, Page{Items: items, Pagination: p})
}

// Page is the data of a paginated listing.
type Page struct {
	Items      any            `json:"items"`
	Pagination orm.Pagination `json:"pagination"`
}

func NotFound(w http.ResponseWriter) {
	Problem(w, http.StatusNotFound, "Not found", "NotFound")
}

func MethodNotAllowed(w http.ResponseWriter) {
	Problem(w, http.StatusMethodNotAllowed, "Method not allowed", "MethodNotAllowed")
}
