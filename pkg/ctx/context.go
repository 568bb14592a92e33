// Package ctx gives handlers a single *Context instead of the
// (http.ResponseWriter, *http.Request) pair:
//
//	func (c *OrderController) Show(x *ctx.Context) {
//	    order, err := c.orders.Get(x.Context(), x.Identity(), x.Param("id"))
//	    ...
//	    x.Success(order)
//	}
//
//	orders.Get("/{id}", "orders.show", ctx.Wrap(c.Show))
package ctx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/feastly/feastly/pkg/bind"
	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/middleware"
	"github.com/feastly/feastly/pkg/orm"
	"github.com/feastly/feastly/pkg/response"
	"github.com/feastly/feastly/pkg/validate"
)

type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc to http.HandlerFunc for the router.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// Param returns a path parameter ("/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// QueryInt returns the query value as an int, or def when absent or malformed.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Body reads the raw request body. It can only be read once.
func (c *Context) Body() ([]byte, error) {
	return io.ReadAll(c.R.Body)
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Logger returns the request-scoped logger.
func (c *Context) Logger() *slog.Logger { return logger.WithCtx(c.R.Context()) }

// Identity is the caller attached by middleware.Auth; the zero value on
// public routes.
func (c *Context) Identity() middleware.Identity {
	id, _ := middleware.IdentityFromCtx(c.R.Context())
	return id
}

func (c *Context) UserID() string { return c.Identity().UserID }

// BindJSON decodes and validates the body into dest. On failure it has
// already written a 400 or 422 and returns false.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// JSON writes v as-is with the given status.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	c.status = code
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

// Success sends {"status":200,"data":...}.
func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, response.Envelope{Status: http.StatusOK, Data: data})
}

func (c *Context) Created(data any) {
	c.JSON(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Data: data})
}

func (c *Context) Error(code int, message string) {
	c.JSON(code, response.Envelope{Status: code, Message: message})
}

// Fail sends an error envelope with structured details under "errors".
func (c *Context) Fail(code int, message string, details any) {
	c.JSON(code, response.Envelope{Status: code, Message: message, Errors: details})
}

// Problem sends an error envelope tagged with errors.kind; extra adds
// key/value pairs next to the kind.
func (c *Context) Problem(code int, message, kind string, extra ...string) {
	c.Fail(code, message, response.Details(kind, extra...))
}

func (c *Context) ValidationError(errs map[string]string) {
	c.Fail(http.StatusUnprocessableEntity, "Validation failed", errs)
}

func (c *Context) Paginated(items any, p orm.Pagination) {
	c.Success(response.Page{Items: items, Pagination: p})
}

func (c *Context) NotFound(message ...string) {
	msg := "Not found"
	if len(message) > 0 {
		msg = message[0]
	}
	c.Error(http.StatusNotFound, msg)
}

// WrittenStatus is the status already sent, or 0.
func (c *Context) WrittenStatus() int { return c.status }
