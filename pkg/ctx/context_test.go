package ctx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	appctx "github.com/feastly/feastly/pkg/ctx"
	"github.com/feastly/feastly/pkg/middleware"
	"github.com/feastly/feastly/pkg/orm"
)

type placeInput struct {
	Items []struct {
		Food     string `json:"food"     validate:"required"`
		Quantity int    `json:"quantity" validate:"required,gte=1"`
	} `json:"items" validate:"required,dive"`
}

func serve(req *http.Request, h appctx.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	return rec
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Success(map[string]any{"id": "o1"})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"data":{"id":"o1"}}`, rec.Body.String())
}

func TestBindJSONValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[{"food":"f1","quantity":2}]}`))

	rec := serve(req, func(c *appctx.Context) {
		var in placeInput
		if !c.BindJSON(&in) {
			return
		}
		assert.Equal(t, 2, in.Items[0].Quantity)
		c.Created(nil)
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestBindJSONValidationFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[{"food":"f1","quantity":0}]}`))

	rec := serve(req, func(c *appctx.Context) {
		var in placeInput
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "items.0.quantity")
}

func TestBindJSONMalformed(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":`)), func(c *appctx.Context) {
		var in placeInput
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentityFromAuthContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: "u1", Role: "admin"}))

	serve(req, func(c *appctx.Context) {
		assert.Equal(t, "u1", c.UserID())
		assert.Equal(t, "admin", c.Identity().Role)
	})
}

func TestQueryIntAndPaginated(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/?page=2&limit=x", nil), func(c *appctx.Context) {
		assert.Equal(t, 2, c.QueryInt("page", 1))
		assert.Equal(t, 20, c.QueryInt("limit", 20))
		c.Paginated([]string{"a"}, orm.NewPagination(2, 20, 21))
	})
	assert.JSONEq(t,
		`{"status":200,"data":{"items":["a"],"pagination":{"page":2,"limit":20,"total":21,"totalPages":2}}}`,
		rec.Body.String())
}

func TestNotFound(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.NotFound("Order not found")
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
