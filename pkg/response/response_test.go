package response_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feastly/feastly/pkg/orm"
	"github.com/feastly/feastly/pkg/response"
)

func TestDetailsPairsExtraAndDropsDanglingKey(t *testing.T) {
	d := response.Details("PaymentInitiationFailed", "orderId", "o1", "dangling")

	assert.Equal(t, map[string]string{"kind": "PaymentInitiationFailed", "orderId": "o1"}, d)
}

func TestProblemTagsKind(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Problem(rec, http.StatusConflict, "invalid status transition", "InvalidTransition")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`{"status":409,"message":"invalid status transition","errors":{"kind":"InvalidTransition"}}`,
		rec.Body.String())
}

func TestWriteKeepsExplicitEnvelopeStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Write(rec, http.StatusOK, response.Envelope{Status: 202, Data: "queued"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":202,"data":"queued"}`, rec.Body.String())
}

func TestPaginatedShape(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Paginated(rec, []int{1, 2}, orm.NewPagination(1, 2, 3))

	assert.JSONEq(t,
		`{"status":200,"data":{"items":[1,2],"pagination":{"page":1,"limit":2,"total":3,"totalPages":2}}}`,
		rec.Body.String())
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	response.NotFound(rec)
	assert.JSONEq(t, `{"status":404,"message":"Not found","errors":{"kind":"NotFound"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	response.MethodNotAllowed(rec)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"MethodNotAllowed"`)
}
