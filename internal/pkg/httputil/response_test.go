package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSON_SetsHeadersAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]int{"count": 2})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		body   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "name is required") },
			http.StatusBadRequest, `{"error":"name is required","code":"invalid_request"}`},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "gone") },
			http.StatusNotFound, `{"error":"gone","code":"not_found"}`},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "busy") },
			http.StatusConflict, `{"error":"busy","code":"conflict"}`},
		{"unprocessable", func(w http.ResponseWriter) { Unprocessable(w, "File is empty or has no data rows") },
			http.StatusUnprocessableEntity, `{"error":"File is empty or has no data rows","code":"unprocessable"}`},
		{"too large", func(w http.ResponseWriter) { TooLarge(w, 1024) },
			http.StatusRequestEntityTooLarge, `{"error":"upload exceeds 1024 bytes","code":"too_large"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestInternalError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("pq: relation recipient_lists does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "recipient_lists")
	assert.JSONEq(t, `{"error":"internal server error","code":"internal"}`, rec.Body.String())
}

func TestDecode_RejectsBadJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))

	var dst map[string]any
	ok := Decode(rec, req, &dst)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&offset=abc", nil)
	assert.Equal(t, 25, QueryInt(req, "limit", 50))
	assert.Equal(t, 0, QueryInt(req, "offset", 0))
	assert.Equal(t, 7, QueryInt(req, "missing", 7))
}
