package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ignite/leadops/internal/pkg/logger"
)

// Machine-readable error codes carried next to the human message.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeUnprocessable  = "unprocessable"
	CodeTooLarge       = "too_large"
	CodeInternal       = "internal"
)

// ErrorResponse is the error envelope for every API error. Error is safe to
// show to end users.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes data as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httputil: JSON encode failed", "error", err)
	}
}

func OK(w http.ResponseWriter, data any)      { JSON(w, http.StatusOK, data) }
func Created(w http.ResponseWriter, data any) { JSON(w, http.StatusCreated, data) }

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, CodeInvalidRequest, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, CodeNotFound, message)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, CodeConflict, message)
}

// Unprocessable writes a 422 for input that was well-formed but unusable,
// such as a recipient file without an email column.
func Unprocessable(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnprocessableEntity, CodeUnprocessable, message)
}

func TooLarge(w http.ResponseWriter, limit int64) {
	Error(w, http.StatusRequestEntityTooLarge, CodeTooLarge,
		"upload exceeds "+strconv.FormatInt(limit, 10)+" bytes")
}

// InternalError logs err and answers with a generic 500 so internals never
// reach the client.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("httputil: internal error", "error", err)
	Error(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}

// Decode reads a JSON body into dst. On failure it writes a 400 and
// returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// QueryInt returns the named query parameter as an int, or def when it is
// missing or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
