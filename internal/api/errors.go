package api

import (
	"errors"
	"net/http"

	"github.com/ignite/leadops/internal/pkg/httputil"
	"github.com/ignite/leadops/internal/pkg/logger"
	"github.com/ignite/leadops/internal/recipients"
	"github.com/ignite/leadops/internal/service/recipientlist"
	"github.com/ignite/leadops/internal/storage"
)

// respondServiceError maps service and parser errors onto HTTP responses.
// Parser reasons are user-facing text and are returned verbatim; anything
// unrecognised is logged and answered with a generic 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var pe *recipients.ParseError
	switch {
	case errors.As(err, &pe):
		httputil.Unprocessable(w, pe.Reason)
	case errors.Is(err, recipientlist.ErrInvalidRequest):
		httputil.BadRequest(w, err.Error())
	case recipientlist.IsNotFound(err):
		httputil.NotFound(w, "recipient list not found")
	case errors.Is(err, recipientlist.ErrNoArchive), errors.Is(err, storage.ErrNotFound):
		httputil.NotFound(w, "raw upload not available")
	case errors.Is(err, recipientlist.ErrLocked):
		httputil.Conflict(w, "an import with this name is already running")
	default:
		logger.Error("recipient request failed", "error", err)
		httputil.InternalError(w, err)
	}
}
