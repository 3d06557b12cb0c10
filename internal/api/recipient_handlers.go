package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/leadops/internal/domain"
	"github.com/ignite/leadops/internal/pkg/httputil"
	"github.com/ignite/leadops/internal/recipients"
	"github.com/ignite/leadops/internal/service/recipientlist"
)

const (
	// OrganizationHeader scopes every recipient list request.
	OrganizationHeader = "X-Organization-ID"
	defaultOrgID       = "default"
)

// RecipientHandlers exposes recipient parsing and recipient lists over HTTP.
type RecipientHandlers struct {
	svc            *recipientlist.Service
	maxUploadBytes int64
}

// NewRecipientHandlers creates handlers backed by svc. Request bodies larger
// than maxUploadBytes are rejected.
func NewRecipientHandlers(svc *recipientlist.Service, maxUploadBytes int64) *RecipientHandlers {
	return &RecipientHandlers{svc: svc, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts the recipient routes on r.
func (h *RecipientHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/recipients/parse", h.HandleParse)

	r.Route("/recipient-lists", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/raw", h.HandleRaw)
		r.Post("/{id}/preview", h.HandlePreview)
	})
}

type uploadRequest struct {
	Name     string `json:"name"`
	Source   string `json:"source"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type parseResponse struct {
	Recipients []recipients.Recipient `json:"recipients"`
	Skipped    []recipients.RowError  `json:"skipped"`
	Count      int                    `json:"count"`
	Delimiter  string                 `json:"delimiter"`
}

// HandleParse parses pasted text or an uploaded file without storing it.
// POST /api/recipients/parse
func (h *RecipientHandlers) HandleParse(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Preview(req.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	skipped := res.Skipped
	if skipped == nil {
		skipped = []recipients.RowError{}
	}
	httputil.OK(w, parseResponse{
		Recipients: res.Recipients,
		Skipped:    skipped,
		Count:      len(res.Recipients),
		Delimiter:  res.Delimiter,
	})
}

// HandleCreate imports a recipient list.
// POST /api/recipient-lists
func (h *RecipientHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Import(r.Context(), recipientlist.ImportRequest{
		OrganizationID: orgID(r),
		Name:           req.Name,
		Source:         domain.ListSource(req.Source),
		Filename:       req.Filename,
		Content:        req.Content,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	summary := list.Summary()
	httputil.Created(w, map[string]any{
		"list":    summary,
		"skipped": list.Skipped,
	})
}

// HandleList returns list summaries.
// GET /api/recipient-lists?search=&limit=&offset=
func (h *RecipientHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	lists, total, err := h.svc.List(r.Context(), orgID(r), recipientlist.ListFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  httputil.QueryInt(r, "limit", 0),
		Offset: httputil.QueryInt(r, "offset", 0),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if lists == nil {
		lists = []domain.RecipientList{}
	}
	httputil.OK(w, map[string]any{
		"lists": lists,
		"total": total,
	})
}

// HandleGet returns a list with its recipients.
// GET /api/recipient-lists/{id}
func (h *RecipientHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Get(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, list)
}

// HandleDelete removes a list.
// DELETE /api/recipient-lists/{id}
func (h *RecipientHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), orgID(r), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// HandleRaw streams back the archived upload.
// GET /api/recipient-lists/{id}/raw
func (h *RecipientHandlers) HandleRaw(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.RawUpload(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandlePreview renders merge fields for the first recipients of a list.
// POST /api/recipient-lists/{id}/preview
func (h *RecipientHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req recipientlist.RenderRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	msgs, err := h.svc.Render(r.Context(), orgID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"messages": msgs})
}

// readUpload accepts either a JSON body or a multipart form with a "file"
// part. It writes the error response itself and returns false on failure.
func (h *RecipientHandlers) readUpload(w http.ResponseWriter, r *http.Request) (uploadRequest, bool) {
	var req uploadRequest
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if !httputil.Decode(w, r, &req) {
			return req, false
		}
		return req, true
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		respondUploadError(w, err)
		return req, false
	}
	req.Name = r.FormValue("name")
	req.Source = r.FormValue("source")

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file is required")
		return req, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondUploadError(w, err)
		return req, false
	}
	req.Filename = header.Filename
	req.Content = string(data)
	return req, true
}

func respondUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.TooLarge(w, tooLarge.Limit)
		return
	}
	httputil.BadRequest(w, "invalid upload: "+err.Error())
}

func orgID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(OrganizationHeader)); id != "" {
		return id
	}
	return defaultOrgID
}
