package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jeremyjsx/blogdesk/internal/blogs"
	"github.com/jeremyjsx/blogdesk/internal/form"
)

const (
	// maxUploadBody leaves room for multipart framing around a maximum-size image.
	maxUploadBody = form.MaxImageSize + 64<<10
	// maxJSONBody fits a maximum-size image as base64 plus the text fields.
	maxJSONBody = maxUploadBody*4/3 + 64<<10
)

type BlogsHandler struct {
	svc    *blogs.Service
	logger *slog.Logger
}

func NewBlogsHandler(svc *blogs.Service, logger *slog.Logger) *BlogsHandler {
	return &BlogsHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register mounts the dashboard and blog routes on mux.
func (h *BlogsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", RedirectToDashboard)
	mux.HandleFunc("GET /dashboard", h.Dashboard())
	mux.HandleFunc("GET /blogs", h.List())
	mux.HandleFunc("DELETE /blogs/{id}", h.Delete())
	mux.HandleFunc("POST /blogs/new", h.Create())
	mux.HandleFunc("GET /blogs/edit/{id}", h.Edit())
	mux.HandleFunc("PUT /blogs/edit/{id}", h.Update())
	mux.HandleFunc("PUT /blogs/edit/{id}/image", h.ReplaceImage())
}

func RedirectToDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// BlogRequest carries the fields a client touched. Absent fields are left
// alone, which is what lets an edit become clean again. An empty image
// removes the current one.
type BlogRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Status      *string `json:"status"`
	Author      *string `json:"author"`
	PublishDate *string `json:"publishDate"`
	Image       *string `json:"image"`
}

func (req BlogRequest) apply(ctrl *form.Controller) error {
	fields := []struct {
		field form.Field
		value *string
	}{
		{form.Title, req.Title},
		{form.Description, req.Description},
		{form.Category, req.Category},
		{form.Status, req.Status},
		{form.Author, req.Author},
		{form.PublishDate, req.PublishDate},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := ctrl.Set(f.field, *f.value); err != nil {
			return err
		}
	}
	switch {
	case req.Image == nil:
	case *req.Image == "":
		ctrl.ClearImage()
	case *req.Image != ctrl.Values().Image:
		return ctrl.ReplaceImageDataURL(*req.Image)
	}
	return nil
}

// decodeBlogRequest reads a size-capped JSON body. It writes the error
// response itself and reports false on failure.
func decodeBlogRequest(w http.ResponseWriter, r *http.Request) (BlogRequest, bool) {
	var req BlogRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return req, false
		}
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return req, false
	}
	return req, true
}

func (h *BlogsHandler) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := h.svc.Dashboard(r.Context())
		if err != nil {
			h.internalError(w, r, "dashboard failed", err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func (h *BlogsHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		criteria := blogs.Criteria{
			Search:   q.Get("search"),
			Category: blogs.Category(q.Get("category")),
			Status:   blogs.Status(q.Get("status")),
		}

		errs := make(map[string]string)
		if criteria.Category != "" && !criteria.Category.Valid() {
			errs["category"] = "must be one of Tech, Business, Design"
		}
		if criteria.Status != "" && !criteria.Status.Valid() {
			errs["status"] = "must be one of Draft, Published"
		}
		page := 1
		if s := q.Get("page"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				errs["page"] = "must be a positive integer"
			}
			page = n
		}
		if len(errs) > 0 {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid query", errs)
			return
		}

		result, err := h.svc.List(r.Context(), criteria, page)
		if err != nil {
			h.internalError(w, r, "list blogs failed", err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *BlogsHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBlogRequest(w, r)
		if !ok {
			return
		}

		ctrl := form.NewCreate()
		if err := req.apply(ctrl); err != nil {
			h.formError(w, r, ctrl, err)
			return
		}
		if !ctrl.CanSubmit() {
			writeError(w, r, http.StatusBadRequest, "NO_CHANGES", "nothing to save", nil)
			return
		}

		blog, err := h.svc.Create(r.Context(), ctrl.Values())
		if err != nil {
			h.serviceError(w, r, "create blog failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, blog)
	}
}

// Edit loads the record an edit form starts from.
func (h *BlogsHandler) Edit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blog, err := h.svc.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			h.serviceError(w, r, "get blog failed", err)
			return
		}
		writeJSON(w, http.StatusOK, blog)
	}
}

func (h *BlogsHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBlogRequest(w, r)
		if !ok {
			return
		}

		original, err := h.svc.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			h.serviceError(w, r, "get blog failed", err)
			return
		}
		ctrl := form.NewEdit(original)
		if err := req.apply(ctrl); err != nil {
			h.formError(w, r, ctrl, err)
			return
		}
		h.submitEdit(w, r, ctrl)
	}
}

func (h *BlogsHandler) ReplaceImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		original, err := h.svc.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			h.serviceError(w, r, "get blog failed", err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		file, header, err := r.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Image size must be less than 1MB",
					map[string]string{"image": "Image size must be less than 1MB"})
				return
			}
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "no image file provided", nil)
			return
		}
		defer file.Close()

		contentType, data, err := form.ReadImage(file, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "could not read image", nil)
			return
		}

		ctrl := form.NewEdit(original)
		if err := ctrl.ReplaceImage(contentType, data); err != nil {
			h.formError(w, r, ctrl, err)
			return
		}
		h.submitEdit(w, r, ctrl)
	}
}

func (h *BlogsHandler) submitEdit(w http.ResponseWriter, r *http.Request, ctrl *form.Controller) {
	if !ctrl.CanSubmit() {
		writeError(w, r, http.StatusBadRequest, "NO_CHANGES", "no changes to save", nil)
		return
	}
	blog, err := h.svc.Update(r.Context(), ctrl.Values())
	if err != nil {
		h.serviceError(w, r, "update blog failed", err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (h *BlogsHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
			h.serviceError(w, r, "delete blog failed", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *BlogsHandler) formError(w http.ResponseWriter, r *http.Request, ctrl *form.Controller, err error) {
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", ctrl.Message(),
			map[string]string{verr.Field: verr.Message})
		return
	}
	if errors.Is(err, form.ErrUnknownField) {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	h.internalError(w, r, "form update failed", err)
}

func (h *BlogsHandler) serviceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *blogs.ValidationError
	switch {
	case errors.Is(err, blogs.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "blog not found",
			map[string]string{"back": "/blogs"})
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", verr.Fields)
	default:
		h.internalError(w, r, msg, err)
	}
}

func (h *BlogsHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "path", r.URL.Path, "error", err)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
}
