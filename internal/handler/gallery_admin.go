package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/content"
)

// maxImageSize bounds a single gallery upload.
const maxImageSize = 10 << 20

var errNotImage = errors.New("Please choose an image file")

// GalleryForm is the template data for the add/edit modal.
type GalleryForm struct {
	Item   *backend.GalleryItem // nil when adding
	Title  string
	Action string
	Method string // "post" or "put"
	Error  string
}

// GalleryAdminPage is the template data for the dashboard gallery list.
type GalleryAdminPage struct {
	BasePage
	Items      []backend.GalleryItem
	Pagination Pagination
	Modal      *GalleryForm // rendered inline for non-HTMX add/edit
	LoadError  string
}

// ConfirmDeleteData is the template data for the confirm_delete modal.
type ConfirmDeleteData struct {
	Name      string
	DeleteURL string
	Target    string
}

// GalleryAdminHandler manages gallery items from the dashboard.
type GalleryAdminHandler struct {
	content  *content.Service
	flow     *auth.Flow
	validate *validator.Validate
}

// NewGalleryAdminHandler creates a new GalleryAdminHandler.
func NewGalleryAdminHandler(c *content.Service, flow *auth.Flow) *GalleryAdminHandler {
	return &GalleryAdminHandler{content: c, flow: flow, validate: validator.New()}
}

func (h *GalleryAdminHandler) list(r *http.Request) GalleryAdminPage {
	data := GalleryAdminPage{BasePage: newBasePage(r, h.flow, "Gallery")}
	items, err := h.content.Gallery(r.Context())
	if err != nil {
		logBackendError(r, "load gallery", err)
		data.LoadError = "The gallery could not be loaded."
	}
	data.Pagination = paginate(len(items), pageParam(r))
	data.Pagination.BaseURL = "/dashboard/gallery"
	data.Pagination.Target = "#gallery-table"
	data.Items = pageItems(items, data.Pagination)
	return data
}

// Index serves GET /dashboard/gallery. HTMX page changes get only the table.
func (h *GalleryAdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	data := h.list(r)
	if isHTMX(r) {
		renderPageFragment(w, "dashboard/gallery.html", "gallery_table", data)
		return
	}
	render(w, "dashboard/gallery.html", data)
}

func (h *GalleryAdminHandler) showForm(w http.ResponseWriter, r *http.Request, form GalleryForm) {
	if isHTMX(r) {
		renderFragment(w, "gallery_modal", form)
		return
	}
	data := h.list(r)
	data.Modal = &form
	status := http.StatusOK
	if form.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	renderStatus(w, status, "dashboard/gallery.html", data)
}

// New serves GET /dashboard/gallery/new.
func (h *GalleryAdminHandler) New(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, GalleryForm{Action: "/dashboard/gallery", Method: "post"})
}

// Create handles POST /dashboard/gallery.
func (h *GalleryAdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	form := GalleryForm{Action: "/dashboard/gallery", Method: "post"}
	in, err := h.readInput(w, r, true)
	form.Title = in.Title
	if err != nil {
		form.Error = err.Error()
		h.showForm(w, r, form)
		return
	}

	if err := h.content.CreateGallery(r.Context(), accessToken(r), in); err != nil {
		logBackendError(r, "create gallery item", err)
		form.Error = backendMessage(err, "Failed to upload image. Please try again.")
		h.showForm(w, r, form)
		return
	}
	h.flow.Flash(r.Context(), "Image added to the gallery.")
	redirect(w, r, "/dashboard/gallery")
}

// Edit serves GET /dashboard/gallery/{id}/edit.
func (h *GalleryAdminHandler) Edit(w http.ResponseWriter, r *http.Request) {
	item, ok := h.item(w, r)
	if !ok {
		return
	}
	h.showForm(w, r, GalleryForm{
		Item:   item,
		Title:  item.Title,
		Action: "/dashboard/gallery/" + item.ID,
		Method: "put",
	})
}

// Update handles PUT or POST /dashboard/gallery/{id}. The image is optional.
func (h *GalleryAdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.item(w, r)
	if !ok {
		return
	}
	form := GalleryForm{Item: item, Action: "/dashboard/gallery/" + item.ID, Method: "put"}
	in, err := h.readInput(w, r, false)
	form.Title = in.Title
	if err != nil {
		form.Error = err.Error()
		h.showForm(w, r, form)
		return
	}

	if err := h.content.UpdateGallery(r.Context(), accessToken(r), item.ID, in); err != nil {
		logBackendError(r, "update gallery item", err)
		form.Error = backendMessage(err, "Failed to update image. Please try again.")
		h.showForm(w, r, form)
		return
	}
	h.flow.Flash(r.Context(), "Gallery item updated.")
	redirect(w, r, "/dashboard/gallery")
}

// ConfirmDelete renders the delete confirmation modal for a gallery item.
func (h *GalleryAdminHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.item(w, r)
	if !ok {
		return
	}
	renderFragment(w, "confirm_delete", ConfirmDeleteData{
		Name:      item.Title,
		DeleteURL: "/dashboard/gallery/" + item.ID,
		Target:    "#gallery-" + item.ID,
	})
}

// Delete handles DELETE /dashboard/gallery/{id}. HTMX swaps the row out with
// the empty body.
func (h *GalleryAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.content.DeleteGallery(r.Context(), accessToken(r), id); err != nil {
		logBackendError(r, "delete gallery item", err)
		http.Error(w, backendMessage(err, "delete failed"), http.StatusBadGateway)
		return
	}
	if !isHTMX(r) {
		h.flow.Flash(r.Context(), "Gallery item deleted.")
		redirect(w, r, "/dashboard/gallery")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *GalleryAdminHandler) item(w http.ResponseWriter, r *http.Request) (*backend.GalleryItem, bool) {
	item, err := h.content.GalleryItem(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, content.ErrNotFound):
		http.NotFound(w, r)
		return nil, false
	case err != nil:
		logBackendError(r, "load gallery item", err)
		http.Error(w, "could not load gallery item", http.StatusBadGateway)
		return nil, false
	}
	return item, true
}

// readInput parses the multipart form. The returned input carries the title
// even when err is non-nil so the form can be re-rendered.
func (h *GalleryAdminHandler) readInput(w http.ResponseWriter, r *http.Request, requireImage bool) (backend.GalleryInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return backend.GalleryInput{}, errors.New("Image must be 10MB or smaller")
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return backend.GalleryInput{}, errors.New("Could not read the upload")
		}
	}
	in := backend.GalleryInput{Title: strings.TrimSpace(r.FormValue("title"))}
	if err := h.validate.Struct(in); err != nil {
		return in, errors.New("Title is required")
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart):
		if requireImage {
			return in, errNotImage
		}
		return in, nil
	case err != nil:
		return in, errors.New("Could not read the upload")
	}
	defer file.Close()

	if header.Size > maxImageSize {
		return in, errors.New("Image must be 10MB or smaller")
	}
	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return in, errors.New("Could not read the upload")
	}
	if len(data) > maxImageSize {
		return in, errors.New("Image must be 10MB or smaller")
	}
	ctype := http.DetectContentType(data)
	if !strings.HasPrefix(ctype, "image/") {
		return in, errNotImage
	}
	in.Image = &backend.Upload{Filename: header.Filename, ContentType: ctype, Data: data}
	return in, nil
}

// accessToken returns the bearer for backend writes from the request session.
func accessToken(r *http.Request) string {
	if rec := auth.SessionFromContext(r.Context()); rec != nil {
		return rec.AccessToken
	}
	return ""
}
