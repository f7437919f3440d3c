package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/content"
)

const (
	homeGalleryPreview = 6
	homeTestimonials   = 6
)

// HomePage is the template data for the public landing page.
type HomePage struct {
	BasePage
	Gallery []backend.GalleryItem
	Reviews []backend.Review
	// LoadError is shown in place of content the backend could not supply.
	LoadError string
	// Form and Error feed the contact section's story form.
	Form  StoryForm
	Error string
}

// GalleryPage is the template data for the public gallery.
type GalleryPage struct {
	BasePage
	Items     []backend.GalleryItem
	LoadError string
}

// StoryForm holds the "Got Dial Tone" submission.
type StoryForm struct {
	Name        string `validate:"required,max=120"`
	Email       string `validate:"required,email"`
	Description string `validate:"required,max=5000"`
}

// StoryPage is the template data for the "Got Dial Tone" page.
type StoryPage struct {
	BasePage
	Form  StoryForm
	Error string
}

// SiteHandler serves the public marketing pages.
type SiteHandler struct {
	content  *content.Service
	flow     *auth.Flow
	validate *validator.Validate
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(c *content.Service, flow *auth.Flow) *SiteHandler {
	return &SiteHandler{content: c, flow: flow, validate: validator.New()}
}

// Home serves GET /.
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := HomePage{BasePage: newBasePage(r, h.flow, "Providing Dial Tone")}

	gallery, err := h.content.Gallery(r.Context())
	if err != nil {
		logBackendError(r, "load gallery", err)
		data.LoadError = "The gallery is unavailable right now."
	}
	if len(gallery) > homeGalleryPreview {
		gallery = gallery[:homeGalleryPreview]
	}
	data.Gallery = gallery

	reviews, err := h.content.Reviews(r.Context())
	if err != nil {
		logBackendError(r, "load reviews", err)
	}
	if len(reviews) > homeTestimonials {
		reviews = reviews[:homeTestimonials]
	}
	data.Reviews = reviews

	render(w, "home.html", data)
}

// Gallery serves GET /gallery.
func (h *SiteHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	data := GalleryPage{BasePage: newBasePage(r, h.flow, "Gallery")}
	items, err := h.content.Gallery(r.Context())
	if err != nil {
		logBackendError(r, "load gallery", err)
		data.LoadError = "The gallery is unavailable right now."
	}
	data.Items = items
	render(w, "gallery.html", data)
}

// StoryForm serves GET /got-dial-tone.
func (h *SiteHandler) StoryForm(w http.ResponseWriter, r *http.Request) {
	render(w, "got-dial-tone.html", StoryPage{BasePage: newBasePage(r, h.flow, "Got Dial Tone")})
}

// SubmitStory handles POST /got-dial-tone.
func (h *SiteHandler) SubmitStory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := StoryForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	page := StoryPage{BasePage: newBasePage(r, nil, "Got Dial Tone"), Form: form}

	if err := h.validate.Struct(form); err != nil {
		page.Error = "Please enter your name, a valid email and your story."
		h.renderStory(w, r, http.StatusUnprocessableEntity, page)
		return
	}

	err := h.content.CreateReview(r.Context(), backend.CreateReviewRequest{
		FullName: form.Name,
		Email:    form.Email,
		Comment:  form.Description,
	})
	if err != nil {
		logBackendError(r, "submit story", err)
		page.Error = "We couldn't send your story. Please try again."
		h.renderStory(w, r, http.StatusBadGateway, page)
		return
	}

	h.flow.Flash(r.Context(), "Thank you! Your story has been shared.")
	redirect(w, r, "/got-dial-tone")
}

// renderStory re-renders the form with an error. HTMX only swaps 2xx
// responses, so fragment requests always get 200.
func (h *SiteHandler) renderStory(w http.ResponseWriter, r *http.Request, status int, page StoryPage) {
	if isHTMX(r) {
		renderPageFragment(w, "got-dial-tone.html", "story_form", page)
		return
	}
	renderStatus(w, status, "got-dial-tone.html", page)
}
