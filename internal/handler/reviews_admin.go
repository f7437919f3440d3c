package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/content"
)

// ReviewsAdminPage is the template data for the dashboard review list.
type ReviewsAdminPage struct {
	BasePage
	Reviews    []backend.Review
	Pagination Pagination
	Selected   *backend.Review // shown in the modal for non-HTMX views
	LoadError  string
}

// ReviewsAdminHandler lists and moderates "Got Dial Tone" submissions.
type ReviewsAdminHandler struct {
	content *content.Service
	flow    *auth.Flow
}

// NewReviewsAdminHandler creates a new ReviewsAdminHandler.
func NewReviewsAdminHandler(c *content.Service, flow *auth.Flow) *ReviewsAdminHandler {
	return &ReviewsAdminHandler{content: c, flow: flow}
}

func (h *ReviewsAdminHandler) list(r *http.Request) ReviewsAdminPage {
	data := ReviewsAdminPage{BasePage: newBasePage(r, h.flow, "Got Dial Tone")}
	reviews, err := h.content.Reviews(r.Context())
	if err != nil {
		logBackendError(r, "load reviews", err)
		data.LoadError = "Reviews could not be loaded."
	}
	data.Pagination = paginate(len(reviews), pageParam(r))
	data.Pagination.BaseURL = "/dashboard/got-dial-tone"
	data.Pagination.Target = "#reviews-table"
	data.Reviews = pageItems(reviews, data.Pagination)
	return data
}

// Index serves GET /dashboard/got-dial-tone.
func (h *ReviewsAdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	data := h.list(r)
	if isHTMX(r) {
		renderPageFragment(w, "dashboard/got-dial-tone.html", "reviews_table", data)
		return
	}
	render(w, "dashboard/got-dial-tone.html", data)
}

// Show serves GET /dashboard/got-dial-tone/{id} as a modal.
func (h *ReviewsAdminHandler) Show(w http.ResponseWriter, r *http.Request) {
	review, ok := h.review(w, r)
	if !ok {
		return
	}
	if isHTMX(r) {
		renderFragment(w, "review_modal", review)
		return
	}
	data := h.list(r)
	data.Selected = review
	render(w, "dashboard/got-dial-tone.html", data)
}

// ConfirmDelete renders the delete confirmation modal for a review.
func (h *ReviewsAdminHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	review, ok := h.review(w, r)
	if !ok {
		return
	}
	renderFragment(w, "confirm_delete", ConfirmDeleteData{
		Name:      "the story from " + review.FullName,
		DeleteURL: "/dashboard/got-dial-tone/" + review.ID,
		Target:    "#review-" + review.ID,
	})
}

// Delete handles DELETE /dashboard/got-dial-tone/{id}.
func (h *ReviewsAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.content.DeleteReview(r.Context(), accessToken(r), id); err != nil {
		logBackendError(r, "delete review", err)
		http.Error(w, backendMessage(err, "delete failed"), http.StatusBadGateway)
		return
	}
	if !isHTMX(r) {
		h.flow.Flash(r.Context(), "Review deleted.")
		redirect(w, r, "/dashboard/got-dial-tone")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *ReviewsAdminHandler) review(w http.ResponseWriter, r *http.Request) (*backend.Review, bool) {
	review, err := h.content.Review(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, content.ErrNotFound):
		http.NotFound(w, r)
		return nil, false
	case err != nil:
		logBackendError(r, "load review", err)
		http.Error(w, "could not load review", http.StatusBadGateway)
		return nil, false
	}
	return review, true
}
