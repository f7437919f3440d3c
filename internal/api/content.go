package api

import (
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/content"
)

type galleryList struct {
	Data []backend.GalleryItem `json:"data"`
}

type reviewList struct {
	Data []backend.Review `json:"data"`
}

func galleryHandler(c *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := c.Gallery(r.Context())
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("api: load gallery")
			writeError(w, http.StatusBadGateway, "gallery unavailable", "backend_error")
			return
		}
		if items == nil {
			items = []backend.GalleryItem{}
		}
		writeJSON(w, http.StatusOK, galleryList{Data: items})
	}
}

func reviewsHandler(c *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviews, err := c.Reviews(r.Context())
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("api: load reviews")
			writeError(w, http.StatusBadGateway, "reviews unavailable", "backend_error")
			return
		}
		// Submitter emails stay private.
		public := make([]backend.Review, len(reviews))
		for i, rv := range reviews {
			rv.Email = ""
			public[i] = rv
		}
		writeJSON(w, http.StatusOK, reviewList{Data: public})
	}
}
