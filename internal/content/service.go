// Package content serves gallery items and reviews from the backend through a
// short-lived cache. Writes go straight to the backend and invalidate the
// cached list.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/cache"
	"github.com/tomhasit/tomhasit-web/internal/metrics"
)

const (
	GalleryKey = "gallery:all"
	ReviewsKey = "reviews:all"

	DefaultTTL = 5 * time.Minute
)

// Backend is the subset of backend.Client used for content.
type Backend interface {
	ListGallery(ctx context.Context) ([]backend.GalleryItem, error)
	CreateGallery(ctx context.Context, accessToken string, in backend.GalleryInput) error
	UpdateGallery(ctx context.Context, accessToken, id string, in backend.GalleryInput) error
	DeleteGallery(ctx context.Context, accessToken, id string) error
	ListReviews(ctx context.Context) ([]backend.Review, error)
	CreateReview(ctx context.Context, in backend.CreateReviewRequest) error
	DeleteReview(ctx context.Context, accessToken, id string) error
}

// Service is the cached content layer.
type Service struct {
	backend Backend
	cache   cache.Cache
	ttl     time.Duration
}

// NewService creates a Service. A nil cache disables caching.
func NewService(b Backend, c cache.Cache, ttl time.Duration) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{backend: b, cache: c, ttl: ttl}
}

// ErrNotFound is returned by the single-item lookups.
var ErrNotFound = errors.New("content not found")

func (s *Service) Gallery(ctx context.Context) ([]backend.GalleryItem, error) {
	return cached(ctx, s, GalleryKey, s.backend.ListGallery)
}

// GalleryItem finds one gallery item by id in the cached list.
func (s *Service) GalleryItem(ctx context.Context, id string) (*backend.GalleryItem, error) {
	items, err := s.Gallery(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) CreateGallery(ctx context.Context, token string, in backend.GalleryInput) error {
	defer s.invalidate(ctx, GalleryKey)
	return s.backend.CreateGallery(ctx, token, in)
}

func (s *Service) UpdateGallery(ctx context.Context, token, id string, in backend.GalleryInput) error {
	defer s.invalidate(ctx, GalleryKey)
	return s.backend.UpdateGallery(ctx, token, id, in)
}

func (s *Service) DeleteGallery(ctx context.Context, token, id string) error {
	defer s.invalidate(ctx, GalleryKey)
	return s.backend.DeleteGallery(ctx, token, id)
}

func (s *Service) Reviews(ctx context.Context) ([]backend.Review, error) {
	return cached(ctx, s, ReviewsKey, s.backend.ListReviews)
}

// Review finds one review by id in the cached list.
func (s *Service) Review(ctx context.Context, id string) (*backend.Review, error) {
	items, err := s.Reviews(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) CreateReview(ctx context.Context, in backend.CreateReviewRequest) error {
	defer s.invalidate(ctx, ReviewsKey)
	return s.backend.CreateReview(ctx, in)
}

func (s *Service) DeleteReview(ctx context.Context, token, id string) error {
	defer s.invalidate(ctx, ReviewsKey)
	return s.backend.DeleteReview(ctx, token, id)
}

// cached returns the list stored under key, fetching and storing it on a
// miss. Cache errors are logged and bypassed.
func cached[T any](ctx context.Context, s *Service, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var items []T
		if jerr := json.Unmarshal(raw, &items); jerr == nil {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return items, nil
		}
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		log.Ctx(ctx).Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case errors.Is(err, cache.ErrMiss):
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(items); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return items, nil
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
}
