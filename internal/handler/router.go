package handler

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/tomhasit/tomhasit-web/internal/api"
	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/content"
	"github.com/tomhasit/tomhasit-web/internal/store"
	"github.com/tomhasit/tomhasit-web/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	Logger       zerolog.Logger
	Flow         *auth.Flow
	Sessions     *auth.Store
	AuthHandlers *auth.Handlers
	Backend      PasswordBackend
	Content      *content.Service
	VisitStore   store.VisitStoreIface
	// VisitCh receives page views for the background writer; nil disables
	// visit recording.
	VisitCh         chan<- store.Visit
	SessionLifetime time.Duration
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(deps.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	// Static assets (embedded). Use fs.Sub so the file server sees
	// css/app.css and js/htmx.min.js directly, not static/css/... paths.
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	site := NewSiteHandler(deps.Content, deps.Flow)
	account := NewAccountHandler(deps.AuthHandlers, deps.Backend, deps.Flow)
	dashboard := NewDashboardHandler(deps.Content, deps.VisitStore, deps.Flow)
	gallery := NewGalleryAdminHandler(deps.Content, deps.Flow)
	reviews := NewReviewsAdminHandler(deps.Content, deps.Flow)

	r.Group(func(r chi.Router) {
		r.Use(deps.Flow.Manager().LoadAndSave)
		r.Use(deps.Sessions.LoadAndRefresh)
		r.Use(auth.NewGuard(deps.Sessions).Handler)
		r.Use(recordVisits(deps.VisitCh))

		// Website
		r.Get("/", site.Home)
		r.Get("/gallery", site.Gallery)
		r.Get("/got-dial-tone", site.StoryForm)
		r.Post("/got-dial-tone", site.SubmitStory)

		// Sign-in and password recovery (auth-only pages)
		r.Get("/login", account.LoginForm)
		r.Post("/login", account.Login)
		r.Post("/logout", account.Logout)
		r.Get("/forgot-password", account.ForgotForm)
		r.Post("/forgot-password", account.Forgot)
		r.Get("/verify-email", account.VerifyForm)
		r.Post("/verify-email", account.Verify)
		r.Post("/verify-email/resend", account.Resend)
		r.Get("/change-password", account.ResetForm)
		r.Post("/change-password", account.Reset)

		// Dashboard (protected by the guard)
		r.Get("/dashboard", dashboard.Show)

		// NOTE: /new MUST be before /{id} routes.
		r.Get("/dashboard/gallery", gallery.Index)
		r.Get("/dashboard/gallery/new", gallery.New)
		r.Post("/dashboard/gallery", gallery.Create)
		r.Get("/dashboard/gallery/{id}/edit", gallery.Edit)
		r.Put("/dashboard/gallery/{id}", gallery.Update)
		r.Post("/dashboard/gallery/{id}", gallery.Update)
		r.Get("/dashboard/gallery/{id}/confirm-delete", gallery.ConfirmDelete)
		r.Delete("/dashboard/gallery/{id}", gallery.Delete)

		r.Get("/dashboard/got-dial-tone", reviews.Index)
		r.Get("/dashboard/got-dial-tone/{id}", reviews.Show)
		r.Get("/dashboard/got-dial-tone/{id}/confirm-delete", reviews.ConfirmDelete)
		r.Delete("/dashboard/got-dial-tone/{id}", reviews.Delete)

		r.Get("/dashboard/change-password", account.ChangePasswordForm)
		r.Post("/dashboard/change-password", account.ChangePassword)

		r.Mount("/api", api.NewAPIRouter(api.Deps{
			Content:         deps.Content,
			SessionLifetime: deps.SessionLifetime,
		}))
	})

	return r
}
