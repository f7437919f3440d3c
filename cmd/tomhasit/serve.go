package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/build"
	"github.com/tomhasit/tomhasit-web/internal/cache"
	"github.com/tomhasit/tomhasit-web/internal/config"
	"github.com/tomhasit/tomhasit-web/internal/content"
	"github.com/tomhasit/tomhasit-web/internal/db"
	"github.com/tomhasit/tomhasit-web/internal/handler"
	"github.com/tomhasit/tomhasit-web/internal/store"
)

const visitBuffer = 256

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			api := backend.New(cfg.API.URL, cfg.API.Timeout)

			sessions, err := auth.NewStore(auth.StoreConfig{
				Secret:       cfg.Session.Secret,
				Lifetime:     cfg.Session.Lifetime,
				RefreshAfter: cfg.Session.RefreshAfter,
				RetryAfter:   cfg.Session.RetryAfter,
				Insecure:     cfg.Session.InsecureCookies,
			}, api)
			if err != nil {
				return err
			}
			flow := auth.NewFlow(auth.NewSessionManager(database, cfg.DB.Driver, time.Hour, !cfg.Session.InsecureCookies))
			authHandlers := auth.NewHandlers(auth.NewAuthenticator(api), sessions)

			var contentCache cache.Cache = cache.Nop{}
			if cfg.Redis.URL != "" {
				rc, err := cache.Dial(ctx, cfg.Redis.URL)
				if err != nil {
					return err
				}
				defer func() { _ = rc.Close() }()
				contentCache = rc
				log.Info().Msg("content cache: redis")
			}
			contentSvc := content.NewService(api, contentCache, cfg.Cache.TTL)

			visitStore := store.NewVisitStore(database)
			visitCh := make(chan store.Visit, visitBuffer)
			writerCtx, stopWriter := context.WithCancel(context.Background())
			writerDone := make(chan struct{})
			go func() {
				defer close(writerDone)
				handler.RunVisitWriter(writerCtx, visitCh, visitStore)
			}()

			router := handler.NewRouter(handler.Deps{
				Logger:          log.Logger,
				Flow:            flow,
				Sessions:        sessions,
				AuthHandlers:    authHandlers,
				Backend:         api,
				Content:         contentSvc,
				VisitStore:      visitStore,
				VisitCh:         visitCh,
				SessionLifetime: cfg.Session.Lifetime,
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info().
					Str("addr", cfg.HTTP.Addr).
					Str("api", cfg.API.URL).
					Str("version", build.String()).
					Msg("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					stopWriter()
					<-writerDone
					return err
				}
			case <-ctx.Done():
				log.Info().Msg("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("http shutdown")
			}
			// No handler can enqueue after Shutdown returns; flush what is left.
			stopWriter()
			<-writerDone
			return nil
		},
	}
}

// setupLogger configures the global zerolog logger.
func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	// log.Ctx outside a request falls back to the global logger.
	zerolog.DefaultContextLogger = &log.Logger
}
