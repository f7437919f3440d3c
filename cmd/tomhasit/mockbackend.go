package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tomhasit/tomhasit-web/internal/backend/mockapi"
)

// newMockBackendCmd serves an in-memory stand-in for the backend API so the
// site can be run locally without it.
func newMockBackendCmd() *cobra.Command {
	var (
		addr   string
		prefix string
		seed   bool
	)
	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Run an in-memory backend API for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger("info", "console")

			mock := mockapi.New(mockapi.Options{})
			if seed {
				mock.SeedGallery("Western Electric 500", "https://picsum.photos/seed/we500/800/600")
				mock.SeedGallery("Candlestick phone", "https://picsum.photos/seed/candle/800/600")
				mock.SeedReview("Sample Visitor", "visitor@example.com", "My grandfather's rotary phone works again!")
			}

			mux := http.NewServeMux()
			mux.Handle(prefix+"/", http.StripPrefix(prefix, mock.Handler()))
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info().
				Str("addr", addr).
				Str("prefix", prefix).
				Str("login", mockapi.DefaultAccount.Email).
				Msg("mock backend listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":5001", "listen address")
	cmd.Flags().StringVar(&prefix, "prefix", "/api/v1", "path prefix the API is served under")
	cmd.Flags().BoolVar(&seed, "seed", true, "seed sample gallery items and reviews")
	return cmd
}
