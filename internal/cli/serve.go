package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/gallery/internal/config"
	"github.com/msomdec/gallery/internal/handler"
	"github.com/msomdec/gallery/internal/service"
	"github.com/msomdec/gallery/internal/transform"
	"github.com/spf13/cobra"
)

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := setupLogger(cfg); err != nil {
				return err
			}
			return runServe(cmd, cfg)
		},
	}
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	db, err := openDB(cmd, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database migrations applied", "path", cfg.DatabasePath)

	files, err := openFileStore(cfg, db)
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	editions := service.NewEditionService(db.Editions(), files, transform.NewEngine(), service.EditionConfig{
		TransformTimeout:        cfg.TransformTimeout.Duration,
		MaxConcurrentTransforms: cfg.MaxConcurrentTransforms,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Auth:         service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost, cfg.TokenTTL.Duration),
		Assets:       service.NewAssetService(db.Assets(), files, editions),
		Editions:     editions,
		LoginLimiter: service.NewTokenBucket(ctx, 0.2, 5),
		EditLimiter:  service.NewTokenBucket(ctx, 2, 20),
		CookieSecure: cfg.CookieSecure,
		TokenTTL:     cfg.TokenTTL.Duration,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
