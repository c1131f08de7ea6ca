package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"careerquiz/auth"
	"careerquiz/handlers"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the quiz web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.ensureAdmin(ctx); err != nil {
		return err
	}

	keys := a.keys()
	h := handlers.New(handlers.Options{
		AppName:              a.cfg.AppName,
		Auth:                 a.auth,
		Sessions:             auth.NewSessionManager(keys, a.cfg.SecureCookies),
		Tokens:               auth.NewTokenIssuer(keys.Token, a.cfg.TokenTTL()),
		Results:              a.db.Results(),
		Logger:               a.log,
		CaptchaAfterFailures: a.cfg.CaptchaAfterFailures,
	})

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           h.Routes(keys.CSRF, a.cfg.SecureCookies),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.InfoContext(ctx, "server starting", "addr", srv.Addr, "app", a.cfg.AppName, "driver", a.cfg.DatabaseDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.InfoContext(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
