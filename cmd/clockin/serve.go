package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"carolinalumpers.com/clockin/security"
	"carolinalumpers.com/clockin/web"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

type ServeOptions struct {
	*RootOptions
	Addr    string
	Migrate bool
	NoAuth  bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the clock-in HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from HTTP_ADDR)")
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "migrate the schema before serving")
	cmd.Flags().BoolVar(&opts.NoAuth, "no-auth", false, "serve the API without device tokens")

	return cmd
}

func serve(ctx context.Context, opts *ServeOptions) error {
	a, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Migrate {
		if err := a.DB.Migrate(ctx); err != nil {
			return err
		}
	}

	var secret []byte
	if !opts.NoAuth {
		if secret, err = security.DecodeSecret(a.Config.SigningSecret); err != nil {
			return fmt.Errorf("CLOCKIN_SIGNING_SECRET: %w", err)
		}
	}

	addr := opts.Addr
	if addr == "" {
		addr = a.Config.HTTP.Addr
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: addr,
		Handler: web.NewRouter(web.RouterOptions{
			Service:   a.Controller,
			JWTSecret: secret,
			Gatherer:  a.Registry,
			Logger:    a.Logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", slog.String("addr", addr))
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

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
