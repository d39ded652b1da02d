// Package server runs the HTTP server with signal-aware graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgepurge/akamai-bridge/internal/config"
	"github.com/rs/zerolog/log"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Hooks is an ordered collection of shutdown actions. Execution continues
// through failures; each hook's outcome is logged.
type Hooks struct {
	hooks []hook
}

// Add registers a shutdown hook. Nil hooks are ignored.
func (h *Hooks) Add(name string, fn func(context.Context) error) {
	if fn == nil {
		log.Warn().Str("hook", name).Msg("ignoring nil shutdown hook")
		return
	}

	h.hooks = append(h.hooks, hook{name: name, fn: fn})
}

// Execute runs all hooks in registration order with the supplied context.
func (h *Hooks) Execute(ctx context.Context) {
	for _, hook := range h.hooks {
		hookLog := log.Ctx(ctx).With().Str("hook", hook.name).Logger()

		if err := hook.fn(ctx); err != nil {
			hookLog.Warn().Err(err).Msg("shutdown hook failed")
		} else {
			hookLog.Info().Msg("shutdown hook complete")
		}
	}
}

// Serve runs the server until it fails or the process receives an interrupt
// or termination signal, then shuts down gracefully within the configured
// timeout and executes the shutdown hooks.
func Serve(srv *http.Server, cfg config.ServerConfig, hooks *Hooks) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second,
	)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	hooks.Execute(shutdownCtx)

	if err != nil {
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
