package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mkrupp/authui/internal/infra/logging"
)

// HTTPTransportConfig contains configuration parameters for HTTP servers.
type HTTPTransportConfig struct {
	// ServerAddr is the network address to listen on
	ServerAddr string `env:"SERVER_ADDR" default:":3000"`
	// ReadHeaderTimeout is the timeout in seconds for reading request headers
	ReadHeaderTimeout int64 `env:"READ_HEADER_TIMEOUT" default:"5"`

	ReadTimeout  int64 `env:"READ_TIMEOUT" default:"5"`
	WriteTimeout int64 `env:"WRITE_TIMEOUT" default:"15"`

	// ShutdownTimeout bounds, in seconds, how long in-flight requests may run
	// after the context is cancelled
	ShutdownTimeout int64 `env:"SHUTDOWN_TIMEOUT" default:"10"`
}

// HTTPTransport defines the interface for HTTP handlers that can serve requests.
type HTTPTransport interface {
	http.Handler
}

// Wrap applies the standard middleware chain: tracing, logging and panic
// recovery, outermost first.
func Wrap(handler HTTPTransport, log logging.Logger) http.Handler {
	var h http.Handler = handler

	h = RescueingMiddleware(h, log)
	h = LoggingMiddleware(h, log)
	h = TracingMiddleware(h)

	return h
}

// ListenAndServe starts an HTTP server with the given handler and configuration.
// It returns when ctx is cancelled and the server has shut down, or when the
// server fails.
func ListenAndServe(ctx context.Context, handler HTTPTransport, cfg HTTPTransportConfig) error {
	sock, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return Serve(ctx, sock, handler, cfg)
}

// Serve is ListenAndServe on an existing listener. The listener is closed on
// return.
func Serve(ctx context.Context, sock net.Listener, handler HTTPTransport, cfg HTTPTransportConfig) error {
	log := logging.GetLogger("infra.transport.http")

	//nolint:exhaustruct
	server := &http.Server{
		Handler:           Wrap(handler, log),
		ErrorLog:          logging.GetLogLogger(log, logging.LevelError),
		ReadHeaderTimeout: seconds(cfg.ReadHeaderTimeout),
		ReadTimeout:       seconds(cfg.ReadTimeout),
		WriteTimeout:      seconds(cfg.WriteTimeout),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		log.DebugContext(ctx, "listening", "addr", sock.Addr().String())

		errCh <- server.Serve(sock)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), seconds(cfg.ShutdownTimeout))
	defer cancel()

	log.DebugContext(ctx, "shutting down")

	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()

		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func seconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}
