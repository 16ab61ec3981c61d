package http_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	context_ "github.com/mkrupp/authui/internal/infra/context"
	http_ "github.com/mkrupp/authui/internal/infra/transport/http"
	"github.com/mkrupp/authui/internal/infra/logging"
)

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
	}{
		{name: "keeps incoming id", incoming: "upstream-id"},
		{name: "generates missing id", incoming: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string

			h := http_.TracingMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen, _ = context_.TraceIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(http_.TraceIDHeader, tt.incoming)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("expected a trace id in the context")
			}

			if tt.incoming != "" && seen != tt.incoming {
				t.Errorf("trace id = %q, want %q", seen, tt.incoming)
			}

			if got := rec.Header().Get(http_.TraceIDHeader); got != seen {
				t.Errorf("response header = %q, want %q", got, seen)
			}
		})
	}
}

func TestRescueingMiddleware(t *testing.T) {
	t.Parallel()

	h := http_.RescueingMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestLoggingMiddleware_CapturesStatusAndFlushes(t *testing.T) {
	t.Parallel()

	var flushed bool

	h := http_.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)

		if err := http.NewResponseController(w).Flush(); err == nil {
			flushed = true
		}
	}), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	if !flushed || !rec.Flushed {
		t.Error("expected flush to reach the underlying writer")
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	sock, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	done := make(chan error, 1)

	go func() {
		done <- http_.Serve(ctx, sock, handler, http_.HTTPTransportConfig{
			ReadHeaderTimeout: 1,
			ReadTimeout:       1,
			WriteTimeout:      1,
			ShutdownTimeout:   1,
		})
	}()

	resp, err := http.Get("http://" + sock.Addr().String() + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
