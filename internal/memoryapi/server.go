// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memoryapi serves the write side of the search log over HTTP.
// The search workflow posts each finished search to /log_search; the
// reconciler later finds that row by its id. The same server can run a
// reconciliation itself through /search.
package memoryapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-relay/internal/history"
	"github.com/pdiddy/paper-relay/internal/logging"
	"github.com/pdiddy/paper-relay/internal/reconcile"
	"github.com/pdiddy/paper-relay/pkg/types"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 1000
	maxRequestBytes     = 4 << 20
	shutdownTimeout     = 10 * time.Second
)

// Store is the part of the search log the API reads and writes.
type Store interface {
	Insert(ctx context.Context, e history.Entry) (int64, error)
	List(ctx context.Context, limit int) ([]types.SearchRecord, error)
}

// Searcher runs a reconciliation for a query.
type Searcher interface {
	Submit(ctx context.Context, query string) (reconcile.Outcome, error)
}

// Options configures a Server.
type Options struct {
	Logger zerolog.Logger

	// Slow marks requests taking at least this long as warnings in the
	// access log. Zero disables slow marking.
	Slow time.Duration

	// CORSOrigins enables CORS for the listed browser origins.
	CORSOrigins []string
}

// Server is the memory log API.
type Server struct {
	store   Store
	search  Searcher
	log     zerolog.Logger
	slow    time.Duration
	origins []string
	now     func() time.Time
}

// New returns a Server over store. search may be nil, in which case
// /search is not mounted.
func New(store Store, search Searcher, opts Options) *Server {
	return &Server{
		store:   store,
		search:  search,
		log:     opts.Logger,
		slow:    opts.Slow,
		origins: opts.CORSOrigins,
		now:     time.Now,
	}
}

// Routes returns the API handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(s.requestLogger)
	r.Use(chimw.RealIP)
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Post("/log_search", s.handleLogSearch)
	r.Get("/history", s.handleHistory)
	if s.search != nil {
		r.Post("/search", s.handleSearch)
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("memory api listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("memory api stopped")
	return nil
}

// requestLogger makes the server's logger, tagged with the chi request id,
// available to handlers through logging.C.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithLogger(r.Context(), &s.log)
		ctx = logging.WithRequestID(ctx, chimw.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// captureWriter records the status and byte count of a response.
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

// accessLog logs method, path, status, elapsed time, and bytes written.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(cw, r)

		elapsed := time.Since(start)
		evt := s.log.Info()
		if s.slow > 0 && elapsed >= s.slow {
			evt = s.log.Warn()
		}
		evt.Str("req_id", chimw.GetReqID(r.Context())).
			Int("status", cw.status).
			Dur("elapsed", elapsed).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("bytes", cw.bytes).
			Msg("request done")
	})
}
