// Package server exposes the routing pipeline over HTTP.
//
//	POST /v1/route    {"design": {...}, "options": {...}}  -> result JSON
//	POST /v1/render   {"result": {...}, "options": {...}}  -> one artifact
//	GET  /healthz                                          -> "ok"
//
// Input errors (invalid designs, options or formats) map to 400 with the
// coded error in the body; everything else is a 500.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/gridroute/pkg/design"
	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/observability"
	"github.com/matzehuels/gridroute/pkg/pipeline"
	"github.com/matzehuels/gridroute/pkg/result"
)

const (
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes = 32 << 20

	// DefaultRequestTimeout bounds one routing request.
	DefaultRequestTimeout = 5 * time.Minute

	shutdownTimeout = 10 * time.Second
)

// RouteRequest is the body of POST /v1/route.
type RouteRequest struct {
	Design  *design.Design   `json:"design"`
	Options pipeline.Options `json:"options"`
}

// RenderRequest is the body of POST /v1/render. Exactly one format is
// rendered; the first entry of Options.Formats wins.
type RenderRequest struct {
	Result  *result.Result   `json:"result"`
	Options pipeline.Options `json:"options"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// Server serves the HTTP API on top of a pipeline runner.
type Server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	timeout time.Duration
}

// New creates a server. A zero timeout uses DefaultRequestTimeout.
func New(runner *pipeline.Runner, logger *log.Logger, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = runner.Logger
	}
	return &Server{runner: runner, logger: logger, timeout: timeout}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Post("/route", s.handleRoute)
		r.Post("/render", s.handleRender)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
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
	s.logger.Info("server stopped")
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Design == nil {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "request has no design"))
		return
	}

	opts := req.Options
	opts.Logger = s.logger.With("request_id", middleware.GetReqID(r.Context()))
	res, cached, err := s.runner.RouteWithCacheInfo(r.Context(), req.Design, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("X-Cache", cacheHeader(cached))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Result == nil {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "request has no result"))
		return
	}

	opts := req.Options
	if len(opts.Formats) == 0 {
		opts.Formats = []string{pipeline.FormatSVG}
	}
	format := opts.Formats[0]
	opts.Formats = opts.Formats[:1]
	artifacts, cached, err := s.runner.RenderWithCacheInfo(r.Context(), req.Result, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Cache", cacheHeader(cached))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

var contentTypes = map[string]string{
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatJSON: "application/json",
}

func cacheHeader(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "decode request: %v", err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: errors.UserMessage(err)})
}

func statusOf(err error) int {
	switch {
	case errors.IsInputError(err):
		return http.StatusBadRequest
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// observe reports every request to the registered HTTP hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status, "duration", time.Since(start))
	})
}
