// Package server exposes the pipeline over HTTP for the dashboard.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hiring-pipeline/internal/calllog"
	"github.com/spigell/hiring-pipeline/internal/health"
	"github.com/spigell/hiring-pipeline/internal/operations"
	"github.com/spigell/hiring-pipeline/internal/pipeerr"
	"github.com/spigell/hiring-pipeline/internal/pipeline"
	"github.com/spigell/hiring-pipeline/internal/schema"
)

const (
	DefaultAddr          = ":8080"
	DefaultRecentEntries = 20
	defaultMaxBodyBytes  = 1 << 20
	shutdownTimeout      = 15 * time.Second
)

type Config struct {
	Addr string
	// AuthToken enables bearer authentication for /api routes when set.
	AuthToken     string
	RecentEntries int
	MaxBodyBytes  int64
}

type Server struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	calls    *calllog.Logger
	metrics  http.Handler
	checks   func() []health.Check
	logger   *zap.Logger
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithChecks sets the configuration checks reported by /api/health.
func WithChecks(checks func() []health.Check) Option {
	return func(s *Server) { s.checks = checks }
}

func New(cfg Config, p *pipeline.Pipeline, calls *calllog.Logger, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RecentEntries <= 0 {
		cfg.RecentEntries = DefaultRecentEntries
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	s := &Server{
		cfg:      cfg,
		pipeline: p,
		calls:    calls,
		checks:   func() []health.Check { return nil },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of the service.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/generate/{operation}", s.handleGenerate)
	api.HandleFunc("GET /api/operations", s.handleOperations)
	api.HandleFunc("GET /api/health", s.handleHealth)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authenticate(api))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return s.logRequests(mux)
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server is listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

type errorResponse struct {
	Error  string   `json:"error"`
	Kind   string   `json:"kind,omitempty"`
	Issues []string `json:"issues,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	name, err := operations.Parse(r.PathValue("operation"))
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	d, err := operations.Lookup(name)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	input, err := decodeObject(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if issues := schema.Validate(d.Input, input); len(issues) > 0 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid input", Issues: issues.Strings()})
		return
	}

	res, err := s.pipeline.Execute(r.Context(), d, input)
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Debug("client went away before generation finished", zap.String("operation", string(name)))
			return
		}

		kind := pipeerr.KindProviderTransport
		if k, ok := pipeerr.KindOf(err); ok {
			kind = k
		}
		s.logger.Error("generation failed", zap.String("operation", string(name)), zap.Stringer("kind", kind), zap.String("error", pipeerr.Detail(err)))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "generation failed", Kind: kind.String()})
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

type operationInfo struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	RequiredInputs []string       `json:"requiredInputs"`
	ResponseFormat string         `json:"responseFormat"`
	InputSchema    *schema.Schema `json:"inputSchema"`
	OutputSchema   *schema.Schema `json:"outputSchema"`
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	all := operations.All()
	out := make([]operationInfo, 0, len(all))
	for _, d := range all {
		out = append(out, operationInfo{
			Name:           string(d.Name),
			Description:    d.Description,
			RequiredInputs: d.Input.Required,
			ResponseFormat: schema.Outline(d.Output),
			InputSchema:    d.Input,
			OutputSchema:   d.Output,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	report := health.Evaluate(s.calls.Stats(), s.calls.Recent(s.cfg.RecentEntries), s.checks())
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	want := []byte(s.cfg.AuthToken)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="hiring-pipeline"`)
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(started)),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("writing response failed", zap.Error(err))
	}
}

func decodeObject(body io.Reader) (map[string]any, error) {
	var input map[string]any
	dec := json.NewDecoder(body)
	if err := dec.Decode(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is empty")
		}
		return nil, fmt.Errorf("request body is not a JSON object: %w", err)
	}
	if input == nil {
		return nil, errors.New("request body is not a JSON object")
	}
	return input, nil
}
