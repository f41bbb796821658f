// Package api serves dependency planning over HTTP.
//
// Routes:
//
//	GET  /healthz         liveness and build version
//	GET  /v1/strategies   strategy sets known to the server
//	POST /v1/plans        resolve and flatten dependencies into a plan
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/depflow/pkg/buildinfo"
	"github.com/matzehuels/depflow/pkg/cache"
	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/plan"
)

// DefaultPlanTTL is how long a computed plan is reused for an identical
// request. Plans follow moving refs, so this stays short.
const DefaultPlanTTL = 5 * time.Minute

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 2 * time.Minute
)

// Config configures a [Server].
type Config struct {
	// Project is the template for every request; its CurrentBranch is
	// replaced by the request's branch.
	Project *deps.Project
	Cache   cache.Cache
	Keyer   cache.Keyer
	PlanTTL time.Duration
	Logger  *log.Logger
}

// Server handles API requests.
type Server struct {
	project *deps.Project
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	logger  *log.Logger
	router  chi.Router
}

// New creates a server. Nil cache, keyer or logger fall back to no caching,
// the default keyer and a discarding logger.
func New(cfg Config) *Server {
	s := &Server{
		project: cfg.Project,
		cache:   cfg.Cache,
		keyer:   cfg.Keyer,
		ttl:     cfg.PlanTTL,
		logger:  cfg.Logger,
	}
	if s.project == nil {
		s.project = &deps.Project{}
	}
	if s.cache == nil {
		s.cache = cache.NewNullCache()
	}
	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultPlanTTL
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/strategies", s.handleStrategies)
		r.Post("/plans", s.handlePlan)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	sets := deps.DefaultStrategySets()
	for name, strategies := range s.project.StrategySets {
		sets[name] = strategies
	}
	aliases := deps.DefaultAliases()
	for alias, set := range s.project.Aliases {
		aliases[alias] = set
	}
	writeJSON(w, http.StatusOK, map[string]any{"sets": sets, "aliases": aliases})
}

// planRequest is the body of POST /v1/plans.
type planRequest struct {
	Dependencies []map[string]any `json:"dependencies"`
	// Strategy is a strategy set name or alias; default "production".
	Strategy string `json:"strategy,omitempty"`
	// Branch is the caller's current branch for commit status strategies.
	Branch string `json:"branch,omitempty"`
	// Target, when present, gates the plan against its installed packages.
	Target *targetRequest `json:"target,omitempty"`
}

type targetRequest struct {
	Name      string             `json:"name"`
	Installed []installedRequest `json:"installed"`
}

type installedRequest struct {
	Namespace string `json:"namespace,omitempty"`
	Version   string `json:"version,omitempty"`
	ID        string `json:"id,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid JSON: "+err.Error())
		return
	}
	if req.Strategy == "" {
		req.Strategy = deps.AliasProduction
	}

	declared, err := deps.ParseDependencies(req.Dependencies)
	if err != nil {
		writeErr(w, err)
		return
	}
	target, err := req.Target.snapshot()
	if err != nil {
		writeErr(w, err)
		return
	}

	p, err := s.buildPlan(r.Context(), req, declared)
	if err != nil {
		s.logger.Warn("plan failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeErr(w, err)
		return
	}
	if target != nil {
		if err := p.Gate(r.Context(), target); err != nil {
			writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, p)
}

// buildPlan returns a fresh plan for req, reusing the flattened steps of an
// identical recent request.
func (s *Server) buildPlan(ctx context.Context, req planRequest, declared []deps.Dependency) (*plan.Plan, error) {
	key := s.keyer.PlanKey(req.Strategy, req.Branch, req.Dependencies)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached struct {
			Steps []map[string]any `json:"steps"`
		}
		if json.Unmarshal(data, &cached) == nil {
			if static, err := parseSteps(cached.Steps); err == nil {
				p := plan.New(static)
				p.Strategy = req.Strategy
				return p, nil
			}
		}
	}

	project := *s.project
	project.CurrentBranch = req.Branch
	p, err := plan.Build(ctx, &project, declared, req.Strategy)
	if err != nil {
		return nil, err
	}

	steps := make([]map[string]any, len(p.Steps))
	for i, step := range p.Steps {
		steps[i] = step.Dependency
	}
	if data, err := json.Marshal(map[string]any{"steps": steps}); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Debug("caching plan failed", "error", err)
		}
	}
	return p, nil
}

func parseSteps(decls []map[string]any) ([]deps.StaticDependency, error) {
	parsed, err := deps.ParseDependencies(decls)
	if err != nil {
		return nil, err
	}
	out := make([]deps.StaticDependency, 0, len(parsed))
	for _, d := range parsed {
		static, ok := d.(deps.StaticDependency)
		if !ok {
			return nil, errors.New("cached step is not installable")
		}
		out = append(out, static)
	}
	return out, nil
}
