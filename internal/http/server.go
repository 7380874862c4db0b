package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"dompet/internal/auth"
	"dompet/internal/cache"
	"dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	"dompet/internal/services"
	appweb "dompet/web"
)

// Deps are the collaborators of the server. Ready may be nil.
type Deps struct {
	Auth         *services.AuthService
	Projects     *services.ProjectService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Tokens       *auth.Tokens

	Ready  func(context.Context) error
	Logger *log.Logger

	Currency           string
	RateLimitPerMinute int
	TrustedProxies     []string
	Now                func() time.Time
}

type Server struct {
	http.Server

	deps      Deps
	logger    *log.Logger
	templates *template.Template

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter
	caches   *cache.Manager

	stopOnce     sync.Once
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and returns a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Server{
		deps:     deps,
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
		tracer:   trace.NewMiddleware(),
		detector: security.NewDetector(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	limits := ratelimit.DefaultConfig()
	limits.RequestsPerMinute = deps.RateLimitPerMinute
	s.limiter = ratelimit.NewLimiter(limits)

	s.caches = cache.NewManager(deps.Logger.WithComponent(log.ComponentCache).Logger)
	s.caches.Register(deps.Transactions.Ledgers())
	s.caches.StartCleanup(5 * time.Minute)

	t, err := template.New("").Funcs(template.FuncMap{
		"currency": func() string { return deps.Currency },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.Stop()
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		s.Stop()
		return nil, err
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	}))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("POST /api/auth/password", s.protected(s.handleUpdatePassword))
	mux.Handle("GET /api/auth/me", s.protected(s.handleMe))

	mux.Handle("GET /api/projects", s.protected(s.handleListProjects))
	mux.Handle("POST /api/projects", s.protected(s.handleCreateProject))
	mux.Handle("GET /api/projects/{id}", s.protected(s.handleOpenProject))
	mux.Handle("POST /api/projects/{id}/members", s.protected(s.handleInvite))

	// Ledger routes exist per project and once for the caller's personal
	// ledger, where the {id} path value is empty.
	for _, base := range []string{"/api/projects/{id}", "/api/ledger"} {
		mux.Handle("GET "+base+"/transactions", s.protected(s.handleListTransactions))
		mux.Handle("POST "+base+"/transactions", s.protected(s.handleCreateTransaction))
		mux.Handle("PATCH "+base+"/transactions/{txid}", s.protected(s.handleUpdateTransaction))
		mux.Handle("DELETE "+base+"/transactions/{txid}", s.protected(s.handleDeleteTransaction))

		mux.Handle("GET "+base+"/dashboard", s.protected(s.handleDashboard))
		mux.Handle("PUT "+base+"/budgets/{month}", s.protected(s.handleSetBudget))
		mux.Handle("GET "+base+"/export.csv", s.protected(s.handleExport))
	}
	return nil
}

// middleware wraps the mux, outermost first: tracing, request logging,
// hardening headers, probe detection, then write throttling.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
	}

	h := s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(next)
	h = s.detector.Middleware(h)
	h = headers.Middleware(h)
	h = log.AccessLog(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = log.Middleware(s.deps.Logger)(h)
	return s.tracer.Middleware(h)
}

// protected requires a bearer token for h.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return s.deps.Tokens.Middleware(writeAuthError)(h)
}

// Stop releases the background goroutines without touching the listener.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics reports the middleware counters as plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "http_response_time_avg_ms %d\n", tm.AverageResponseTime.Milliseconds())
	fmt.Fprintf(w, "rate_limit_rejections_total %d\n", rm.LimitedHits)
	fmt.Fprintf(w, "rate_limit_active_clients %d\n", rm.ClientCount)
	fmt.Fprintf(w, "suspicious_requests_total %d\n", dm.SuspiciousRequests)
	fmt.Fprintf(w, "ledger_cache_entries %d\n", s.deps.Transactions.Ledgers().Size())
}
