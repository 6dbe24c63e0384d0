package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"kitchenledger/internal/auth"
	"kitchenledger/internal/cache"
	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/middleware/ratelimit"
	"kitchenledger/internal/middleware/security"
	"kitchenledger/internal/middleware/trace"
	"kitchenledger/internal/services"
	appweb "kitchenledger/web"
)

// Profiles is the account half of the API client.
type Profiles interface {
	GetRestaurantProfile(ctx context.Context) (core.RestaurantProfile, error)
	SetRestaurantProfile(ctx context.Context, name string) (string, error)
}

// Config wires the dashboard server. Auth, Dashboard and Profiles are required.
type Config struct {
	Addr      string
	Logger    *applog.Logger
	Auth      *auth.Controller
	Dashboard *services.Dashboard
	Profiles  Profiles

	// Caches, when set, sweeps the profile cache.
	Caches     *cache.Manager
	ProfileTTL time.Duration
	RateLimit  ratelimit.Config
	Now        func() time.Time
}

const profileKey = "profile"

type Server struct {
	srv       *http.Server
	router    chi.Router
	logger    *applog.Logger
	log       *slog.Logger
	templates *template.Template

	auth     *auth.Controller
	dash     *services.Dashboard
	profiles Profiles
	profile  *cache.LRUCache[core.RestaurantProfile]

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and builds the routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Auth == nil || cfg.Dashboard == nil || cfg.Profiles == nil {
		return nil, fmt.Errorf("http server needs auth, dashboard and profiles")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		logger:    logger,
		log:       logger.Slog(),
		templates: tmpl,
		auth:      cfg.Auth,
		dash:      cfg.Dashboard,
		profiles:  cfg.Profiles,
		profile:   cache.NewLRUCache[core.RestaurantProfile](1, cfg.ProfileTTL),
		limiter:   ratelimit.NewLimiter(cfg.RateLimit),
		now:       cfg.Now,
	}
	s.detector = security.NewDetector(logger.WithComponent(applog.ComponentSecurity).Slog())
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	if cfg.Caches != nil {
		cfg.Caches.Register(s.profile)
	}

	// A session that ends for any reason takes its data with it.
	s.auth.Subscribe(func(st auth.State) {
		if st.Phase == auth.LoggedOut {
			s.dash.Reset()
			s.profile.Delete(profileKey)
		}
	})

	if err := s.routes(); err != nil {
		return nil, err
	}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(s.detector.Middleware)
	r.Use(s.tracer.Handler)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/", s.handleIndex)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limitWrites)

		r.Get("/session", s.handleSession)
		r.Route("/auth", func(r chi.Router) {
			r.Use(applog.ComponentMiddleware(applog.ComponentAuth))
			r.Post("/otp", s.handleRequestOTP)
			r.Post("/resend", s.handleResendOTP)
			r.Post("/change-email", s.handleChangeEmail)
			r.Post("/verify", s.handleVerifyOTP)
			r.Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)
			r.Use(applog.ComponentMiddleware(applog.ComponentLedger))

			r.Get("/restaurant", s.handleGetRestaurant)
			r.Post("/restaurant", s.handleSetRestaurant)
			r.Get("/dashboard", s.handleDashboard)
			r.Post("/dashboard/refresh", s.handleRefresh)
			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		})
	})

	s.router = r
	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.logger.Info("Shutting down HTTP server")
		shutdownErr = s.srv.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics reports request, rejection and scanner counters for /healthz.
type Metrics struct {
	Requests         int64  `json:"requests"`
	FailedRequests   int64  `json:"failed_requests"`
	AverageLatencyMs int64  `json:"average_latency_ms"`
	RateLimited      int64  `json:"rate_limited"`
	Blocked          int64  `json:"blocked"`
	Phase            string `json:"phase"`
}

func (s *Server) Metrics() Metrics {
	tm := s.tracer.GetMetrics()
	return Metrics{
		Requests:         tm.TotalRequests,
		FailedRequests:   tm.FailedRequests,
		AverageLatencyMs: tm.AverageResponseTime.Milliseconds(),
		RateLimited:      s.limiter.Rejected(),
		Blocked:          s.detector.Blocked(),
		Phase:            string(s.auth.State().Phase),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(struct {
		Status string `json:"status"`
		Metrics
	}{Status: "ok", Metrics: s.Metrics()}).Write(w)
}

// limitWrites rate limits every non-GET API call per client.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request, retry time.Duration) {
		s.log.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		MessageResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").RetryAfter(retry).Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth.State().Phase != auth.LoggedIn {
			ErrorResponse(core.ErrMissingToken).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError logs err, lets the auth controller react to a rejected token,
// and writes the mapped JSON error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	status := StatusFor(err)

	if s.auth.Observe(ctx, err) {
		logger.WarnContext(ctx, "Session ended by backend", applog.FieldOperation, op)
	}
	switch {
	case status >= 500:
		applog.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, applog.ComponentHTTP, op, nil)
	default:
		logger.InfoContext(ctx, "Request rejected",
			applog.FieldOperation, op,
			applog.FieldError, err,
			applog.FieldStatusCode, status)
	}
	ErrorResponse(err).Write(w)
}
