// Package web provides the HTTP API of the attribute matrix.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/auth"
	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/JonMunkholm/attrmatrix/internal/metrics"
	mw "github.com/JonMunkholm/attrmatrix/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP server of the matrix API.
type Server struct {
	service *core.Service
	auth    *auth.Authenticator
	metrics *metrics.Metrics
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiters []*rateLimiter
}

// NewServer creates a Server. m may be nil, in which case no metrics are
// collected or served.
func NewServer(service *core.Service, authn *auth.Authenticator, m *metrics.Metrics, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		auth:    authn,
		metrics: m,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	if s.metrics != nil {
		s.router.Use(mw.Metrics(s.metrics))
	}
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled && s.cfg.Rate.LoginPerMinute > 0 {
				r.Use(s.newRateLimiter(s.cfg.Rate.LoginPerMinute, time.Minute).middleware)
			}
			r.Post("/auth/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(s.auth))

			r.Get("/auth/verify", s.handleVerify)

			// Matrix
			r.Get("/table", s.handleTable)
			r.Post("/column", s.handleAddColumn)
			r.Delete("/column/{name}", s.handleDeleteColumn)
			r.Post("/row", s.handleAddRow)
			r.Put("/row/{name}/name", s.handleRenameRow)
			r.Delete("/row/{name}", s.handleDeleteRow)
			r.Put("/cell", s.handleSetCell)
			r.Put("/annotation", s.handleUpdateAnnotation)

			// Axis settings
			r.Get("/axis-settings", s.handleListAxisSettings)
			r.Post("/axis-settings", s.handleCreateAxisSetting)
			r.Put("/axis-settings/{id}", s.handleUpdateAxisSetting)
			r.Delete("/axis-settings/{id}", s.handleDeleteAxisSetting)

			// Transfer
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
			r.Get("/import/status", s.handleImportStatus)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := newRateLimiter(rate, window)
	s.limiters = append(s.limiters, rl)
	go rl.cleanup(time.Minute)
	return rl
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// cleanup drops visitors idle for two windows until stop is called.
func (rl *rateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow consumes a token for ip and reports whether the request may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rate limits by the client IP resolved by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(mw.ClientIP(r)) {
			slog.Warn("rate limit exceeded", "ip", mw.ClientIP(r), "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
