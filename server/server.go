// Package server exposes the watchlist REST API, the quote endpoint, the
// digest trigger and the user-created hook.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/allstar/stockwatch/pkg/domain"
	"github.com/allstar/stockwatch/pkg/limiter"
)

// Server represents HTTP server instance
type Server struct {
	config    ConfigProvider
	auth      Authenticator
	watchlist WatchlistStore
	users     UserStore
	quotes    QuoteProvider
	limiter   RateLimiter
	digest    DigestService
	version   string
	debug     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// Authenticator resolves a request to the calling user
type Authenticator interface {
	UserFromRequest(r *http.Request) (*domain.User, error)
}

// WatchlistStore is the watchlist persistence contract
type WatchlistStore interface {
	Add(ctx context.Context, userID, symbol, company string) (*domain.WatchlistEntry, error)
	Remove(ctx context.Context, userID, symbol string) error
	List(ctx context.Context, userID string) ([]domain.WatchlistEntry, error)
}

// UserStore looks up users for the hook endpoint
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// QuoteProvider fetches the current quote for a symbol
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// RateLimiter applies named tiers to identifiers
type RateLimiter interface {
	CheckTier(tier, identifier string) limiter.Result
}

// DigestService covers on-demand digest operations
type DigestService interface {
	DigestNow(ctx context.Context) *domain.DigestReport
	SendWelcome(ctx context.Context, user domain.User, profile string) error
}

// New initializes a new server instance
func New(cfg ConfigProvider, auth Authenticator, watchlist WatchlistStore, users UserStore,
	quotes QuoteProvider, rateLimiter RateLimiter, digest DigestService, version string, debug bool) *Server {
	s := &Server{
		config:    cfg,
		auth:      auth,
		watchlist: watchlist,
		users:     users,
		quotes:    quotes,
		limiter:   rateLimiter,
		digest:    digest,
		version:   version,
		debug:     debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("stockwatch", "allstar", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(64 * 1024)) // 64KB, payloads here are tiny
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)

		r.HandleFunc("GET /watchlist", s.listWatchlistHandler)
		r.HandleFunc("POST /watchlist", s.addWatchlistHandler)
		r.HandleFunc("DELETE /watchlist/{symbol}", s.removeWatchlistHandler)
		r.HandleFunc("GET /watchlist/quote", s.quoteHandler)

		r.HandleFunc("POST /digest/run", s.runDigestHandler)
		r.HandleFunc("POST /hooks/user-created", s.userCreatedHandler)
	})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderData wraps a successful payload in the {success, data} envelope
func renderData(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	renderJSON(w, r, code, map[string]interface{}{"success": true, "data": data})
}

// renderError sends error response in the {success, error} envelope
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]interface{}{"success": false, "error": errMsg})
}

// renderRateLimited sends a 429 with the Retry-After header
func renderRateLimited(w http.ResponseWriter, r *http.Request, res limiter.Result) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", res.RetryAfter))
	renderError(w, r,
		fmt.Errorf("rate limit exceeded, retry after %d seconds", res.RetryAfter),
		http.StatusTooManyRequests)
}
