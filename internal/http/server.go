// Package http exposes the budget service as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetbook/internal/cache"
	"budgetbook/internal/core"
	"budgetbook/internal/services"
)

type Server struct {
	http.Server
	svc         *services.BudgetService
	rateLimiter *rateLimiter

	// Month overviews are derived data; cache them between mutations.
	overviewCache *cache.LRU[core.Overview]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, svc *services.BudgetService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:              svc,
		rateLimiter:      newRateLimiter(),
		overviewCache:    cache.New[core.Overview](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /months", s.withMiddleware(s.handleListMonths))
	mux.HandleFunc("POST /months", s.withMiddleware(s.handleSetupMonth))
	mux.HandleFunc("PUT /months/{key}/budget", s.withMiddleware(s.handleUpdateBudget))
	mux.HandleFunc("GET /months/{key}/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("GET /months/{key}/allocation", s.withMiddleware(s.handleAllocation))

	mux.HandleFunc("POST /months/{key}/categories", s.withMiddleware(s.handleAddCategory))
	mux.HandleFunc("PUT /months/{key}/categories/{name}", s.withMiddleware(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /months/{key}/categories/{name}", s.withMiddleware(s.handleDeleteCategory))

	mux.HandleFunc("POST /expenses", s.withMiddleware(s.handleAddExpense))
	mux.HandleFunc("GET /months/{key}/expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("GET /months/{key}/expenses/{id}", s.withMiddleware(s.handleGetExpense))
	mux.HandleFunc("PUT /months/{key}/expenses/{id}", s.withMiddleware(s.handleEditExpense))
	mux.HandleFunc("DELETE /months/{key}/expenses/{id}", s.withMiddleware(s.handleDeleteExpense))

	return s
}

// withMiddleware adds security headers, rate limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.overviewCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateMonth drops the cached overview after a mutation.
func (s *Server) invalidateMonth(key string) {
	s.overviewCache.Delete(key)
}

// Shutdown stops background cleanup and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
