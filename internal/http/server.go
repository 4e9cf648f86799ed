// Package http exposes the bill lifecycle over a JSON API: receipt upload,
// bill submission, list retrieval, receipt preview and notifications.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"billed/internal/bills"
	"billed/internal/cache"
	"billed/internal/core"
	applog "billed/internal/log"
	"billed/internal/session"
	"billed/internal/store"
)

type Server struct {
	http.Server

	manager       *bills.Manager
	retriever     *bills.Retriever
	previews      store.ReceiptPreviewer
	notifications store.NotificationStore
	session       session.Store

	maxUploadBytes int64
	rateLimiter    *rateLimiter

	// LRU cache for rendered bill lists, keyed by user email. Invalidated
	// on submission so a fresh list is visible after navigation.
	listCache *cache.LRUCache[[]core.BillView]
	caches    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, mgr *bills.Manager, rtr *bills.Retriever, pv store.ReceiptPreviewer, ns store.NotificationStore, sess session.Store, maxUploadBytes int64) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		manager:        mgr,
		retriever:      rtr,
		previews:       pv,
		notifications:  ns,
		session:        sess,
		maxUploadBytes: maxUploadBytes,
		rateLimiter:    newRateLimiter(),
		listCache:      cache.NewLRUCache[[]core.BillView](200, 5*time.Minute),
		caches:         cache.NewManager(),
	}

	s.caches.Register(s.listCache)
	s.caches.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/bills", s.withSecurityHeaders(s.handleBills))
	mux.HandleFunc("/bills/receipt", s.withSecurityHeaders(s.handleUploadReceipt))
	mux.HandleFunc("/bills/", s.withSecurityHeaders(s.handleBillPreview))
	mux.HandleFunc("/notifications", s.withSecurityHeaders(s.handleNotifications))

	// Every request gets a context logger carrying the request ID.
	httpLogger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentHTTP,
	})
	s.Handler = applog.Middleware(httpLogger)(applog.RequestIDMiddleware(requestIDFrom)(mux))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := applog.FromContext(ctx)
		ip := clientIP(r)

		logger.InfoContext(ctx, "Request started",
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, ip).ToSlice()...)

		// Rate limit mutating requests only.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(ip) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, ip,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, ip).
			WithHTTPResponse(rw.statusCode, time.Since(start).Milliseconds())
		logger.InfoContext(ctx, "Request completed", fields.ToSlice()...)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
