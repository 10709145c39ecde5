// Package http exposes the subscription engine as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/services"
)

// SubscriptionService is what the handlers need from the application
// layer. *services.SubscriptionService satisfies it.
type SubscriptionService interface {
	QuickAdd(ctx context.Context, userID int64, text string) (services.QuickAddResult, error)
	Decide(ctx context.Context, userID int64, key string, decision services.Decision) (services.QuickAddResult, error)
	MarkPaid(ctx context.Context, userID, subID int64) (core.Subscription, error)
	List(ctx context.Context, userID int64) ([]core.Subscription, error)
	Upcoming(ctx context.Context, userID int64) ([]services.UpcomingItem, error)
	SetPaused(ctx context.Context, userID, subID int64, paused bool) error
	Edit(ctx context.Context, userID, subID int64, edit services.SubscriptionEdit) (core.Subscription, error)
	Delete(ctx context.Context, userID, subID int64) error
	YearlyStats(ctx context.Context, userID int64, year int) ([]services.CurrencyTotal, error)
	Settings(ctx context.Context, userID int64) (core.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, settings core.Settings) error
}

type Server struct {
	http.Server
	svc          SubscriptionService
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, svc SubscriptionService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:         svc,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/subscriptions", s.withMiddleware(s.handleSubscriptions))
	mux.HandleFunc("/subscriptions/quick-add", s.withMiddleware(s.handleQuickAdd))
	mux.HandleFunc("/subscriptions/decide", s.withMiddleware(s.handleDecide))
	mux.HandleFunc("/subscriptions/paid", s.withMiddleware(s.handleMarkPaid))
	mux.HandleFunc("/subscriptions/pause", s.withMiddleware(s.handlePause))
	mux.HandleFunc("/subscriptions/edit", s.withMiddleware(s.handleEdit))
	mux.HandleFunc("/subscriptions/delete", s.withMiddleware(s.handleDelete))
	mux.HandleFunc("/subscriptions/upcoming", s.withMiddleware(s.handleUpcoming))
	mux.HandleFunc("/stats", s.withMiddleware(s.handleStats))
	mux.HandleFunc("/settings", s.withMiddleware(s.handleSettings))

	return s
}

// Shutdown stops the listener and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds request logging, security headers and rate
// limiting on mutating requests.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter captures the status code for the completion log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Simple in-memory per-IP rate limiter: 60 requests a minute.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}
	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
