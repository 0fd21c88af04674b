// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/ratelimit"
)

// MaxBodyBytes bounds every JSON request body
const MaxBodyBytes = 64 << 10

// Error codes written by this package
const (
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
)

// clientIPHeaders in trust order: the hosting edge, then generic proxies
var clientIPHeaders = []string{"X-Nf-Client-Connection-Ip", "X-Forwarded-For", "X-Real-Ip", "Client-Ip"}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	CodedErrorResponse(w, statusCode, "", message)
}

// CodedErrorResponse writes a JSON error response carrying a machine-readable
// code
func CodedErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    code,
		Message: message,
	})
}

// ParseJSONBody parses the request body into the given struct. Bodies over
// MaxBodyBytes are rejected.
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes)).Decode(v); err != nil {
		return err
	}
	return nil
}

// CORS allows cross-origin requests from the vote pages and the admin
// dashboard. An empty origin list allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Admin-Key"},
		MaxAge:         600,
	})
	return c.Handler
}

// RequireAdminKey rejects requests whose X-Admin-Key does not match key
func RequireAdminKey(key string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), key); err != nil {
			slog.Warn("admin key rejected", "path", r.URL.Path, "remote", GetClientIP(r))
			CodedErrorResponse(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid admin key")
			return
		}
		next(w, r)
	}
}

// RateLimit counts requests per hashed client IP. Limiter failures let the
// request through.
func RateLimit(l ratelimit.Limiter, salt string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if l == nil {
			next(w, r)
			return
		}

		key := auth.HashIP(GetClientIP(r), salt)
		d, err := l.Allow(r.Context(), key)
		if err != nil {
			slog.Warn("rate limiter unavailable", "error", err)
			next(w, r)
			return
		}
		if !d.Allowed {
			wait := d.RetryAfter(time.Now())
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)))
			CodedErrorResponse(w, http.StatusTooManyRequests, CodeRateLimited, "Too many requests")
			return
		}
		next(w, r)
	}
}

// IsBodyTooLarge reports whether err came from exceeding MaxBodyBytes
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// GetClientIP extracts the client IP address
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr
func GetClientIP(r *http.Request) string {
	for _, h := range clientIPHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		// proxies append; the client is first
		first, _, _ := strings.Cut(v, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
