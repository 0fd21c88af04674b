// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("POST /vote", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms).

# CORS Middleware

Allow the vote pages and the admin dashboard to call the API:

	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
	}

Backed by github.com/rs/cors. Allows GET, POST and OPTIONS with the
Content-Type and X-Admin-Key headers. An empty origin list allows any origin.

# Admin Key

	mux.HandleFunc("GET /admin/polls", middleware.RequireAdminKey(cfg.AdminKey, h.ListPolls))

Requests without a matching X-Admin-Key header get 401 "unauthorized".

# Rate Limiting

	mux.HandleFunc("GET /link", middleware.RateLimit(limiter, salt, h.IssueLink))

Counts requests per hashed client IP. Over the limit the response is 429
"rate_limited" with a Retry-After header. If the limiter itself fails the
request is let through and a warning is logged.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.CodedErrorResponse(w, http.StatusUnauthorized, "invalid_token", "link invalid or expired")

ParseJSONBody decodes request bodies up to MaxBodyBytes.

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Checks X-Nf-Client-Connection-Ip, X-Forwarded-For (first entry), X-Real-Ip
and Client-Ip, then the host part of RemoteAddr.
*/
package middleware
