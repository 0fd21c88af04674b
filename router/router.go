// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/vocaltworld/micropoll/cliparse"
	"github.com/vocaltworld/micropoll/clock"
	"github.com/vocaltworld/micropoll/handlers"
	"github.com/vocaltworld/micropoll/middleware"
	"github.com/vocaltworld/micropoll/ratelimit"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/voting"
)

// NewRouter wires every endpoint. limiter may be nil to disable rate
// limiting of /link.
func NewRouter(s store.Store, cfg cliparse.Config, limiter ratelimit.Limiter, clk clock.Clock) *http.ServeMux {
	mux := http.NewServeMux()

	secret := []byte(cfg.PollSecret)
	issuer := voting.NewIssuer(secret, cfg.LinkTTL, clk)
	recorder := voting.NewRecorder(secret, s, s, clk, cfg.StoreVoterEmail)

	linkHandler := handlers.NewLinkHandler(s, issuer, cfg)
	voteHandler := handlers.NewVoteHandler(recorder)
	pollHandler := handlers.NewPollHandler(s)
	adminHandler := handlers.NewAdminHandler(s)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdminKey(cfg.AdminKey, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Link issuance (campaign links, vote page fallback)
	issue := middleware.WithLogging(middleware.RateLimit(limiter, cfg.RateLimitSalt, linkHandler.IssueLink))
	mux.HandleFunc("GET /link", issue)
	mux.HandleFunc("POST /link", issue)

	// Voting (public, token authenticated)
	mux.HandleFunc("POST /vote", middleware.WithLogging(voteHandler.SubmitVote))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))

	// Admin dashboard
	mux.HandleFunc("GET /admin/polls", admin(adminHandler.ListPolls))
	mux.HandleFunc("POST /admin/polls", admin(adminHandler.CreatePoll))
	mux.HandleFunc("POST /admin/polls/{id}/active", admin(adminHandler.SetActive))
	mux.HandleFunc("GET /admin/polls/{id}/results", admin(adminHandler.GetResults))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("micropoll API v1"))
	})

	return mux
}
