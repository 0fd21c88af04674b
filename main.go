package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vocaltworld/micropoll/cliparse"
	"github.com/vocaltworld/micropoll/clock"
	"github.com/vocaltworld/micropoll/db"
	"github.com/vocaltworld/micropoll/middleware"
	"github.com/vocaltworld/micropoll/ratelimit"
	"github.com/vocaltworld/micropoll/router"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/store/mongostore"
	"github.com/vocaltworld/micropoll/store/postgrest"
	"github.com/vocaltworld/micropoll/store/sqlstore"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	s, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("store setup failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer s.Close()
	slog.Info("Store ready", "type", cfg.DatabaseType)

	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	// Create router
	mux := router.NewRouter(s, cfg, limiter, clock.Real())

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(cfg.AllowedOrigins)(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "link_ttl", cfg.LinkTTL.String())
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed")
	}
}

// openStore connects the configured backend. SQL backends get their schema
// created on startup.
func openStore(ctx context.Context, cfg cliparse.Config) (store.Store, error) {
	switch cfg.DatabaseType {
	case cliparse.DBSQLite, cliparse.DBPostgres:
		s, err := sqlstore.Open(cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.CreateSchema(s.DB()); err != nil {
			s.Close()
			return nil, fmt.Errorf("schema creation failed: %w", err)
		}
		return s, nil
	case cliparse.DBMongo:
		return mongostore.Open(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
	case cliparse.DBPostgREST:
		return postgrest.New(cfg.DatabaseURL, cfg.ServiceKey, nil), nil
	}
	return nil, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
}

// newLimiter returns the /link limiter: Redis when REDIS_URL is set and
// reachable, otherwise in-process counters. A non-positive limit disables it.
func newLimiter(cfg cliparse.Config) (ratelimit.Limiter, func()) {
	if cfg.LinkRateLimit <= 0 {
		slog.Info("link rate limiting disabled")
		return nil, func() {}
	}

	memory := func() (ratelimit.Limiter, func()) {
		return ratelimit.NewMemory(cfg.LinkRateLimit, cfg.RateWindow, nil), func() {}
	}
	if cfg.RedisURL == "" {
		return memory()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Warn("invalid REDIS_URL, using in-memory rate limits", "error", err)
		return memory()
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, using in-memory rate limits", "error", err)
		client.Close()
		return memory()
	}

	slog.Info("link rate limiting via redis", "limit", cfg.LinkRateLimit, "window", cfg.RateWindow.String())
	return ratelimit.NewRedis(client, cfg.LinkRateLimit, cfg.RateWindow, nil), func() { client.Close() }
}
