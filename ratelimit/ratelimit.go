// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ratelimit counts requests per key in fixed clock windows.
//
// RedisLimiter shares counters across instances. MemoryLimiter keeps them in
// process and is used when no Redis is configured.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vocaltworld/micropoll/clock"
)

// Decision is the result of one Allow call
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long until the window resets, never negative
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// windowStart aligns now to the beginning of its window
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	clock  clock.Clock
}

// NewRedis creates a limiter allowing limit requests per window per key
func NewRedis(client *redis.Client, limit int, window time.Duration, clk clock.Clock) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "micropoll:rl:", clock: clk}
}

// Allow increments the counter for key in the current window. The counter
// key carries the window start so it expires on its own.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	start := windowStart(l.clock.Now(), l.window)
	reset := start.Add(l.window)
	redisKey := l.prefix + key + ":" + strconv.FormatInt(start.Unix(), 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}

	return decide(int(incr.Val()), l.limit, reset), nil
}

type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	clock  clock.Clock
	start  time.Time
	counts map[string]int
}

// NewMemory creates an in-process limiter with the same window semantics as
// RedisLimiter. Counts from the previous window are dropped on rollover.
func NewMemory(limit int, window time.Duration, clk clock.Clock) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &MemoryLimiter{limit: limit, window: window, clock: clk, counts: make(map[string]int)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	start := windowStart(l.clock.Now(), l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !start.Equal(l.start) {
		l.start = start
		clear(l.counts)
	}
	l.counts[key]++

	return decide(l.counts[key], l.limit, start.Add(l.window)), nil
}

func decide(count, limit int, reset time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= limit, Remaining: remaining, ResetAt: reset}
}
