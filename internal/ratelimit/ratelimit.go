// Package ratelimit implements a Redis-backed token bucket shared by every
// instance of the portal.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// The bucket refills one token per interval up to capacity. State lives in a
// hash that expires once a full bucket would have been refilled.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals)
	last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_ms }
`)

type RedisLimiter struct {
	rdb      redis.Scripter
	prefix   string
	capacity int
	interval time.Duration
	now      func() time.Time
}

func NewRedisLimiter(rdb redis.Scripter, prefix string, capacity int, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:      rdb,
		prefix:   prefix,
		capacity: capacity,
		interval: interval,
		now:      time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	ttl := l.interval * time.Duration(l.capacity)
	if ttl < time.Second {
		ttl = time.Second
	}
	args := []any{
		l.now().UnixMilli(),
		l.capacity,
		l.interval.Milliseconds(),
		int64(ttl / time.Second),
	}

	vals, err := tokenBucket.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, args...).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	res, err := parseResult(vals)
	if err != nil {
		return Result{}, err
	}
	res.Limit = l.capacity
	return res, nil
}

func parseResult(vals []any) (Result, error) {
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("rate limit script: unexpected result %#v", vals)
	}
	allowed, err := asInt64(vals[0])
	if err != nil {
		return Result{}, err
	}
	remaining, err := asInt64(vals[1])
	if err != nil {
		return Result{}, err
	}
	retryMs, err := asInt64(vals[2])
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:    allowed == 1,
		Remaining:  remaining,
		RetryAfter: time.Duration(retryMs) * time.Millisecond,
	}, nil
}

func asInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("rate limit script: unexpected value %#v", v)
	}
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
