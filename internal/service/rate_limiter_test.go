package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryRateLimiter_BlocksAfterMax(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 2)
	ctx := context.Background()

	if !limiter.Allow(ctx, "1.2.3.4") || !limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("expected first two requests to pass")
	}
	if limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("expected third request to be blocked")
	}
	if !limiter.Allow(ctx, "5.6.7.8") {
		t.Fatalf("expected other key to pass")
	}
}

func TestMemoryRateLimiter_SweepsIdleKeys(t *testing.T) {
	limiter := newMemoryRateLimiter(time.Minute, 5)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		limiter.Allow(ctx, ip)
	}
	if len(limiter.hits) != 3 {
		t.Fatalf("expected 3 tracked keys, got %d", len(limiter.hits))
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow(ctx, "10.0.0.4") {
		t.Fatalf("expected new key to pass")
	}
	if len(limiter.hits) != 1 {
		t.Fatalf("expected idle keys to be dropped, got %d", len(limiter.hits))
	}
	if _, ok := limiter.hits["10.0.0.4"]; !ok {
		t.Fatalf("expected active key to be kept")
	}
}

func TestRedisRateLimiter_BlocksAfterMax(t *testing.T) {
	client := newTestRedis(t)
	limiter := NewRedisRateLimiter(client, "rl:test:", time.Minute, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !limiter.Allow(ctx, "1.2.3.4") {
			t.Fatalf("expected request %d to pass", i+1)
		}
	}
	if limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("expected third request to be blocked")
	}
	ttl := client.TTL(ctx, "rl:test:1.2.3.4").Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected key ttl within window, got %s", ttl)
	}
}

func TestRedisRateLimiter_NilClient(t *testing.T) {
	if NewRedisRateLimiter(nil, "", time.Minute, 1) != nil {
		t.Fatalf("expected nil limiter without client")
	}
}

type failingEvaler struct{}

func (failingEvaler) Eval(ctx context.Context, _ string, _ []string, _ ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	cmd.SetErr(errors.New("connection refused"))
	return cmd
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	limiter := &redisRateLimiter{client: failingEvaler{}, window: time.Minute, max: 1, prefix: "rl:"}
	for i := 0; i < 3; i++ {
		if !limiter.Allow(context.Background(), "1.2.3.4") {
			t.Fatalf("expected limiter to fail open")
		}
	}
}
