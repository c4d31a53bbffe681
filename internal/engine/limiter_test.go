package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupLimiter(t *testing.T) (*SendLimiter, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSendLimiter(client, testLogger()), client
}

func TestSendLimiterEnforcesCap(t *testing.T) {
	sl, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !sl.Allow(ctx, "camp-1", 3) {
			t.Fatalf("send %d denied under cap", i+1)
		}
	}
	if sl.Allow(ctx, "camp-1", 3) {
		t.Error("send allowed past the cap")
	}

	used, err := sl.Used(ctx, "camp-1")
	if err != nil {
		t.Fatalf("Used: %v", err)
	}
	if used != 3 {
		t.Errorf("used = %d, want 3", used)
	}
}

func TestSendLimiterDeniedSendDoesNotCount(t *testing.T) {
	sl, _ := setupLimiter(t)
	ctx := context.Background()

	sl.Allow(ctx, "camp-1", 1)
	sl.Allow(ctx, "camp-1", 1) // denied
	sl.Allow(ctx, "camp-1", 1) // denied

	used, err := sl.Used(ctx, "camp-1")
	if err != nil {
		t.Fatalf("Used: %v", err)
	}
	if used != 1 {
		t.Errorf("used = %d after denied attempts, want 1", used)
	}
}

func TestSendLimiterZeroCapIsUnlimited(t *testing.T) {
	sl, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if !sl.Allow(ctx, "camp-1", 0) {
			t.Fatal("send denied with no cap configured")
		}
	}
}

func TestSendLimiterIsolatesCampaigns(t *testing.T) {
	sl, _ := setupLimiter(t)
	ctx := context.Background()

	sl.Allow(ctx, "camp-1", 1)
	if sl.Allow(ctx, "camp-1", 1) {
		t.Error("camp-1 allowed past its cap")
	}
	if !sl.Allow(ctx, "camp-2", 1) {
		t.Error("camp-2 blocked by camp-1's counter")
	}
}

func TestSendLimiterFailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	sl := NewSendLimiter(client, testLogger())

	mr.Close()

	if !sl.Allow(context.Background(), "camp-1", 5) {
		t.Error("send denied when redis is unreachable, want fail open")
	}
}
