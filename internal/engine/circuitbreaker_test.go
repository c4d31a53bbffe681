package engine

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupBreaker(t *testing.T) (*CircuitBreaker, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCircuitBreaker(client, testLogger()), client
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb, _ := setupBreaker(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		cb.RecordFailure(ctx, "relay")
		if state, allowed := cb.AllowRequest(ctx, "relay"); !allowed {
			t.Fatalf("circuit %s after %d failures, want still closed", state, i+1)
		}
	}

	cb.RecordFailure(ctx, "relay")
	state, allowed := cb.AllowRequest(ctx, "relay")
	if allowed || state != StateOpen {
		t.Errorf("after 5 failures state=%s allowed=%v, want open/false", state, allowed)
	}
}

func TestCircuitBreakerSuccessResets(t *testing.T) {
	cb, _ := setupBreaker(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		cb.RecordFailure(ctx, "relay")
	}
	cb.RecordSuccess(ctx, "relay")
	cb.RecordFailure(ctx, "relay")

	if state, allowed := cb.AllowRequest(ctx, "relay"); !allowed {
		t.Errorf("circuit %s after a reset plus one failure, want closed", state)
	}
}

func TestCircuitBreakerHalfOpenAfterCooldown(t *testing.T) {
	cb, client := setupBreaker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cb.RecordFailure(ctx, "relay")
	}
	if _, allowed := cb.AllowRequest(ctx, "relay"); allowed {
		t.Fatal("circuit should be open")
	}

	// Age the last failure past the cooldown window.
	past := time.Now().Add(-11 * time.Minute).Unix()
	client.HSet(ctx, "cb:channel:relay", "last_failed_at", past)

	state, allowed := cb.AllowRequest(ctx, "relay")
	if !allowed || state != StateHalfOpen {
		t.Errorf("after cooldown state=%s allowed=%v, want half-open/true", state, allowed)
	}
}

func TestCircuitBreakerHalfOpenOutcomes(t *testing.T) {
	cb, client := setupBreaker(t)
	ctx := context.Background()

	openThenCooldown := func() {
		client.Del(ctx, "cb:channel:relay")
		for i := 0; i < 5; i++ {
			cb.RecordFailure(ctx, "relay")
		}
		past := time.Now().Add(-11 * time.Minute).Unix()
		client.HSet(ctx, "cb:channel:relay", "last_failed_at", past)
		cb.AllowRequest(ctx, "relay") // transitions to half-open
	}

	// Test send succeeds: circuit closes.
	openThenCooldown()
	cb.RecordSuccess(ctx, "relay")
	if state, allowed := cb.AllowRequest(ctx, "relay"); !allowed || state != StateClosed {
		t.Errorf("after half-open success state=%s allowed=%v, want closed/true", state, allowed)
	}

	// Test send fails: straight back to open.
	openThenCooldown()
	cb.RecordFailure(ctx, "relay")
	if state, allowed := cb.AllowRequest(ctx, "relay"); allowed || state != StateOpen {
		t.Errorf("after half-open failure state=%s allowed=%v, want open/false", state, allowed)
	}
}

func TestCircuitBreakerChannelsAreIndependent(t *testing.T) {
	cb, _ := setupBreaker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cb.RecordFailure(ctx, "relay")
	}
	if _, allowed := cb.AllowRequest(ctx, "relay"); allowed {
		t.Error("relay circuit should be open")
	}
	if _, allowed := cb.AllowRequest(ctx, "backup-relay"); !allowed {
		t.Error("backup-relay blocked by relay's failures")
	}
}

func TestCircuitBreakerGetState(t *testing.T) {
	cb, _ := setupBreaker(t)
	ctx := context.Background()

	if st := cb.GetState(ctx, "relay"); st.State != StateClosed {
		t.Errorf("fresh channel state = %s, want closed", st.State)
	}

	cb.RecordFailure(ctx, "relay")
	cb.RecordFailure(ctx, "relay")
	st := cb.GetState(ctx, "relay")
	if st.State != StateClosed || st.Failures != 2 {
		t.Errorf("state = %s failures = %d, want closed/2", st.State, st.Failures)
	}
	if st.LastFailedAt == "" {
		t.Error("last_failed_at not recorded")
	}
}
