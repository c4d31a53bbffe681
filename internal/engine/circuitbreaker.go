package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker guards the outbound channel (the mail relay) using Redis.
// When the relay keeps failing, the breaker opens and the dispatcher skips
// sends for the rest of the cooldown instead of burning the retry budget
// of every queued message against a dead provider.
//
// State transitions: closed → open → half-open → closed
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
}

// CircuitState represents the current state of a channel's circuit.
type CircuitState struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

func NewCircuitBreaker(redisClient *redis.Client, logger *slog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: 5,
		cooldownPeriod:   10 * time.Minute,
	}
}

func cbKey(channel string) string {
	return fmt.Sprintf("cb:channel:%s", channel)
}

// AllowRequest checks whether a send through this channel is allowed.
// Returns the current state and whether the send should proceed.
func (cb *CircuitBreaker) AllowRequest(ctx context.Context, channel string) (string, bool) {
	key := cbKey(channel)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		// No state yet — circuit is closed (default)
		return StateClosed, true
	}

	state := data["state"]
	lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)

	switch state {
	case StateOpen:
		if time.Now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds()) {
			// Cooldown elapsed: allow one test send
			cb.redisClient.HSet(ctx, key, "state", StateHalfOpen)
			cb.logger.Info("channel circuit half-open", "channel", channel)
			return StateHalfOpen, true
		}
		return StateOpen, false

	case StateHalfOpen:
		return StateHalfOpen, true

	default:
		return StateClosed, true
	}
}

// RecordSuccess resets the circuit to closed after a successful send.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, channel string) {
	key := cbKey(channel)

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	cb.redisClient.HSet(ctx, key,
		"state", StateClosed,
		"failures", 0,
	)

	if state == StateHalfOpen {
		cb.logger.Info("channel circuit closed (recovered)", "channel", channel)
	}
}

// RecordFailure counts a failed send and opens the circuit at the threshold.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, channel string) {
	key := cbKey(channel)

	failures, err := cb.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		cb.logger.Error("failed to record channel failure", "error", err)
		return
	}

	cb.redisClient.HSet(ctx, key, "last_failed_at", time.Now().Unix())

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	if state == StateHalfOpen {
		// Half-open test failed → back to open
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("channel circuit re-opened (half-open test failed)", "channel", channel)
	} else if failures >= int64(cb.failureThreshold) {
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("channel circuit opened",
			"channel", channel,
			"failures", failures,
			"threshold", cb.failureThreshold,
		)
	} else if state == "" {
		cb.redisClient.HSet(ctx, key, "state", StateClosed)
	}
}

// GetState returns the current circuit state for a channel.
func (cb *CircuitBreaker) GetState(ctx context.Context, channel string) CircuitState {
	key := cbKey(channel)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		return CircuitState{State: StateClosed}
	}

	failures, _ := strconv.Atoi(data["failures"])
	state := data["state"]
	if state == "" {
		state = StateClosed
	}

	if state == StateOpen {
		lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
		if time.Now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds()) {
			state = StateHalfOpen
		}
	}

	result := CircuitState{
		State:    state,
		Failures: failures,
	}

	if ts, ok := data["last_failed_at"]; ok && ts != "" {
		lastFailed, _ := strconv.ParseInt(ts, 10, 64)
		if lastFailed > 0 {
			result.LastFailedAt = time.Unix(lastFailed, 0).Format(time.RFC3339)
		}
	}

	return result
}
