package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SendLimiter enforces the rolling daily send cap per campaign using a
// Redis counter keyed by campaign and UTC day. A Lua script atomically
// checks the count and increments, so a crash between check and send can
// at worst under-count, never over-send past the cap.
type SendLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
}

// Lua script for the daily cap.
// 1. Read the current count for the day
// 2. If at/over the cap, return 0 (denied) without incrementing
// 3. Otherwise increment, set the key to expire with the day, return 1
var dailyCapScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local count = tonumber(redis.call('GET', key) or '0')
if count >= limit then
    return 0
end

count = redis.call('INCR', key)
if count == 1 then
    redis.call('EXPIRE', key, ttl)
end
return 1
`)

func NewSendLimiter(redisClient *redis.Client, logger *slog.Logger) *SendLimiter {
	return &SendLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      dailyCapScript,
	}
}

func capKey(campaignID string, day time.Time) string {
	return fmt.Sprintf("sendcap:%s:%s", campaignID, day.UTC().Format("2006-01-02"))
}

// Allow reserves one send against the campaign's daily cap. Returns false
// when the cap for the current UTC day is exhausted.
func (sl *SendLimiter) Allow(ctx context.Context, campaignID string, cap int) bool {
	if cap <= 0 {
		return true // No cap configured
	}

	now := time.Now().UTC()
	key := capKey(campaignID, now)

	// Expire at end of day plus an hour of slack
	midnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	ttl := int64(midnight.Sub(now).Seconds()) + 3600

	result, err := sl.script.Run(ctx, sl.redisClient, []string{key}, cap, ttl).Int64()
	if err != nil {
		sl.logger.Error("send limiter script failed", "error", err, "campaign_id", campaignID)
		return true // Fail open — a lost counter must not stall outreach
	}

	if result == 0 {
		sl.logger.Debug("daily send cap reached",
			"campaign_id", campaignID,
			"cap", cap,
		)
		return false
	}

	return true
}

// Used returns today's consumed count for a campaign.
func (sl *SendLimiter) Used(ctx context.Context, campaignID string) (int, error) {
	n, err := sl.redisClient.Get(ctx, capKey(campaignID, time.Now())).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading send cap counter: %w", err)
	}
	return n, nil
}
