package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/config"
	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/arnab-netizen/AICMO-sub004/internal/engine"
	"github.com/arnab-netizen/AICMO-sub004/internal/mail"
)

// outboundChannel is the circuit breaker key for the mail relay.
const outboundChannel = "relay"

// MessageStore defines the message persistence the dispatcher needs.
type MessageStore interface {
	ListDueMessages(ctx context.Context, limit int) ([]domain.OutboundMessage, error)
	MarkMessageSent(ctx context.Context, id, providerMessageID string) (bool, error)
	RescheduleMessage(ctx context.Context, id string, nextAt time.Time, reason string) error
	MarkMessageFailed(ctx context.Context, id, reason string) error
}

// ContactStore records the lead-side effect of a completed send.
type ContactStore interface {
	MarkLeadContacted(ctx context.Context, leadID string, step int, at time.Time) error
}

// CampaignDirectory exposes the campaigns eligible for work this cycle.
type CampaignDirectory interface {
	ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)
}

// Dispatcher sends due queued messages through the channel sender,
// honoring the per-cycle batch cap and each campaign's rolling daily cap.
type Dispatcher struct {
	messages  MessageStore
	leads     ContactStore
	campaigns CampaignDirectory
	sender    mail.ChannelSender
	limiter   *engine.SendLimiter
	breaker   *engine.CircuitBreaker
	cfg       config.WorkerConfig
	logger    *slog.Logger
}

func NewDispatcher(
	messages MessageStore,
	leads ContactStore,
	campaigns CampaignDirectory,
	sender mail.ChannelSender,
	limiter *engine.SendLimiter,
	breaker *engine.CircuitBreaker,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		messages:  messages,
		leads:     leads,
		campaigns: campaigns,
		sender:    sender,
		limiter:   limiter,
		breaker:   breaker,
		cfg:       cfg,
		logger:    logger,
	}
}

// DispatchDue sends every due queued message, within caps. One message's
// failure never aborts the rest of the batch. Returns sent and failed
// counts for the cycle log line.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, int, error) {
	campaigns, err := d.campaigns.ListActiveCampaigns(ctx)
	if err != nil {
		return 0, 0, err
	}

	capByCampaign := make(map[string]int, len(campaigns))
	for _, c := range campaigns {
		dailyCap := c.DailySendCap
		if dailyCap <= 0 {
			dailyCap = d.cfg.DailySendCap
		}
		capByCampaign[c.ID] = dailyCap
	}

	msgs, err := d.messages.ListDueMessages(ctx, d.cfg.BatchCap)
	if err != nil {
		return 0, 0, err
	}

	var sent, failed int
	cappedOut := make(map[string]bool)

	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}
		if cappedOut[msg.CampaignID] {
			continue
		}

		if state, ok := d.breaker.AllowRequest(ctx, outboundChannel); !ok {
			d.logger.Warn("outbound channel circuit open, deferring remaining sends", "state", state)
			break
		}

		if !d.limiter.Allow(ctx, msg.CampaignID, capByCampaign[msg.CampaignID]) {
			cappedOut[msg.CampaignID] = true
			d.logger.Info("daily send cap reached, skipping campaign for this cycle",
				"campaign_id", msg.CampaignID,
			)
			continue
		}

		if d.send(ctx, msg) {
			sent++
		} else {
			failed++
		}
	}

	return sent, failed, nil
}

func (d *Dispatcher) send(ctx context.Context, msg domain.OutboundMessage) bool {
	headers := map[string]string{
		// The relay can use this for its own dedupe; our unique key on
		// (lead, fingerprint, sequence) does not depend on it.
		"X-Idempotency-Key": msg.Fingerprint,
	}

	result, err := d.sender.Send(ctx, msg.Recipient, msg.Subject, msg.Body, headers)
	if err != nil {
		d.breaker.RecordFailure(ctx, outboundChannel)
		d.handleSendFailure(ctx, msg, err)
		return false
	}
	d.breaker.RecordSuccess(ctx, outboundChannel)

	now := time.Now().UTC()
	marked, err := d.messages.MarkMessageSent(ctx, msg.ID, result.ProviderMessageID)
	if err != nil {
		d.logger.Error("failed to mark message sent",
			"error", err,
			"message_id", msg.ID,
		)
		return false
	}
	if !marked {
		// Another run already recorded this send.
		d.logger.Warn("message was already marked sent", "message_id", msg.ID)
		return false
	}

	if err := d.leads.MarkLeadContacted(ctx, msg.LeadID, msg.SequenceNumber, now); err != nil {
		d.logger.Error("failed to mark lead contacted",
			"error", err,
			"lead_id", msg.LeadID,
		)
	}

	d.logger.Info("message sent",
		"message_id", msg.ID,
		"lead_id", msg.LeadID,
		"campaign_id", msg.CampaignID,
		"sequence_number", msg.SequenceNumber,
		"provider_message_id", result.ProviderMessageID,
	)
	return true
}

func (d *Dispatcher) handleSendFailure(ctx context.Context, msg domain.OutboundMessage, sendErr error) {
	if msg.RetryCount+1 > d.cfg.MaxRetries {
		if err := d.messages.MarkMessageFailed(ctx, msg.ID, sendErr.Error()); err != nil {
			d.logger.Error("failed to mark message failed", "error", err, "message_id", msg.ID)
			return
		}
		d.logger.Warn("message retired after exhausting retries",
			"message_id", msg.ID,
			"retries", msg.RetryCount+1,
			"error", sendErr.Error(),
		)
		return
	}

	delay := retryBackoff(msg.RetryCount)
	if err := d.messages.RescheduleMessage(ctx, msg.ID, time.Now().UTC().Add(delay), sendErr.Error()); err != nil {
		d.logger.Error("failed to reschedule message", "error", err, "message_id", msg.ID)
		return
	}
	d.logger.Warn("send failed, rescheduled",
		"message_id", msg.ID,
		"retry", msg.RetryCount+1,
		"delay", delay.String(),
		"error", sendErr.Error(),
	)
}

// retryBackoff doubles from a 10 minute base and tops out at 6 hours.
func retryBackoff(retryCount int) time.Duration {
	const (
		base = 10 * time.Minute
		max  = 6 * time.Hour
	)

	delay := base
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return delay
}
