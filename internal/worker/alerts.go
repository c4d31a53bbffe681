package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/arnab-netizen/AICMO-sub004/internal/mail"
)

// AlertStore defines the persistence the alert dispatcher needs.
type AlertStore interface {
	ListAlertPendingReplies(ctx context.Context, limit int) ([]domain.InboundReply, error)
	MarkReplyAlerted(ctx context.Context, id string) (bool, error)
	InsertAlertLog(ctx context.Context, e *domain.AlertLogEntry) (bool, error)
}

// AlertDispatcher notifies a human exactly once per positive reply. The
// alert-sent flag plus the alert log's idempotency key keep the guarantee
// across crashes: a notified reply is never reselected, and a duplicate
// log insert is a no-op.
type AlertDispatcher struct {
	store      AlertStore
	notifier   mail.Notifier
	recipients string
	batchSize  int
	logger     *slog.Logger
}

func NewAlertDispatcher(store AlertStore, notifier mail.Notifier, recipients string, logger *slog.Logger) *AlertDispatcher {
	return &AlertDispatcher{
		store:      store,
		notifier:   notifier,
		recipients: recipients,
		batchSize:  50,
		logger:     logger,
	}
}

// DispatchPending notifies for every positive reply still awaiting an
// alert. A notifier failure leaves the flag untouched so the next cycle
// retries that reply.
func (a *AlertDispatcher) DispatchPending(ctx context.Context) (int, error) {
	replies, err := a.store.ListAlertPendingReplies(ctx, a.batchSize)
	if err != nil {
		return 0, err
	}

	var notified int
	for _, reply := range replies {
		if ctx.Err() != nil {
			break
		}

		title := fmt.Sprintf("Positive reply from %s", reply.FromAddress)
		message := reply.Subject
		if message == "" {
			message = snippet(reply.Body, 140)
		}

		metadata := map[string]string{
			"reply_id": reply.ID,
			"from":     reply.FromAddress,
		}
		if reply.LeadID != nil {
			metadata["lead_id"] = *reply.LeadID
		}
		if reply.CampaignID != nil {
			metadata["campaign_id"] = *reply.CampaignID
		}

		if err := a.notifier.Notify(ctx, title, message, metadata); err != nil {
			a.logger.Error("notification failed, will retry next cycle",
				"error", err,
				"reply_id", reply.ID,
			)
			continue
		}

		marked, err := a.store.MarkReplyAlerted(ctx, reply.ID)
		if err != nil {
			a.logger.Error("failed to mark reply alerted", "error", err, "reply_id", reply.ID)
			continue
		}
		if !marked {
			continue
		}

		entry := &domain.AlertLogEntry{
			IdempotencyKey: alertKey(reply),
			ReplyID:        reply.ID,
			Recipients:     a.recipients,
			Success:        true,
		}
		if _, err := a.store.InsertAlertLog(ctx, entry); err != nil {
			a.logger.Error("failed to write alert log entry", "error", err, "reply_id", reply.ID)
		}

		notified++
		a.logger.Info("human alerted on positive reply",
			"reply_id", reply.ID,
			"from", reply.FromAddress,
		)
	}
	return notified, nil
}

// alertKey derives the idempotency key from the reply's provider identity,
// which is itself unique per mailbox message.
func alertKey(reply domain.InboundReply) string {
	sum := sha256.Sum256([]byte(reply.Provider + "/" + reply.ProviderUID))
	return hex.EncodeToString(sum[:])
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
