package worker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/arnab-netizen/AICMO-sub004/internal/mail"
)

// ReplyIngestStore defines the persistence the ingestor needs.
type ReplyIngestStore interface {
	InsertReply(ctx context.Context, r *domain.InboundReply) (bool, error)
	GetCheckpoint(ctx context.Context, provider string) (time.Time, error)
	SetCheckpoint(ctx context.Context, provider string, t time.Time) error
	GetLeadByEmail(ctx context.Context, email string) (*domain.Lead, error)
}

// Ingestor polls the inbox provider for messages past the durable
// checkpoint and persists them with insert-or-ignore dedupe.
type Ingestor struct {
	store    ReplyIngestStore
	provider mail.InboxProvider
	name     string
	logger   *slog.Logger
}

func NewIngestor(store ReplyIngestStore, provider mail.InboxProvider, providerName string, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		store:    store,
		provider: provider,
		name:     providerName,
		logger:   logger,
	}
}

// FetchNewReplies pulls one poll window and stores it. The checkpoint
// only advances after every message in the window persisted cleanly, so
// a partial failure makes the next cycle retry the same window — dedupe
// absorbs the overlap.
func (in *Ingestor) FetchNewReplies(ctx context.Context) (int, error) {
	since, err := in.store.GetCheckpoint(ctx, in.name)
	if err != nil {
		return 0, err
	}

	messages, err := in.provider.FetchSince(ctx, since)
	if err != nil {
		in.logger.Error("inbox poll failed, checkpoint unchanged", "error", err, "provider", in.name)
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	var (
		ingested   int
		anyFailed  bool
		latestSeen time.Time
	)

	for _, m := range messages {
		reply := &domain.InboundReply{
			Provider:    in.name,
			ProviderUID: m.ProviderUID,
			FromAddress: strings.ToLower(strings.TrimSpace(m.From)),
			Subject:     m.Subject,
			Body:        m.Body,
			ReceivedAt:  m.ReceivedAt,
		}

		lead, err := in.store.GetLeadByEmail(ctx, reply.FromAddress)
		if err != nil {
			in.logger.Error("lead lookup failed", "error", err, "from", reply.FromAddress)
		} else if lead != nil {
			reply.LeadID = &lead.ID
			reply.CampaignID = &lead.CampaignID
		}

		inserted, err := in.store.InsertReply(ctx, reply)
		if err != nil {
			anyFailed = true
			in.logger.Error("failed to persist reply",
				"error", err,
				"provider_uid", m.ProviderUID,
			)
			continue
		}
		if inserted {
			ingested++
		}
		if m.ReceivedAt.After(latestSeen) {
			latestSeen = m.ReceivedAt
		}
	}

	if !anyFailed && !latestSeen.IsZero() {
		if err := in.store.SetCheckpoint(ctx, in.name, latestSeen); err != nil {
			in.logger.Error("failed to advance checkpoint", "error", err, "provider", in.name)
		}
	}

	if ingested > 0 {
		in.logger.Info("ingested replies",
			"provider", in.name,
			"fetched", len(messages),
			"new", ingested,
		)
	}
	return ingested, nil
}
