package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/arnab-netizen/AICMO-sub004/internal/engine"
)

// FollowUpStore defines the persistence the follow-up engine needs.
type FollowUpStore interface {
	ListUnclassifiedReplies(ctx context.Context, limit int) ([]domain.InboundReply, error)
	SetReplyClassification(ctx context.Context, id string, category domain.ReplyCategory, confidence float64, reason string) (bool, error)
	GetLead(ctx context.Context, id string) (*domain.Lead, error)
	SetLeadState(ctx context.Context, leadID string, state domain.LeadState) error
	MarkLeadReplied(ctx context.Context, leadID string, at time.Time) error
	ListSweepableLeads(ctx context.Context, cutoff time.Time, limit int) ([]domain.Lead, error)
	GetSequenceStep(ctx context.Context, campaignID string, stepNumber int) (*domain.SequenceStep, error)
	EnqueueMessage(ctx context.Context, m *domain.OutboundMessage) (bool, error)
	CountQueuedForLead(ctx context.Context, leadID string) (int, error)
}

// FollowUpEngine owns the lead lifecycle: it turns classified replies into
// state transitions and advances quiet leads through their sequence.
type FollowUpEngine struct {
	store     FollowUpStore
	batchSize int
	logger    *slog.Logger
}

func NewFollowUpEngine(store FollowUpStore, logger *slog.Logger) *FollowUpEngine {
	return &FollowUpEngine{
		store:     store,
		batchSize: 200,
		logger:    logger,
	}
}

// ProcessNewReplies classifies every reply the classifier has not seen and
// applies the resulting lead transition. Replies are selected by their
// missing classification, so reprocessing after a crash picks up exactly
// where the previous run stopped.
func (f *FollowUpEngine) ProcessNewReplies(ctx context.Context) (int, error) {
	replies, err := f.store.ListUnclassifiedReplies(ctx, f.batchSize)
	if err != nil {
		return 0, err
	}

	var processed int
	for _, reply := range replies {
		if ctx.Err() != nil {
			break
		}

		verdict := engine.Classify(reply.Subject, reply.Body)

		won, err := f.store.SetReplyClassification(ctx, reply.ID, verdict.Category, verdict.Confidence, verdict.Reason)
		if err != nil {
			f.logger.Error("failed to record classification", "error", err, "reply_id", reply.ID)
			continue
		}
		if !won {
			// Another run already handled this reply.
			continue
		}

		f.logger.Info("reply classified",
			"reply_id", reply.ID,
			"category", verdict.Category,
			"confidence", verdict.Confidence,
			"reason", verdict.Reason,
		)

		if reply.LeadID != nil {
			f.applyTransition(ctx, *reply.LeadID, verdict.Category, reply.ReceivedAt)
		}
		processed++
	}
	return processed, nil
}

func (f *FollowUpEngine) applyTransition(ctx context.Context, leadID string, category domain.ReplyCategory, repliedAt time.Time) {
	lead, err := f.store.GetLead(ctx, leadID)
	if err != nil || lead == nil {
		f.logger.Error("lead lookup failed during transition", "error", err, "lead_id", leadID)
		return
	}

	if err := f.store.MarkLeadReplied(ctx, leadID, repliedAt); err != nil {
		f.logger.Error("failed to stamp reply time", "error", err, "lead_id", leadID)
	}

	var next domain.LeadState
	switch category {
	case domain.ReplyPositive:
		next = domain.LeadQualified
	case domain.ReplyNegative:
		next = domain.LeadSuppressed
	case domain.ReplyUnsubscribe:
		next = domain.LeadUnsubscribed
	default:
		// Out-of-office, bounces and neutral chatter leave the sequence
		// untouched.
		return
	}

	// Terminal states are sticky, with one exception: an unsubscribe is a
	// compliance signal and always lands.
	if lead.State.Terminal() && next != domain.LeadUnsubscribed {
		return
	}
	if lead.State == next {
		return
	}

	if err := f.store.SetLeadState(ctx, leadID, next); err != nil {
		f.logger.Error("failed to transition lead", "error", err, "lead_id", leadID, "state", next)
		return
	}
	f.logger.Info("lead transitioned",
		"lead_id", leadID,
		"from", lead.State,
		"to", next,
		"trigger", category,
	)
}

// SweepTimeouts advances contacted leads that have gone quiet past the
// no-reply window: the next sequence step is queued, or the lead moves to
// nurture when the sequence is spent. Returns how many leads had a new
// step queued.
func (f *FollowUpEngine) SweepTimeouts(ctx context.Context, window time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-window)

	leads, err := f.store.ListSweepableLeads(ctx, cutoff, f.batchSize)
	if err != nil {
		return 0, err
	}

	var advanced int
	for _, lead := range leads {
		if ctx.Err() != nil {
			break
		}

		queued, err := f.store.CountQueuedForLead(ctx, lead.ID)
		if err != nil {
			f.logger.Error("queued-count lookup failed", "error", err, "lead_id", lead.ID)
			continue
		}
		if queued > 0 {
			// A touch is already waiting to go out.
			continue
		}

		nextStep := lead.SequenceStep + 1
		step, err := f.store.GetSequenceStep(ctx, lead.CampaignID, nextStep)
		if err != nil {
			f.logger.Error("sequence step lookup failed", "error", err, "lead_id", lead.ID)
			continue
		}

		if step == nil {
			// Sequence exhausted without a reply.
			if err := f.store.SetLeadState(ctx, lead.ID, domain.LeadNurture); err != nil {
				f.logger.Error("failed to move lead to nurture", "error", err, "lead_id", lead.ID)
				continue
			}
			f.logger.Info("lead moved to nurture", "lead_id", lead.ID, "steps_sent", lead.SequenceStep)
			continue
		}

		subject, body := renderStep(step, &lead)
		msg := &domain.OutboundMessage{
			LeadID:         lead.ID,
			CampaignID:     lead.CampaignID,
			Recipient:      lead.Email,
			Subject:        subject,
			Body:           body,
			Fingerprint:    contentFingerprint(subject, body),
			SequenceNumber: nextStep,
			ScheduledAt:    time.Now().UTC(),
		}

		inserted, err := f.store.EnqueueMessage(ctx, msg)
		if err != nil {
			f.logger.Error("failed to queue follow-up", "error", err, "lead_id", lead.ID)
			continue
		}
		if !inserted {
			// Identical step already queued or sent for this lead.
			continue
		}

		advanced++
		f.logger.Info("follow-up queued",
			"lead_id", lead.ID,
			"campaign_id", lead.CampaignID,
			"sequence_number", nextStep,
		)
	}
	return advanced, nil
}

// renderStep fills a step template's placeholders from the lead. Unknown
// placeholders are left as-is; empty names fall back to "there" so a
// greeting never reads "Hi ,".
func renderStep(step *domain.SequenceStep, lead *domain.Lead) (string, string) {
	firstName := lead.FirstName
	if firstName == "" {
		firstName = "there"
	}

	r := strings.NewReplacer(
		"{first_name}", firstName,
		"{last_name}", lead.LastName,
		"{email}", lead.Email,
	)
	return r.Replace(step.Subject), r.Replace(step.Body)
}

// contentFingerprint hashes the rendered content for the idempotency key.
func contentFingerprint(subject, body string) string {
	sum := sha256.Sum256([]byte(subject + "\n" + body))
	return hex.EncodeToString(sum[:])
}
