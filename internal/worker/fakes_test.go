package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/arnab-netizen/AICMO-sub004/internal/engine"
	"github.com/arnab-netizen/AICMO-sub004/internal/mail"
)

// memStore mirrors the Postgres store's semantics in memory, including
// the conditional updates and unique keys the pipelines rely on.
type memStore struct {
	campaigns   map[string]*domain.Campaign
	steps       map[string]map[int]domain.SequenceStep
	leads       map[string]*domain.Lead
	messages    map[string]*domain.OutboundMessage
	replies     map[string]*domain.InboundReply
	alertLog    map[string]domain.AlertLogEntry
	checkpoints map[string]time.Time
	nextID      int
}

func newMemStore() *memStore {
	return &memStore{
		campaigns:   make(map[string]*domain.Campaign),
		steps:       make(map[string]map[int]domain.SequenceStep),
		leads:       make(map[string]*domain.Lead),
		messages:    make(map[string]*domain.OutboundMessage),
		replies:     make(map[string]*domain.InboundReply),
		alertLog:    make(map[string]domain.AlertLogEntry),
		checkpoints: make(map[string]time.Time),
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) addCampaign(name string) *domain.Campaign {
	c := &domain.Campaign{
		ID: m.id("camp"), Name: name, IsActive: true, AutoPause: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.campaigns[c.ID] = c
	return c
}

func (m *memStore) addStep(campaignID string, num int, subject, body string) {
	if m.steps[campaignID] == nil {
		m.steps[campaignID] = make(map[int]domain.SequenceStep)
	}
	m.steps[campaignID][num] = domain.SequenceStep{
		ID: m.id("step"), CampaignID: campaignID, StepNumber: num,
		Subject: subject, Body: body, WaitHours: 72,
	}
}

func (m *memStore) addLead(campaignID, email string, state domain.LeadState) *domain.Lead {
	l := &domain.Lead{
		ID: m.id("lead"), CampaignID: campaignID, Email: email,
		FirstName: "Ada", State: state,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.leads[l.ID] = l
	return l
}

func (m *memStore) addQueuedMessage(lead *domain.Lead, seq int, scheduledAt time.Time) *domain.OutboundMessage {
	msg := &domain.OutboundMessage{
		ID: m.id("msg"), LeadID: lead.ID, CampaignID: lead.CampaignID,
		Recipient: lead.Email, Subject: "Quick question", Body: "Hello",
		Fingerprint: fmt.Sprintf("fp-%s-%d", lead.ID, seq), SequenceNumber: seq,
		Status: domain.MessageQueued, ScheduledAt: scheduledAt, CreatedAt: time.Now(),
	}
	m.messages[msg.ID] = msg
	return msg
}

// --- MessageStore / FollowUpStore message methods

func (m *memStore) ListDueMessages(_ context.Context, limit int) ([]domain.OutboundMessage, error) {
	var due []domain.OutboundMessage
	for _, msg := range m.messages {
		c := m.campaigns[msg.CampaignID]
		if msg.Status == domain.MessageQueued && !msg.ScheduledAt.After(time.Now()) && c != nil && c.IsActive {
			due = append(due, *msg)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *memStore) MarkMessageSent(_ context.Context, id, providerMessageID string) (bool, error) {
	msg, ok := m.messages[id]
	if !ok || msg.Status != domain.MessageQueued {
		return false, nil
	}
	now := time.Now()
	msg.Status = domain.MessageSent
	msg.SentAt = &now
	msg.ProviderMessageID = &providerMessageID
	return true, nil
}

func (m *memStore) RescheduleMessage(_ context.Context, id string, nextAt time.Time, reason string) error {
	if msg, ok := m.messages[id]; ok && msg.Status == domain.MessageQueued {
		msg.RetryCount++
		msg.ScheduledAt = nextAt
		msg.LastError = &reason
	}
	return nil
}

func (m *memStore) MarkMessageFailed(_ context.Context, id, reason string) error {
	if msg, ok := m.messages[id]; ok && msg.Status == domain.MessageQueued {
		msg.Status = domain.MessageFailed
		msg.RetryCount++
		msg.LastError = &reason
	}
	return nil
}

func (m *memStore) EnqueueMessage(_ context.Context, msg *domain.OutboundMessage) (bool, error) {
	for _, existing := range m.messages {
		if existing.LeadID == msg.LeadID && existing.Fingerprint == msg.Fingerprint && existing.SequenceNumber == msg.SequenceNumber {
			return false, nil
		}
	}
	stored := *msg
	stored.ID = m.id("msg")
	stored.Status = domain.MessageQueued
	m.messages[stored.ID] = &stored
	return true, nil
}

func (m *memStore) CountQueuedForLead(_ context.Context, leadID string) (int, error) {
	var n int
	for _, msg := range m.messages {
		if msg.LeadID == leadID && msg.Status == domain.MessageQueued {
			n++
		}
	}
	return n, nil
}

// --- lead methods

func (m *memStore) GetLead(_ context.Context, id string) (*domain.Lead, error) {
	if l, ok := m.leads[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetLeadByEmail(_ context.Context, email string) (*domain.Lead, error) {
	for _, l := range m.leads {
		if l.Email == email {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) MarkLeadContacted(_ context.Context, leadID string, step int, at time.Time) error {
	l, ok := m.leads[leadID]
	if !ok {
		return nil
	}
	if l.State == domain.LeadProspect {
		l.State = domain.LeadContacted
	}
	if step > l.SequenceStep {
		l.SequenceStep = step
	}
	l.LastContactedAt = &at
	return nil
}

func (m *memStore) SetLeadState(_ context.Context, leadID string, state domain.LeadState) error {
	if l, ok := m.leads[leadID]; ok {
		l.State = state
	}
	return nil
}

func (m *memStore) MarkLeadReplied(_ context.Context, leadID string, at time.Time) error {
	if l, ok := m.leads[leadID]; ok {
		l.LastReplyAt = &at
	}
	return nil
}

func (m *memStore) ListSweepableLeads(_ context.Context, cutoff time.Time, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	for _, l := range m.leads {
		c := m.campaigns[l.CampaignID]
		if l.State != domain.LeadContacted || l.LastContactedAt == nil || c == nil || !c.IsActive {
			continue
		}
		if l.LastContactedAt.After(cutoff) {
			continue
		}
		if l.LastReplyAt != nil && !l.LastReplyAt.Before(*l.LastContactedAt) {
			continue
		}
		out = append(out, *l)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- campaign methods

func (m *memStore) ListActiveCampaigns(_ context.Context) ([]domain.Campaign, error) {
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) PauseCampaign(_ context.Context, id, reason string) error {
	if c, ok := m.campaigns[id]; ok && c.IsActive {
		c.IsActive = false
		c.PauseReason = &reason
	}
	return nil
}

func (m *memStore) GetSequenceStep(_ context.Context, campaignID string, stepNumber int) (*domain.SequenceStep, error) {
	if st, ok := m.steps[campaignID][stepNumber]; ok {
		return &st, nil
	}
	return nil, nil
}

// --- reply methods

func (m *memStore) InsertReply(_ context.Context, r *domain.InboundReply) (bool, error) {
	for _, existing := range m.replies {
		if existing.Provider == r.Provider && existing.ProviderUID == r.ProviderUID {
			return false, nil
		}
	}
	stored := *r
	stored.ID = m.id("reply")
	stored.CreatedAt = time.Now()
	m.replies[stored.ID] = &stored
	return true, nil
}

func (m *memStore) ListUnclassifiedReplies(_ context.Context, limit int) ([]domain.InboundReply, error) {
	var out []domain.InboundReply
	for _, r := range m.replies {
		if r.Category == nil {
			out = append(out, *r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) SetReplyClassification(_ context.Context, id string, category domain.ReplyCategory, confidence float64, reason string) (bool, error) {
	r, ok := m.replies[id]
	if !ok || r.Category != nil {
		return false, nil
	}
	r.Category = &category
	r.Confidence = &confidence
	r.ClassifyReason = &reason
	return true, nil
}

func (m *memStore) ListAlertPendingReplies(_ context.Context, limit int) ([]domain.InboundReply, error) {
	var out []domain.InboundReply
	for _, r := range m.replies {
		if r.Category != nil && *r.Category == domain.ReplyPositive && !r.AlertSent {
			out = append(out, *r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkReplyAlerted(_ context.Context, id string) (bool, error) {
	r, ok := m.replies[id]
	if !ok || r.AlertSent {
		return false, nil
	}
	r.AlertSent = true
	return true, nil
}

func (m *memStore) InsertAlertLog(_ context.Context, e *domain.AlertLogEntry) (bool, error) {
	if _, ok := m.alertLog[e.IdempotencyKey]; ok {
		return false, nil
	}
	stored := *e
	stored.ID = m.id("alert")
	stored.CreatedAt = time.Now()
	m.alertLog[e.IdempotencyKey] = stored
	return true, nil
}

// --- checkpoint methods

func (m *memStore) GetCheckpoint(_ context.Context, provider string) (time.Time, error) {
	return m.checkpoints[provider], nil
}

func (m *memStore) SetCheckpoint(_ context.Context, provider string, t time.Time) error {
	if t.After(m.checkpoints[provider]) {
		m.checkpoints[provider] = t
	}
	return nil
}

// --- metrics

func (m *memStore) GetCampaignCounts(_ context.Context, campaignID string) (engine.CampaignCounts, error) {
	var c engine.CampaignCounts
	for _, msg := range m.messages {
		if msg.CampaignID == campaignID && msg.Status == domain.MessageSent {
			c.Sent++
		}
	}
	for _, r := range m.replies {
		if r.CampaignID == nil || *r.CampaignID != campaignID || r.Category == nil {
			continue
		}
		switch *r.Category {
		case domain.ReplyBounce:
			c.Bounced++
		case domain.ReplyOutOfOffice:
			// auto-responses are not replies
		default:
			c.Replies++
			if *r.Category == domain.ReplyPositive {
				c.Positive++
			}
			if *r.Category == domain.ReplyNegative {
				c.Negative++
			}
		}
	}
	return c, nil
}

// --- collaborator fakes

type fakeSender struct {
	calls []string // recipient per call
	err   error
}

func (f *fakeSender) Send(_ context.Context, to, _, _ string, _ map[string]string) (*mail.SendResult, error) {
	f.calls = append(f.calls, to)
	if f.err != nil {
		return nil, f.err
	}
	return &mail.SendResult{ProviderMessageID: fmt.Sprintf("prov-%d", len(f.calls))}, nil
}

type fakeInbox struct {
	messages  []mail.InboxMessage
	err       error
	lastSince time.Time
}

func (f *fakeInbox) FetchSince(_ context.Context, since time.Time) ([]mail.InboxMessage, error) {
	f.lastSince = since
	if f.err != nil {
		return nil, f.err
	}
	var out []mail.InboxMessage
	for _, m := range f.messages {
		if m.ReceivedAt.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, _, _ string, _ map[string]string) error {
	f.calls++
	return f.err
}

type fakeLocker struct {
	acquired   bool
	acquires   int
	releases   int
	heartbeats int
}

func (f *fakeLocker) Acquire(context.Context) bool { f.acquires++; return f.acquired }
func (f *fakeLocker) Heartbeat(context.Context)    { f.heartbeats++ }
func (f *fakeLocker) Release(context.Context) bool { f.releases++; return true }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}
