package engine

import (
	"fmt"
	"strings"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
)

// Classification is the classifier's verdict for one inbound reply.
type Classification struct {
	Category   domain.ReplyCategory
	Confidence float64
	Reason     string
}

// classifierRule is one tier of the ordered rule table. The first rule
// whose keyword list matches wins, so tier order encodes priority:
// an explicit decline outweighs incidental positive language, and
// auto-responder markers outrank everything.
type classifierRule struct {
	category   domain.ReplyCategory
	confidence float64
	keywords   []string
}

var classifierRules = []classifierRule{
	{
		category:   domain.ReplyOutOfOffice,
		confidence: 0.95,
		keywords: []string{
			"out of office",
			"out of the office",
			"ooo until",
			"auto-reply",
			"automatic reply",
			"on annual leave",
			"on vacation until",
			"parental leave",
			"back in the office",
		},
	},
	{
		category:   domain.ReplyBounce,
		confidence: 0.95,
		keywords: []string{
			"delivery status notification",
			"undeliverable",
			"delivery has failed",
			"address not found",
			"mailbox unavailable",
			"user unknown",
			"recipient address rejected",
			"mail delivery subsystem",
		},
	},
	{
		category:   domain.ReplyUnsubscribe,
		confidence: 0.9,
		keywords: []string{
			"unsubscribe",
			"remove me from",
			"take me off",
			"stop emailing",
			"stop contacting",
			"do not contact",
			"opt out",
		},
	},
	{
		category:   domain.ReplyNegative,
		confidence: 0.7,
		keywords: []string{
			"not interested",
			"no interest",
			"no thanks",
			"no thank you",
			"not a fit",
			"not a good fit",
			"not right now",
			"we already have",
			"please don't",
			"not looking",
		},
	},
	{
		category:   domain.ReplyPositive,
		confidence: 0.7,
		keywords: []string{
			"interested",
			"sounds good",
			"sounds great",
			"let's talk",
			"lets talk",
			"let's chat",
			"tell me more",
			"schedule a call",
			"book a call",
			"send me more",
			"happy to connect",
			"what times work",
		},
	},
}

// Classify assigns an intent category to a reply based on its subject and
// body. It is a pure function: deterministic, no side effects. Unmatched
// text falls through to neutral with low confidence.
func Classify(subject, body string) Classification {
	text := strings.ToLower(subject + "\n" + body)

	for _, rule := range classifierRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return Classification{
					Category:   rule.category,
					Confidence: rule.confidence,
					Reason:     fmt.Sprintf("matched %q", kw),
				}
			}
		}
	}

	return Classification{
		Category:   domain.ReplyNeutral,
		Confidence: 0.3,
		Reason:     "no rule matched",
	}
}
