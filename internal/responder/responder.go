// Package responder produces the scripted assistant replies. It is a
// static lookup table: the first pattern group with a substring hit in the
// lowercased input wins, and a random candidate from that group is returned.
package responder

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

type ruleGroup struct {
	patterns []string
	replies  []string
}

var rules = []ruleGroup{
	{
		patterns: []string{"hello", "hi", "hey", "greetings"},
		replies: []string{
			"Hello there! How can I help you today?",
			"Hi! Nice to meet you. What can I do for you?",
			"Hey! I'm here to assist you. What do you need?",
		},
	},
	{
		patterns: []string{"how are you", "how's it going"},
		replies: []string{
			"I'm doing well, thanks for asking! How about you?",
			"I'm functioning perfectly! How can I assist you?",
			"All systems operational! What can I help with today?",
		},
	},
	{
		patterns: []string{"bye", "goodbye", "see you", "talk later"},
		replies: []string{
			"Goodbye! Come back anytime you need assistance.",
			"See you later! Have a great day!",
			"Until next time! Take care.",
		},
	},
	{
		patterns: []string{"thanks", "thank you", "appreciate"},
		replies: []string{
			"You're welcome! Is there anything else you need?",
			"Happy to help! Let me know if you need anything else.",
			"My pleasure! Anything else on your mind?",
		},
	},
	{
		patterns: []string{"help", "assist", "support"},
		replies: []string{
			"I'm here to help! What do you need assistance with?",
			"How can I assist you today? Just let me know!",
			"I'm your AI assistant. What do you need help with?",
		},
	},
}

var fallbacks = []string{
	"That's interesting. Tell me more about that.",
	"I understand. How can I help you with that?",
	"I see. Is there anything specific you'd like to know?",
	"Hmm, could you elaborate on that?",
	"That's something to think about. Is there anything else on your mind?",
	"I'm still learning about that. Could you tell me more?",
	"Thanks for sharing that with me. What else would you like to discuss?",
}

type Responder struct {
	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rnd *rand.Rand
}

// New builds a Responder. src may be nil, in which case a time-seeded
// source is used; tests pass a fixed source to pin the candidate choice.
func New(src *rand.Rand) *Responder {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Responder{rnd: src}
}

// Reply never returns an empty string and never fails; an unmatched input
// draws from the fallback set.
func (r *Responder) Reply(userID uint64, input string) string {
	_ = userID
	lower := strings.ToLower(input)
	for _, g := range rules {
		for _, p := range g.patterns {
			if strings.Contains(lower, p) {
				return g.replies[r.intn(len(g.replies))]
			}
		}
	}
	return fallbacks[r.intn(len(fallbacks))]
}

func (r *Responder) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}
