// Package client holds the conversation-view state machine and its
// collaborators. The reducer is pure: every transition is
// Apply(state, event) -> state, which keeps the reconciliation logic
// testable without a UI harness.
package client

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/secret-echo/secret-echo/internal/message"
)

// Entry is one row of the conversation view: a confirmed message, or an
// optimistic one still waiting for (or denied) server confirmation.
type Entry struct {
	message.View
	Optimistic bool
	Failed     bool
}

// State is the canonical view state. Entries stay sorted ascending by
// CreatedAt; DirtyCache tells the shell a debounced cache write is due.
type State struct {
	UserID     uint64
	Entries    []Entry
	Typing     bool
	Loading    bool
	Warning    string
	DirtyCache bool
}

func NewState(userID uint64) State {
	return State{UserID: userID, Loading: true}
}

type Event interface{ isEvent() }

// CacheLoaded paints the locally cached history before the network fetch
// lands. The fetch result replaces it wholesale; a cache read that arrives
// after the fetch (or after anything else painted the view) is discarded.
type CacheLoaded struct{ Entries []Entry }

// BulkLoaded is a successful fetch; the server is authoritative.
type BulkLoaded struct{ Views []message.View }

// FetchFailed leaves whatever is painted and surfaces a warning.
type FetchFailed struct{ Err error }

// Submitted inserts the optimistic entry at submit time.
type Submitted struct {
	TempID  string
	Content string
	Sender  message.Sender
	Now     time.Time
}

// Confirmed replaces the optimistic entry with the server-assigned message.
type Confirmed struct {
	TempID string
	View   message.View
}

// SubmitFailed marks the optimistic entry failed instead of silently
// leaving it pending forever.
type SubmitFailed struct {
	TempID string
	Err    error
}

// Pushed merges a live channel message. TargetUserID zero means
// unspecified; a nonzero mismatch is dropped.
type Pushed struct {
	View         message.View
	TargetUserID uint64
}

// TypingChanged tracks the assistant typing flag; non-assistant events are
// ignored.
type TypingChanged struct {
	IsTyping bool
	IsAI     bool
}

func (CacheLoaded) isEvent()   {}
func (BulkLoaded) isEvent()    {}
func (FetchFailed) isEvent()   {}
func (Submitted) isEvent()     {}
func (Confirmed) isEvent()     {}
func (SubmitFailed) isEvent()  {}
func (Pushed) isEvent()        {}
func (TypingChanged) isEvent() {}

// Apply is the reducer. It never mutates the input state's entry slice.
func Apply(s State, ev Event) State {
	switch e := ev.(type) {
	case CacheLoaded:
		// cache rows only pre-paint an empty, still-loading view; once the
		// authoritative fetch landed or a submission painted an entry, stale
		// cache rows must not clobber them
		if !s.Loading || len(s.Entries) > 0 || len(e.Entries) == 0 {
			return s
		}
		s.Entries = sortEntries(append([]Entry(nil), e.Entries...))
		return s

	case BulkLoaded:
		entries := make([]Entry, 0, len(e.Views))
		for _, v := range e.Views {
			entries = append(entries, Entry{View: v})
		}
		s.Entries = sortEntries(entries)
		s.Loading = false
		s.DirtyCache = len(s.Entries) > 0
		return s

	case FetchFailed:
		s.Loading = false
		s.Warning = "failed to load messages"
		return s

	case Submitted:
		now := e.Now
		if now.IsZero() {
			now = time.Now()
		}
		entry := Entry{
			View: message.View{
				ID:        e.TempID,
				Sender:    e.Sender,
				Receiver:  message.ReceiverAI,
				Content:   e.Content,
				CreatedAt: now,
			},
			Optimistic: true,
		}
		s.Entries = sortEntries(append(copyEntries(s.Entries), entry))
		s.DirtyCache = true
		return s

	case Confirmed:
		entries := copyEntries(s.Entries)
		replaced := false
		for i := range entries {
			if entries[i].ID == e.TempID {
				entries[i] = Entry{View: e.View}
				replaced = true
				break
			}
		}
		if !replaced && !containsID(entries, e.View.ID) {
			entries = append(entries, Entry{View: e.View})
		}
		s.Entries = sortEntries(entries)
		s.DirtyCache = true
		return s

	case SubmitFailed:
		entries := copyEntries(s.Entries)
		for i := range entries {
			if entries[i].ID == e.TempID {
				entries[i].Failed = true
				break
			}
		}
		s.Entries = entries
		s.Warning = "failed to send message"
		return s

	case Pushed:
		if e.TargetUserID != 0 && e.TargetUserID != s.UserID {
			return s
		}
		v := e.View
		if v.ID == "" {
			// id-less payloads still need to dedup against re-delivery
			v.ID = "generated-" + uuid.NewString()
		}
		if containsID(s.Entries, v.ID) {
			return s
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = time.Now()
		}
		s.Entries = sortEntries(append(copyEntries(s.Entries), Entry{View: v}))
		s.Typing = false
		s.DirtyCache = true
		return s

	case TypingChanged:
		if e.IsAI {
			s.Typing = e.IsTyping
		}
		return s
	}
	return s
}

// CacheEntries returns the rows eligible for the durable cache: confirmed
// messages only.
func (s State) CacheEntries() []Entry {
	out := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Optimistic || e.Failed {
			continue
		}
		out = append(out, e)
	}
	return out
}

func copyEntries(in []Entry) []Entry {
	return append([]Entry(nil), in...)
}

func containsID(entries []Entry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// sortEntries orders ascending by creation time, keeping the original
// relative order for equal timestamps.
func sortEntries(entries []Entry) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries
}
