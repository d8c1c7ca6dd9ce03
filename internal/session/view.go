package session

import (
	"sync"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
)

// ThinkingText is shown while a request is in flight. It is never stored.
const ThinkingText = "Thinking..."

// Entry is one renderable row of the conversation.
type Entry struct {
	ID        string
	Text      string
	Sender    chat.Sender
	Timestamp string
	Pending   bool
}

// Render maps stored messages and the lifecycle state to the list to display.
func Render(messages []chat.Message, state State) []Entry {
	entries := make([]Entry, 0, len(messages)+1)
	for _, m := range messages {
		entries = append(entries, Entry{
			ID:        m.ID,
			Text:      m.Text,
			Sender:    m.Sender,
			Timestamp: m.Timestamp,
		})
	}
	if state == Sending {
		entries = append(entries, Entry{
			ID:      "thinking",
			Text:    ThinkingText,
			Sender:  chat.Received,
			Pending: true,
		})
	}
	return entries
}

// Adapter re-renders a session on every snapshot and fires the scroll
// callback with the newest entry when the store size or state changed.
type Adapter struct {
	mu        sync.Mutex
	seen      bool
	lastLen   int
	lastState State

	render func([]Entry)
	scroll func(Entry)
}

// NewAdapter builds an adapter. Either callback may be nil.
func NewAdapter(render func([]Entry), scroll func(Entry)) *Adapter {
	return &Adapter{render: render, scroll: scroll}
}

// Attach subscribes the adapter to s and renders the current state once.
func (a *Adapter) Attach(s *Session) {
	s.Subscribe(func(snap Snapshot) { a.Observe(snap) })
	a.Observe(s.Snapshot())
}

// Observe renders snap and returns the entries.
func (a *Adapter) Observe(snap Snapshot) []Entry {
	entries := Render(snap.Messages, snap.State)

	a.mu.Lock()
	changed := !a.seen || a.lastLen != len(snap.Messages) || a.lastState != snap.State
	a.seen = true
	a.lastLen = len(snap.Messages)
	a.lastState = snap.State
	a.mu.Unlock()

	if a.render != nil {
		a.render(entries)
	}
	if changed && a.scroll != nil && len(entries) > 0 {
		a.scroll(entries[len(entries)-1])
	}
	return entries
}
