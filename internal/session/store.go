package session

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
)

// Store is the ordered, append-only message log of one conversation.
// It is not safe for concurrent use; Session serializes access to it.
type Store struct {
	messages []chat.Message
	ids      map[string]struct{}
}

// NewStore returns a store holding the given messages in order.
func NewStore(seed ...chat.Message) *Store {
	s := &Store{
		messages: make([]chat.Message, 0, 16),
		ids:      make(map[string]struct{}),
	}
	for _, m := range seed {
		s.Append(m)
	}
	return s
}

// Append adds a message at the end of the log. A duplicate id, an unknown
// sender or blank text is a programming error.
func (s *Store) Append(m chat.Message) {
	if !m.Sender.Valid() {
		panic(fmt.Sprintf("session: message %q has invalid sender %q", m.ID, m.Sender))
	}
	if strings.TrimSpace(m.Text) == "" {
		panic(fmt.Sprintf("session: message %q has empty text", m.ID))
	}
	if _, dup := s.ids[m.ID]; dup {
		panic(fmt.Sprintf("session: duplicate message id %q", m.ID))
	}
	s.ids[m.ID] = struct{}{}
	s.messages = append(s.messages, m)
}

// All returns a copy of every message, oldest first.
func (s *Store) All() []chat.Message {
	return append([]chat.Message(nil), s.messages...)
}

// Latest returns a copy of the last n messages, oldest first.
func (s *Store) Latest(n int) []chat.Message {
	if n <= 0 {
		return []chat.Message{}
	}
	start := 0
	if len(s.messages) > n {
		start = len(s.messages) - n
	}
	return append([]chat.Message(nil), s.messages[start:]...)
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	return len(s.messages)
}
