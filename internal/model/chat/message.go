package chat

import "fmt"

// Sender tags who authored a message.
type Sender string

const (
	Sent     Sender = "sent"
	Received Sender = "received"
)

// Valid reports whether s is one of the two known senders.
func (s Sender) Valid() bool {
	return s == Sent || s == Received
}

// ParseSender converts a wire value into a Sender.
func ParseSender(raw string) (Sender, error) {
	s := Sender(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown sender %q", raw)
	}
	return s, nil
}

// Message is one bubble of a conversation. It is never mutated after it has
// been appended to a store.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    Sender `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// HistoryEntry is the reduced form of a Message sent as context to the chat service.
type HistoryEntry struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Entry strips a message down to its context form.
func (m Message) Entry() HistoryEntry {
	return HistoryEntry{Sender: m.Sender, Text: m.Text}
}
