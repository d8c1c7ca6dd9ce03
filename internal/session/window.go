package session

import "github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"

// HistoryLimit bounds the context attached to each outgoing request.
const HistoryLimit = 5

// Window returns the last limit messages of the store in context form. It must
// be computed before the outgoing message is appended.
func Window(store *Store, limit int) []chat.HistoryEntry {
	recent := store.Latest(limit)
	history := make([]chat.HistoryEntry, 0, len(recent))
	for _, m := range recent {
		history = append(history, m.Entry())
	}
	return history
}
