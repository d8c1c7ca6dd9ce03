// Package session implements the client side of a chatbot conversation: the
// message log, the context window sent with each request and the single
// in-flight request lifecycle.
package session

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
)

const (
	Greeting           = "Hi! I'm your financial assistant. How can I help you today?"
	ErrorFallback      = "Sorry, I encountered an error. Please try again."
	ConnectionFallback = "Sorry, I cannot connect to the server right now. Please try again later."

	// TimeLayout renders timestamps as two-digit hour and minute.
	TimeLayout = "03:04 PM"
)

// State is the request lifecycle state of a session.
type State int

const (
	Idle State = iota
	Sending
)

func (s State) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

// Service is the chat backend a session talks to. Implementations never
// return an error: every failure is folded into the Result.
type Service interface {
	Chat(ctx context.Context, req chat.Request) chat.Result
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, req chat.Request) chat.Result

// Chat calls f(ctx, req).
func (f ServiceFunc) Chat(ctx context.Context, req chat.Request) chat.Result {
	return f(ctx, req)
}

// Outcome describes how one send episode resolved.
type Outcome struct {
	Request chat.Request
	Result  chat.Result
	Reply   chat.Message
}

// Snapshot is a consistent copy of the session taken right after a mutation.
type Snapshot struct {
	Messages []chat.Message
	State    State
}

// Option customizes a Session.
type Option func(*Session)

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// WithTimeout bounds every outbound call. Zero waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithHistoryLimit changes how many prior messages travel with a request.
func WithHistoryLimit(n int) Option {
	return func(s *Session) { s.historyLimit = n }
}

// WithGreeting replaces the seeded greeting text. Blank text keeps the default.
func WithGreeting(text string) Option {
	return func(s *Session) {
		if strings.TrimSpace(text) != "" {
			s.greeting = text
		}
	}
}

// Session owns one conversation. Store mutations and state transitions are
// serialized by mu; observers are notified in mutation order, never while mu
// is held.
type Session struct {
	mu sync.Mutex

	store     *Store
	state     State
	input     string
	observers []func(Snapshot)

	// pending holds snapshots not yet delivered; notifying is set while one
	// goroutine drains it.
	pending   []Snapshot
	notifying bool

	service      Service
	now          func() time.Time
	newID        func() string
	timeout      time.Duration
	historyLimit int
	greeting     string
}

// New starts a conversation seeded with a received greeting.
func New(service Service, opts ...Option) *Session {
	s := &Session{
		service:      service,
		now:          time.Now,
		newID:        func() string { return uuid.Must(uuid.NewV7()).String() },
		historyLimit: HistoryLimit,
		greeting:     Greeting,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = NewStore(s.newMessage(s.greeting, chat.Received))
	return s
}

// Subscribe registers fn to receive a snapshot after every store or state
// change. fn runs without the session lock held, so it may read the session
// or start a new Send; snapshots queued meanwhile are delivered after fn
// returns.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// SetInput replaces the pending-input buffer.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// Input returns the pending-input buffer.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns every stored message, oldest first.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// Snapshot returns the current messages and state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SendInput sends the pending-input buffer.
func (s *Session) SendInput(ctx context.Context) (<-chan Outcome, bool) {
	return s.Send(ctx, s.Input())
}

// Send starts a request episode for text. It reports false, without touching
// the store or calling the service, when text is blank or a request is
// already in flight. Otherwise the returned channel yields exactly one
// Outcome once the reply has been appended, then closes.
func (s *Session) Send(ctx context.Context, text string) (<-chan Outcome, bool) {
	s.mu.Lock()
	if strings.TrimSpace(text) == "" || s.state != Idle {
		s.mu.Unlock()
		return nil, false
	}

	req := chat.Request{Message: text, History: Window(s.store, s.historyLimit)}
	s.store.Append(s.newMessage(text, chat.Sent))
	s.input = ""
	s.state = Sending
	s.publishLocked()

	done := make(chan Outcome, 1)
	go s.run(ctx, req, done)
	return done, true
}

func (s *Session) run(ctx context.Context, req chat.Request, done chan<- Outcome) {
	defer close(done)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resultCh := make(chan chat.Result, 1)
	go func() {
		resultCh <- s.service.Chat(ctx, req)
	}()

	var result chat.Result
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		result = chat.TransportFailure(ctx.Err())
	}

	s.mu.Lock()
	reply := s.newMessage(replyText(result), chat.Received)
	s.store.Append(reply)
	s.state = Idle
	s.publishLocked()

	done <- Outcome{Request: req, Result: result, Reply: reply}
}

// replyText picks the text of the received bubble for a result.
func replyText(result chat.Result) string {
	switch result.Kind {
	case chat.ResultSuccess:
		if strings.TrimSpace(result.Text) != "" {
			return result.Text
		}
		return ErrorFallback
	case chat.ResultApplicationError:
		if strings.TrimSpace(result.Text) != "" {
			return result.Text
		}
		return ErrorFallback
	default:
		return ConnectionFallback
	}
}

func (s *Session) newMessage(text string, sender chat.Sender) chat.Message {
	return chat.Message{
		ID:        s.newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now().Format(TimeLayout),
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{Messages: s.store.All(), State: s.state}
}

// publishLocked queues a snapshot and releases mu. The first goroutine to
// find the queue idle drains it, calling observers with mu unlocked; others
// return at once and leave their snapshot to the drainer.
func (s *Session) publishLocked() {
	s.pending = append(s.pending, s.snapshotLocked())
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		observers := slices.Clone(s.observers)
		s.mu.Unlock()

		for _, snap := range batch {
			for _, fn := range observers {
				fn(snap)
			}
		}
		s.mu.Lock()
	}
	s.notifying = false
	s.mu.Unlock()
}
