package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
)

// WSTransport sends chat requests over one long-lived WebSocket. Calls are
// serialized; a broken connection is redialed on the next call.
type WSTransport struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSTransport derives the /ws/chatbot endpoint from an http(s) base URL.
func NewWSTransport(baseURL string) (*WSTransport, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path += "/ws/chatbot"

	return &WSTransport{url: u.String(), dialer: websocket.DefaultDialer}, nil
}

// Chat writes the request and waits for the matching reply frame.
func (t *WSTransport) Chat(ctx context.Context, req chat.Request) chat.Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.connect(ctx)
	if err != nil {
		return chat.TransportFailure(err)
	}

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	// The connection is reused, so a deadline left by an earlier call is cleared.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Time{})
		conn.SetReadDeadline(time.Time{})
	}

	if req.History == nil {
		req.History = []chat.HistoryEntry{}
	}
	if err := conn.WriteJSON(req); err != nil {
		t.drop()
		return chat.TransportFailure(t.cause(ctx, err))
	}

	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.drop()
		return chat.TransportFailure(t.cause(ctx, err))
	}
	return chat.DecodeResult(frame)
}

// Close shuts the current connection, if any.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *WSTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}
	log.Printf("[websocket] connected to %s", t.url)
	t.conn = conn
	return conn, nil
}

func (t *WSTransport) drop() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

func (t *WSTransport) cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(ctxErr, err)
	}
	return err
}
