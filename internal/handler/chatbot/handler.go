package chatbot

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
	"github.com/zhouzirui/kite-dashboard/backend/pkg/utils"
)

const (
	readTimeout  = 10 * time.Minute
	pingInterval = 54 * time.Second
)

// Replier answers one chat request.
type Replier interface {
	Reply(ctx context.Context, req chat.Request) chat.Response
}

// Handler serves the chatbot over HTTP and WebSocket.
type Handler struct {
	svc      Replier
	upgrader websocket.Upgrader
}

// New creates a chatbot handler.
func New(svc Replier) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts POST /chatbot and GET /ws/chatbot.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chatbot", h.handleChat)
	r.Get("/ws/chatbot", h.handleWebSocket)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, chat.Response{Status: "error", Error: "invalid request body"})
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.svc.Reply(r.Context(), req))
}

// handleWebSocket answers one reply frame per request frame until the peer
// goes away.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] chatbot connection from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	writes := make(chan chat.Response)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, writes)
	}()

	for {
		var req chat.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		select {
		case writes <- h.svc.Reply(ctx, req):
		case <-writerDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop owns every write on conn, interleaving replies and pings. It
// closes conn when a write fails so the reader unblocks.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, writes <-chan chat.Response) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case resp := <-writes:
			if err := conn.WriteJSON(resp); err != nil {
				log.Printf("[websocket] write error: %v", err)
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
