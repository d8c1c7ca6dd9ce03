package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
)

func TestChatSuccessAndRequestShape(t *testing.T) {
	var got chat.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chatbot" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"status":"success","response":"Hi there"}`))
	}))
	defer srv.Close()

	result := New(srv.URL+"/", nil).Chat(context.Background(), chat.Request{Message: "hello"})
	if result.Kind != chat.ResultSuccess || result.Text != "Hi there" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got.Message != "hello" || got.History == nil {
		t.Fatalf("expected message and non-nil history, got %+v", got)
	}
}

func TestChatReadsBodyOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"error","error":"quota exceeded"}`))
	}))
	defer srv.Close()

	result := New(srv.URL, nil).Chat(context.Background(), chat.Request{Message: "hello"})
	if result.Kind != chat.ResultApplicationError || result.Text != "quota exceeded" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestChatMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	result := New(srv.URL, nil).Chat(context.Background(), chat.Request{Message: "hello"})
	if result.Kind != chat.ResultTransportFailure || !errors.Is(result.Err, chat.ErrMalformedResponse) {
		t.Fatalf("expected malformed transport failure, got %+v", result)
	}
}

func TestChatUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	result := New(url, nil).Chat(context.Background(), chat.Request{Message: "hello"})
	if result.Kind != chat.ResultTransportFailure {
		t.Fatalf("expected transport failure, got %+v", result)
	}
}

func TestFetchEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/holdings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"tradingsymbol":"INFY","total_value":1500.5,"percentage":100}]`))
	})
	mux.HandleFunc("/sector-allocation", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"sector":"Technology","total_value":1500.5,"percentage":100}]`))
	})
	mux.HandleFunc("/market-news", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"No holdings found in the database."}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"login_url":"https://kite.zerodha.com/connect/login?v=3&api_key=k"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()

	holdings, err := c.Holdings(ctx)
	if err != nil || len(holdings) != 1 || holdings[0].TradingSymbol != "INFY" {
		t.Fatalf("unexpected holdings %+v err=%v", holdings, err)
	}
	sectors, err := c.Sectors(ctx)
	if err != nil || len(sectors) != 1 || sectors[0].Sector != "Technology" {
		t.Fatalf("unexpected sectors %+v err=%v", sectors, err)
	}

	_, err = c.News(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "No holdings found in the database." {
		t.Fatalf("expected api error, got %v", err)
	}

	loginURL, err := c.LoginURL(ctx)
	if err != nil || !strings.HasPrefix(loginURL, "https://kite.zerodha.com") {
		t.Fatalf("unexpected login url %q err=%v", loginURL, err)
	}
}

func TestWSTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/chatbot" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req chat.Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Message == "silence" {
				continue
			}
			conn.WriteJSON(chat.Response{Status: chat.StatusSuccess, Response: "re: " + req.Message})
		}
	}))
	defer srv.Close()

	transport, err := NewWSTransport(srv.URL)
	if err != nil {
		t.Fatalf("NewWSTransport: %v", err)
	}
	defer transport.Close()

	for _, msg := range []string{"a", "b"} {
		result := transport.Chat(context.Background(), chat.Request{Message: msg})
		if result.Kind != chat.ResultSuccess || result.Text != "re: "+msg {
			t.Fatalf("unexpected result %+v", result)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result := transport.Chat(ctx, chat.Request{Message: "silence"})
	if result.Kind != chat.ResultTransportFailure {
		t.Fatalf("expected transport failure on timeout, got %+v", result)
	}

	// the broken connection is replaced on the next call
	result = transport.Chat(context.Background(), chat.Request{Message: "c"})
	if result.Kind != chat.ResultSuccess {
		t.Fatalf("expected redial to succeed, got %+v", result)
	}
}

func TestWSTransportClearsDeadlineBetweenCalls(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req chat.Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Message == "slow" {
				time.Sleep(100 * time.Millisecond)
			}
			conn.WriteJSON(chat.Response{Status: chat.StatusSuccess, Response: "re: " + req.Message})
		}
	}))
	defer srv.Close()

	transport, err := NewWSTransport(srv.URL)
	if err != nil {
		t.Fatalf("NewWSTransport: %v", err)
	}
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	result := transport.Chat(ctx, chat.Request{Message: "fast"})
	cancel()
	if result.Kind != chat.ResultSuccess {
		t.Fatalf("expected timed call to succeed, got %+v", result)
	}

	// outlives the first call's deadline on the same connection
	result = transport.Chat(context.Background(), chat.Request{Message: "slow"})
	if result.Kind != chat.ResultSuccess || result.Text != "re: slow" {
		t.Fatalf("expected untimed call to succeed, got %+v", result)
	}
}

func TestNewWSTransportScheme(t *testing.T) {
	transport, err := NewWSTransport("https://dash.example/api/")
	if err != nil {
		t.Fatalf("NewWSTransport: %v", err)
	}
	if transport.url != "wss://dash.example/api/ws/chatbot" {
		t.Fatalf("unexpected url %s", transport.url)
	}
	if _, err := NewWSTransport("ftp://dash.example"); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}
