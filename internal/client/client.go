// Package client talks to the dashboard backend over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Client is the HTTP side of the dashboard API. It implements the chat
// session service contract through Chat.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client rooted at baseURL; httpClient may be nil.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Chat posts one request to /chatbot. The body is interpreted whatever the
// HTTP status is; only network and decoding problems are transport failures.
func (c *Client) Chat(ctx context.Context, req chat.Request) chat.Result {
	if req.History == nil {
		req.History = []chat.HistoryEntry{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return chat.TransportFailure(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chatbot", bytes.NewReader(payload))
	if err != nil {
		return chat.TransportFailure(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return chat.TransportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return chat.TransportFailure(err)
	}
	return chat.DecodeResult(body)
}

// Holdings fetches /holdings.
func (c *Client) Holdings(ctx context.Context) ([]portfolio.Holding, error) {
	var rows []portfolio.Holding
	if err := c.getJSON(ctx, "/holdings", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Sectors fetches /sector-allocation.
func (c *Client) Sectors(ctx context.Context) ([]portfolio.SectorAllocation, error) {
	var rows []portfolio.SectorAllocation
	if err := c.getJSON(ctx, "/sector-allocation", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// News fetches /market-news.
func (c *Client) News(ctx context.Context) ([]portfolio.NewsItem, error) {
	var items []portfolio.NewsItem
	if err := c.getJSON(ctx, "/market-news", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// LoginURL asks the backend for the broker login link.
func (c *Client) LoginURL(ctx context.Context) (string, error) {
	var payload struct {
		LoginURL string `json:"login_url"`
	}
	if err := c.getJSON(ctx, "/", &payload); err != nil {
		return "", err
	}
	if payload.LoginURL == "" {
		return "", errors.New("backend returned no login_url")
	}
	return payload.LoginURL, nil
}

// APIError is an {"error": ...} body returned instead of data.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard api error (%d): %s", e.Status, e.Message)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	// The backend reports failures as an object with an error field, even
	// where the success payload is an array.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(trimmed, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
