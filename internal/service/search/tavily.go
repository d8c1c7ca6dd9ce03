// Package search finds news articles about listed companies.
package search

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

	"github.com/PaesslerAG/jsonpath"
)

var (
	ErrSearchUnavailable = errors.New("search api key not configured")
	ErrNoResults         = errors.New("no search results")
)

// Article is one search hit.
type Article struct {
	Title   string
	URL     string
	Content string
}

// Searcher returns the best article for a query.
type Searcher interface {
	TopArticle(ctx context.Context, query string) (Article, error)
}

// TavilyClient queries the Tavily search API.
type TavilyClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTavilyClient builds a client; httpClient may be nil.
func NewTavilyClient(apiKey, baseURL string, httpClient *http.Client) *TavilyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TavilyClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// TopArticle returns the first result for query.
func (c *TavilyClient) TopArticle(ctx context.Context, query string) (Article, error) {
	articles, err := c.Search(ctx, query, 1)
	if err != nil {
		return Article{}, err
	}
	return articles[0], nil
}

// Search returns up to maxResults articles for query, best first. An empty
// result set is ErrNoResults.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Article, error) {
	if c.apiKey == "" {
		return nil, ErrSearchUnavailable
	}
	if maxResults <= 0 {
		maxResults = 1
	}

	body, err := json.Marshal(map[string]any{
		"api_key":      c.apiKey,
		"query":        query,
		"max_results":  maxResults,
		"search_depth": "advanced",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: %s", query, resp.Status)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	articles, err := extractArticles(doc)
	if err != nil {
		return nil, err
	}
	if len(articles) > maxResults {
		articles = articles[:maxResults]
	}
	return articles, nil
}

// extractArticles reads $.results[*] from a decoded search response.
func extractArticles(doc any) ([]Article, error) {
	results, err := jsonpath.Get("$.results[*]", doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
	}
	// jsonpath answers either a list or a single value
	list, ok := results.([]any)
	if !ok {
		list = []any{results}
	}
	if len(list) == 0 {
		return nil, ErrNoResults
	}

	articles := make([]Article, 0, len(list))
	for _, item := range list {
		articles = append(articles, Article{
			Title:   stringAt(item, "$.title"),
			URL:     stringAt(item, "$.url"),
			Content: stringAt(item, "$.content"),
		})
	}
	return articles, nil
}

func stringAt(doc any, path string) string {
	val, err := jsonpath.Get(path, doc)
	if err != nil {
		return ""
	}
	s, _ := val.(string)
	return s
}
