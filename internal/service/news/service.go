// Package news summarizes the latest article for each of the top holdings.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/kite-dashboard/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/ai"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/search"
)

var ErrNoHoldings = errors.New("no holdings found in the database")

const (
	defaultSummary   = "No summary available."
	defaultSentiment = "Neutral"
	summaryRunes     = 400
)

// HoldingsSource ranks holdings by value.
type HoldingsSource interface {
	Top(ctx context.Context, n int) ([]portfolio.Holding, error)
}

// Config controls the news pipeline.
type Config struct {
	TopHoldings int
}

// Service finds and summarizes news. Without a language model it falls back
// to keyword sentiment on the raw article.
type Service struct {
	holdings HoldingsSource
	searcher search.Searcher
	llm      ai.Completer
	fallback func(text string) sentiment.Decision
	top      int
}

// NewService wires the pipeline; llm may be nil.
func NewService(holdings HoldingsSource, searcher search.Searcher, llm ai.Completer, cfg Config) *Service {
	top := cfg.TopHoldings
	if top <= 0 {
		top = 5
	}
	return &Service{
		holdings: holdings,
		searcher: searcher,
		llm:      llm,
		fallback: sentiment.Analyze,
		top:      top,
	}
}

// TopHoldingsNews returns one item per top holding that has usable news.
func (s *Service) TopHoldingsNews(ctx context.Context) ([]portfolio.NewsItem, error) {
	items := make([]portfolio.NewsItem, 0, s.top)
	err := s.Stream(ctx, func(item portfolio.NewsItem) {
		items = append(items, item)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Stream calls emit for each item as soon as it is ready. Holdings without a
// search result or with an unusable summary are skipped.
func (s *Service) Stream(ctx context.Context, emit func(portfolio.NewsItem)) error {
	top, err := s.holdings.Top(ctx, s.top)
	if err != nil {
		return fmt.Errorf("load top holdings: %w", err)
	}
	if len(top) == 0 {
		return ErrNoHoldings
	}

	for _, h := range top {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, ok := s.summarize(ctx, h)
		if ok {
			emit(item)
		}
	}
	return nil
}

func (s *Service) summarize(ctx context.Context, h portfolio.Holding) (portfolio.NewsItem, bool) {
	company := strings.TrimSpace(h.CompanyName)
	if company == "" {
		company = h.TradingSymbol
	}
	log.Printf("[news] fetching top news for %s (%s)", company, h.TradingSymbol)

	article, err := s.searcher.TopArticle(ctx, fmt.Sprintf("latest news for %q moneycontrol.com", company))
	if err != nil {
		log.Printf("[news] no search result for %s: %v", h.TradingSymbol, err)
		return portfolio.NewsItem{}, false
	}
	if strings.TrimSpace(article.Content) == "" {
		log.Printf("[news] top result for %s has no content", h.TradingSymbol)
		return portfolio.NewsItem{}, false
	}

	item := portfolio.NewsItem{
		Company: company,
		Stock:   h.TradingSymbol,
		URL:     article.URL,
	}

	if s.llm == nil {
		return s.fallbackItem(item, article.Content), true
	}

	answer, err := s.llm.Complete(ctx, "", nil, ai.NewsPrompt(company, h.TradingSymbol, article.Content))
	if err != nil {
		log.Printf("[news] summary failed for %s: %v", h.TradingSymbol, err)
		return portfolio.NewsItem{}, false
	}

	payload, err := parseSummary(answer)
	if err != nil {
		log.Printf("[news] could not parse summary for %s: %v", h.TradingSymbol, err)
		return portfolio.NewsItem{}, false
	}

	item.Summary = firstNonEmpty(payload.Summary, defaultSummary)
	item.Sentiment = firstNonEmpty(payload.Sentiment, defaultSentiment)
	item.Justification = strings.TrimSpace(payload.Justification)
	return item, true
}

func (s *Service) fallbackItem(item portfolio.NewsItem, content string) portfolio.NewsItem {
	decision := s.fallback(content)
	item.Summary = truncate(strings.TrimSpace(content), summaryRunes)
	item.Sentiment = string(decision.Label)
	if len(decision.Hits) > 0 {
		item.Justification = "Keyword analysis matched: " + strings.Join(decision.Hits, ", ") + "."
	} else {
		item.Justification = "No strong sentiment keywords found in the article."
	}
	return item
}

type summaryPayload struct {
	Summary       string `json:"summary"`
	Sentiment     string `json:"sentiment"`
	Justification string `json:"justification"`
}

// parseSummary extracts the JSON object of a model answer.
func parseSummary(content string) (*summaryPayload, error) {
	trimmed := ai.StripCodeFences(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &summaryPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func firstNonEmpty(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// truncate cuts text to at most n runes on a word boundary.
func truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
