// Package sector enriches broker holdings with sector data from the FMP
// stock screener.
package sector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
)

var ErrScreenerUnavailable = errors.New("fmp api key not configured")

// KiteHolding is the subset of a Kite holdings record the dashboard keeps.
type KiteHolding struct {
	TradingSymbol       string  `json:"tradingsymbol"`
	AveragePrice        float64 `json:"average_price"`
	DayChange           float64 `json:"day_change"`
	DayChangePercentage float64 `json:"day_change_percentage"`
	PnL                 float64 `json:"pnl"`
	OpeningQuantity     float64 `json:"opening_quantity"`
}

// ScreenerEntry is one row of the FMP stock screener.
type ScreenerEntry struct {
	Symbol      string  `json:"symbol"`
	Sector      string  `json:"sector"`
	Industry    string  `json:"industry"`
	MarketCap   float64 `json:"marketCap"`
	CompanyName string  `json:"companyName"`
	Volume      float64 `json:"volume"`
	Price       float64 `json:"price"`
}

// Screener fetches screener rows for an exchange.
type Screener struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewScreener builds a screener client; httpClient may be nil.
func NewScreener(apiKey, baseURL string, httpClient *http.Client) *Screener {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Screener{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: httpClient}
}

// Fetch downloads up to 5000 screener rows of exchange.
func (s *Screener) Fetch(ctx context.Context, exchange string) ([]ScreenerEntry, error) {
	if s.apiKey == "" {
		return nil, ErrScreenerUnavailable
	}

	params := url.Values{}
	params.Set("exchange", exchange)
	params.Set("limit", "5000")
	params.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/stock-screener?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch screener: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch screener: %s", resp.Status)
	}

	var entries []ScreenerEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode screener: %w", err)
	}
	log.Printf("[sector] fetched %d screener rows for %s", len(entries), exchange)
	return entries, nil
}

// CleanSymbol strips the exchange suffix of a screener symbol.
func CleanSymbol(symbol string) string {
	return strings.TrimSuffix(symbol, ".NS")
}

// Merge inner-joins holdings with screener rows on the trading symbol and
// computes total value as price times quantity. Numbers are rounded to two
// decimals. Only the first row of a repeated symbol is kept.
func Merge(holdings []KiteHolding, screener []ScreenerEntry) []portfolio.Holding {
	bySymbol := make(map[string]ScreenerEntry, len(screener))
	for _, entry := range screener {
		key := CleanSymbol(entry.Symbol)
		if _, ok := bySymbol[key]; !ok {
			bySymbol[key] = entry
		}
	}

	merged := make([]portfolio.Holding, 0, len(holdings))
	seen := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		entry, ok := bySymbol[h.TradingSymbol]
		if !ok || seen[h.TradingSymbol] {
			continue
		}
		seen[h.TradingSymbol] = true

		value := decimal.NewFromFloat(entry.Price).Mul(decimal.NewFromFloat(h.OpeningQuantity))
		merged = append(merged, portfolio.Holding{
			TradingSymbol:       h.TradingSymbol,
			AveragePrice:        round2(h.AveragePrice),
			DayChange:           round2(h.DayChange),
			DayChangePercentage: round2(h.DayChangePercentage),
			PnL:                 round2(h.PnL),
			TotalQuantity:       round2(h.OpeningQuantity),
			Sector:              entry.Sector,
			Industry:            entry.Industry,
			MarketCap:           round2(entry.MarketCap),
			CompanyName:         entry.CompanyName,
			Volume:              round2(entry.Volume),
			Price:               round2(entry.Price),
			TotalValue:          value.Round(2).InexactFloat64(),
		})
	}
	return merged
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
