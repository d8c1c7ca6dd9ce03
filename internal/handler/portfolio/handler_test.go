package portfolio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
	"github.com/zhouzirui/kite-dashboard/backend/internal/storage/holdings"
)

func setupRouter(t *testing.T, rows []portfolio.Holding) *chi.Mux {
	t.Helper()
	db, err := holdings.Open(holdings.MemoryPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := holdings.NewRepository(db)
	if err := repo.Replace(context.Background(), rows); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := chi.NewRouter()
	New(repo).RegisterRoutes(r)
	return r
}

func TestHoldingsPercentages(t *testing.T) {
	r := setupRouter(t, []portfolio.Holding{
		{TradingSymbol: "INFY", Sector: "Technology", TotalValue: 300},
		{TradingSymbol: "HDFCBANK", Sector: "Financial Services", TotalValue: 100},
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/holdings", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var rows []portfolio.Holding
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	total := 0.0
	for _, row := range rows {
		total += row.Percentage
	}
	if total != 100 {
		t.Fatalf("expected percentages to sum to 100, got %v", total)
	}
}

func TestHoldingsEmptyIsArray(t *testing.T) {
	r := setupRouter(t, nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/holdings", nil))

	if got := resp.Body.String(); got != "[]\n" {
		t.Fatalf("expected empty array, got %q", got)
	}
}

func TestSectorAllocation(t *testing.T) {
	r := setupRouter(t, []portfolio.Holding{
		{TradingSymbol: "INFY", Sector: "Technology", TotalValue: 150},
		{TradingSymbol: "TCS", Sector: "Technology", TotalValue: 50},
		{TradingSymbol: "HDFCBANK", Sector: "Financial Services", TotalValue: 200},
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/sector-allocation", nil))

	var rows []portfolio.SectorAllocation
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 sectors, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Percentage != 50 {
			t.Fatalf("expected 50%% for %s, got %v", row.Sector, row.Percentage)
		}
	}
}
