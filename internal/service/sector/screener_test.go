package sector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMergeInnerJoin(t *testing.T) {
	holdings := []KiteHolding{
		{TradingSymbol: "INFY", AveragePrice: 1400.456, OpeningQuantity: 3, PnL: 10.005},
		{TradingSymbol: "UNLISTED", OpeningQuantity: 1},
		{TradingSymbol: "INFY", OpeningQuantity: 99},
	}
	screener := []ScreenerEntry{
		{Symbol: "INFY.NS", Sector: "Technology", CompanyName: "Infosys Limited", Price: 1500.1},
		{Symbol: "TCS.NS", Sector: "Technology", Price: 3000},
	}

	merged := Merge(holdings, screener)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged holding, got %d", len(merged))
	}
	h := merged[0]
	if h.Sector != "Technology" || h.CompanyName != "Infosys Limited" {
		t.Fatalf("unexpected merged fields %+v", h)
	}
	if h.TotalValue != 4500.3 {
		t.Fatalf("expected total value 4500.3, got %v", h.TotalValue)
	}
	if h.AveragePrice != 1400.46 {
		t.Fatalf("expected rounded average price, got %v", h.AveragePrice)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/stock-screener" || q.Get("exchange") != "NSE" || q.Get("apikey") != "key" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`[{"symbol":"INFY.NS","sector":"Technology","price":1500,"marketCap":600000000000,"volume":null}]`))
	}))
	defer srv.Close()

	entries, err := NewScreener("key", srv.URL, srv.Client()).Fetch(context.Background(), "NSE")
	if err != nil {
		t.Fatalf("Fetch err: %v", err)
	}
	if len(entries) != 1 || entries[0].Symbol != "INFY.NS" || entries[0].Price != 1500 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestFetchWithoutKey(t *testing.T) {
	if _, err := NewScreener("", "http://unused", nil).Fetch(context.Background(), "NSE"); !errors.Is(err, ErrScreenerUnavailable) {
		t.Fatalf("expected ErrScreenerUnavailable, got %v", err)
	}
}
