// Command holdingsimport merges a Kite holdings export with the FMP stock
// screener and stores the result in the holdings database.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/sector"
	"github.com/zhouzirui/kite-dashboard/backend/internal/storage/holdings"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	input := flag.String("in", "", "Kite holdings JSON export (array or {\"data\": [...]})")
	exchange := flag.String("exchange", "NSE", "screener exchange to join against")
	dbPath := flag.String("db", cfg.Storage.HoldingsDB, "holdings database path")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall import timeout")

	flag.Parse()

	if *input == "" {
		flag.Usage()
		log.Fatal("pass the holdings export with -in")
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *input, err)
	}
	kite, err := decodeHoldings(raw)
	if err != nil {
		log.Fatalf("failed to decode %s: %v", *input, err)
	}
	log.Printf("loaded %d broker holdings from %s", len(kite), *input)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	screener := sector.NewScreener(cfg.Market.FMPAPIKey, cfg.Market.FMPBaseURL, nil)
	entries, err := screener.Fetch(ctx, *exchange)
	if err != nil {
		log.Fatalf("screener fetch failed: %v", err)
	}

	merged := sector.Merge(kite, entries)
	if len(merged) < len(kite) {
		log.Printf("%d holdings had no screener match and were dropped", len(kite)-len(merged))
	}

	db, err := holdings.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := holdings.NewRepository(db).Replace(ctx, merged); err != nil {
		log.Fatalf("failed to store holdings: %v", err)
	}
	log.Printf("stored %d holdings in %s", len(merged), *dbPath)
}

// decodeHoldings accepts a bare array or the Kite API envelope.
func decodeHoldings(raw []byte) ([]sector.KiteHolding, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	if trimmed[0] == '[' {
		var rows []sector.KiteHolding
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}

	var envelope struct {
		Status string               `json:"status"`
		Data   []sector.KiteHolding `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Status != "" && envelope.Status != "success" {
		return nil, fmt.Errorf("export has status %q", envelope.Status)
	}
	return envelope.Data, nil
}
