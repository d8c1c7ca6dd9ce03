package ai

import (
	"strings"
	"testing"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
)

func TestAdvisorPromptWithoutHoldings(t *testing.T) {
	if got := AdvisorPrompt(nil); strings.Contains(got, "Portfolio snapshot") {
		t.Fatal("expected no snapshot without holdings")
	}
}

func TestAdvisorPromptListsHoldings(t *testing.T) {
	got := AdvisorPrompt([]portfolio.Holding{{TradingSymbol: "INFY", CompanyName: "Infosys", Sector: "Technology", PnL: -120.5}})
	if !strings.Contains(got, "INFY, Infosys, Technology") {
		t.Fatalf("expected holding line in prompt, got %q", got)
	}
	if !strings.Contains(got, "-120.50") {
		t.Fatal("expected pnl in prompt")
	}
}

func TestAdvisorPromptNamesTools(t *testing.T) {
	got := AdvisorPrompt(nil, "query_holdings", "market_search")
	if !strings.Contains(got, "You can call these tools: query_holdings, market_search.") {
		t.Fatalf("expected tool names in prompt, got %q", got)
	}
	if strings.Contains(AdvisorPrompt(nil), "You can call these tools") {
		t.Fatal("expected no tool guidance without tools")
	}
}

func TestNewsPrompt(t *testing.T) {
	got := NewsPrompt("Infosys", "INFY", "Infosys wins a large deal.")
	if !strings.Contains(got, "Infosys (INFY)") || !strings.Contains(got, "Infosys wins a large deal.") {
		t.Fatalf("unexpected prompt %q", got)
	}
}
