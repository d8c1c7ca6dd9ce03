package chatbot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/ai"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/search"
)

const (
	ToolQueryHoldings     = "query_holdings"
	ToolMarketSearch      = "market_search"
	ToolFinancialAdvisory = "financial_advisory"

	marketSearchResults   = 3
	advisorySearchResults = 5
)

const queryHoldingsDesc = `Query the user's portfolio with one read-only SQLite SELECT statement.
Main table: holdings_with_sector. Columns:
- tradingsymbol: stock symbol (e.g. TCS, INFY)
- pnl: profit or loss in rupees on the current holding
- day_change: daily price change in rupees
- day_change_percentage: daily price change in percent
- total_quantity: number of shares held
- price: current market price per share
- average_price: average buy price per share
- total_value: current value of the holding
- sector: industry sector (e.g. Banking, IT)
- industry: specific industry group
- companyName: full company name
- marketCap: market capitalization in rupees
For percentage profit use (pnl / (total_quantity * average_price)) * 100.
Pass plain SQL only, never markdown.`

const marketSearchDesc = `Find the latest financial news, market updates and company information.
Synthesize the results into a concise summary for the user; never tell them to check links.`

const financialAdvisoryDesc = `Search for personal financial advice for Indian consumers.
Use it only after the user has shared age, annual income, financial goals, current investments and risk tolerance.
Look for specific products (term, health and general insurance; equity, debt and hybrid mutual funds;
fixed deposits, PPF/EPF, NPS; savings accounts, credit cards, personal loans) with Indian providers,
current rates and features that fit the profile.`

// HoldingsQuerier runs ad-hoc read-only SQL over the holdings table.
type HoldingsQuerier interface {
	Query(ctx context.Context, query string) (string, error)
}

// ArticleSearcher returns up to maxResults web articles for a query.
type ArticleSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Article, error)
}

type sqlInput struct {
	Query string `json:"query" jsonschema:"description=a single SQLite SELECT statement over holdings_with_sector"`
}

type searchInput struct {
	Query string `json:"query" jsonschema:"description=the web search query"`
}

// NewTools builds the tools the chatbot model may call. A nil dependency
// leaves its tools out. Tool failures are reported to the model as text
// so it can recover or explain.
func NewTools(holdings HoldingsQuerier, searcher ArticleSearcher) ([]tool.InvokableTool, error) {
	tools := make([]tool.InvokableTool, 0, 3)

	if holdings != nil {
		t, err := utils.InferTool(ToolQueryHoldings, queryHoldingsDesc,
			func(ctx context.Context, in sqlInput) (string, error) {
				return runHoldingsQuery(ctx, holdings, in.Query), nil
			})
		if err != nil {
			return nil, fmt.Errorf("build %s tool: %w", ToolQueryHoldings, err)
		}
		tools = append(tools, t)
	}

	if searcher != nil {
		for _, spec := range []struct {
			name, desc string
			limit      int
		}{
			{ToolMarketSearch, marketSearchDesc, marketSearchResults},
			{ToolFinancialAdvisory, financialAdvisoryDesc, advisorySearchResults},
		} {
			limit := spec.limit
			t, err := utils.InferTool(spec.name, spec.desc,
				func(ctx context.Context, in searchInput) (string, error) {
					return runSearch(ctx, searcher, in.Query, limit), nil
				})
			if err != nil {
				return nil, fmt.Errorf("build %s tool: %w", spec.name, err)
			}
			tools = append(tools, t)
		}
	}
	return tools, nil
}

// NewToolCompleter builds a completer for cfg that answers with the chatbot
// tools at hand.
func NewToolCompleter(ctx context.Context, cfg config.AIConfig, holdings HoldingsQuerier, searcher ArticleSearcher) (ai.Completer, error) {
	tools, err := NewTools(holdings, searcher)
	if err != nil {
		return nil, err
	}
	return ai.NewAgent(ctx, cfg, tools)
}

func runHoldingsQuery(ctx context.Context, holdings HoldingsQuerier, query string) string {
	log.Printf("[chatbot] holdings query: %s", query)
	out, err := holdings.Query(ctx, query)
	if err != nil {
		return fmt.Sprintf("SQL error: %v", err)
	}
	return out
}

func runSearch(ctx context.Context, searcher ArticleSearcher, query string, limit int) string {
	log.Printf("[chatbot] web search (max %d): %s", limit, query)
	articles, err := searcher.Search(ctx, query, limit)
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}

	var builder strings.Builder
	for i, a := range articles {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		fmt.Fprintf(&builder, "%d. %s\n%s\n%s", i+1, a.Title, a.URL, a.Content)
	}
	return builder.String()
}
