package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
)

const advisorSystemPrompt = `You are a helpful financial data assistant and advisor.
You can answer questions about the user's portfolio, discuss market news, and offer financial advice.
When you use information from the portfolio snapshot, process it and give a clear, summarized answer.
Never refer to the snapshot as if the user can see it. Present the key information directly.
For advisory questions, provide actionable insights and recommendations.
If the user asks for personal financial advice, first ask for their age, annual income, financial goals,
current investments and risk tolerance, then recommend specific Indian products (term and health insurance,
mutual funds, fixed deposits, PPF/EPF, NPS, savings accounts) that fit their profile.
Your final answers must be plain text only. Do not use any markdown formatting, such as backticks.`

const newsPromptTemplate = `Based on the content of the following news article for %s (%s), please do the following:
1. Summarize the key news in a single, concise paragraph.
2. Determine the sentiment of the news as 'Positive', 'Negative', or 'Neutral'.
3. Provide a brief one-sentence justification for your sentiment analysis.

News Article Content:
%s

Provide the output in a valid JSON format with three keys: "summary", "sentiment", and "justification".
Do not include any other text or markdown formatting.`

const toolGuidance = `You can call these tools: %s.
Use them for exact portfolio figures and for current market information instead of guessing.
When you use a tool, process its output and give a clear, summarized answer.`

// AdvisorPrompt builds the chatbot system prompt. It names the callable
// tools, if any, and appends a snapshot of the given holdings.
func AdvisorPrompt(holdings []portfolio.Holding, tools ...string) string {
	var builder strings.Builder
	builder.WriteString(advisorSystemPrompt)
	if len(tools) > 0 {
		builder.WriteString("\n\n")
		builder.WriteString(fmt.Sprintf(toolGuidance, strings.Join(tools, ", ")))
	}
	if len(holdings) == 0 {
		return builder.String()
	}

	builder.WriteString("\n\nPortfolio snapshot (symbol, company, sector, quantity, average price, last price, value, pnl, day change %):")
	for _, h := range holdings {
		builder.WriteString(fmt.Sprintf("\n- %s, %s, %s, %.2f, %.2f, %.2f, %.2f, %.2f, %.2f%%",
			h.TradingSymbol, h.CompanyName, h.Sector, h.TotalQuantity, h.AveragePrice, h.Price,
			h.TotalValue, h.PnL, h.DayChangePercentage))
	}
	return builder.String()
}

// NewsPrompt asks for a JSON summary of one article.
func NewsPrompt(company, symbol, article string) string {
	return fmt.Sprintf(newsPromptTemplate, company, symbol, article)
}
