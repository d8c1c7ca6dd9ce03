package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
	"github.com/zhouzirui/kite-dashboard/backend/internal/session"
)

func newRenderer() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		log.Printf("warning: markdown rendering disabled: %v", err)
		return nil
	}
	return r
}

// printMarkdown renders md to w, falling back to the raw text.
func printMarkdown(w io.Writer, r *glamour.TermRenderer, md string) {
	if r != nil {
		if out, err := r.Render(md); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprintln(w, md)
}

func holdingsMarkdown(rows []portfolio.Holding) string {
	if len(rows) == 0 {
		return "_No holdings stored yet. Log in and run the importer first._\n"
	}
	var sb strings.Builder
	sb.WriteString("# Holdings\n\n")
	sb.WriteString("| Symbol | Company | Sector | Qty | Price | Value | P&L | Share |\n")
	sb.WriteString("|---|---|---|---:|---:|---:|---:|---:|\n")
	total := 0.0
	for _, h := range rows {
		total += h.TotalValue
		fmt.Fprintf(&sb, "| %s | %s | %s | %g | %s | %s | %s | %.2f%% |\n",
			h.TradingSymbol, h.CompanyName, h.Sector, h.TotalQuantity,
			portfolio.FormatINR(h.Price), portfolio.FormatINR(h.TotalValue), portfolio.FormatINR(h.PnL), h.Percentage)
	}
	fmt.Fprintf(&sb, "\n**Total value:** %s\n", portfolio.FormatINR(total))
	return sb.String()
}

func sectorsMarkdown(rows []portfolio.SectorAllocation) string {
	if len(rows) == 0 {
		return "_No sector data available._\n"
	}
	var sb strings.Builder
	sb.WriteString("# Sector allocation\n\n")
	sb.WriteString("| Sector | Value | Share |\n|---|---:|---:|\n")
	for _, s := range rows {
		fmt.Fprintf(&sb, "| %s | %s | %.2f%% |\n", s.Sector, portfolio.FormatINR(s.TotalValue), s.Percentage)
	}
	return sb.String()
}

var sentimentMarks = map[portfolio.SentimentClass]string{
	portfolio.SentimentPositive: "🟢",
	portfolio.SentimentNegative: "🔴",
	portfolio.SentimentNeutral:  "⚪",
}

func newsMarkdown(items []portfolio.NewsItem) string {
	if len(items) == 0 {
		return "_No market news found for your holdings._\n"
	}
	var sb strings.Builder
	sb.WriteString("# Market news\n")
	for _, n := range items {
		fmt.Fprintf(&sb, "\n## %s (%s)\n\n", n.Company, n.Stock)
		label := n.Sentiment
		if label == "" {
			label = "Neutral"
		}
		fmt.Fprintf(&sb, "%s **%s**", sentimentMarks[n.Class()], label)
		if n.Justification != "" {
			fmt.Fprintf(&sb, ": %s", n.Justification)
		}
		fmt.Fprintf(&sb, "\n\n%s\n", n.Summary)
		if n.HasLink() {
			fmt.Fprintf(&sb, "\n[Read more](%s)\n", n.URL)
		}
	}
	return sb.String()
}

// transcript prints session entries once each, in order. The thinking
// placeholder is printed when it becomes the newest entry.
type transcript struct {
	w       io.Writer
	md      *glamour.TermRenderer
	echo    bool
	printed map[string]bool
}

func newTranscript(w io.Writer, md *glamour.TermRenderer, echo bool) *transcript {
	return &transcript{w: w, md: md, echo: echo, printed: make(map[string]bool)}
}

func (t *transcript) render(entries []session.Entry) {
	for _, e := range entries {
		if e.Pending || t.printed[e.ID] {
			continue
		}
		t.printed[e.ID] = true
		if e.Sender == chat.Sent {
			if t.echo {
				fmt.Fprintf(t.w, "[%s] you: %s\n", e.Timestamp, e.Text)
			}
			continue
		}
		fmt.Fprintf(t.w, "[%s] advisor:\n", e.Timestamp)
		printMarkdown(t.w, t.md, e.Text)
	}
}

func (t *transcript) scroll(e session.Entry) {
	if e.Pending {
		fmt.Fprintf(t.w, "  %s\n", e.Text)
	}
}
