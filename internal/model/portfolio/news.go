package portfolio

import "strings"

// NewsItem is the summarized top article for one holding.
type NewsItem struct {
	Company       string `json:"company"`
	Stock         string `json:"stock"`
	Sentiment     string `json:"sentiment"`
	Summary       string `json:"summary"`
	Justification string `json:"justification"`
	URL           string `json:"url"`
}

// SentimentClass is the display bucket of a news sentiment.
type SentimentClass string

const (
	SentimentPositive SentimentClass = "positive"
	SentimentNegative SentimentClass = "negative"
	SentimentNeutral  SentimentClass = "neutral"
)

// ClassifySentiment maps a free form sentiment label to a display class,
// case-insensitively. Unknown or empty labels are neutral.
func ClassifySentiment(sentiment string) SentimentClass {
	switch strings.ToLower(strings.TrimSpace(sentiment)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Class returns the display class of the item's sentiment.
func (n NewsItem) Class() SentimentClass {
	return ClassifySentiment(n.Sentiment)
}

// HasLink reports whether URL is an absolute http(s) link worth showing.
func (n NewsItem) HasLink() bool {
	return strings.HasPrefix(n.URL, "http")
}
