package sentiment

import "strings"

// Label is the sentiment reported for a news article.
type Label string

const (
	Positive Label = "Positive"
	Negative Label = "Negative"
	Neutral  Label = "Neutral"
)

// Decision is the outcome of keyword scoring.
type Decision struct {
	Label Label
	Score int
	Hits  []string
}

var keywordBuckets = map[Label][]string{
	Positive: {
		"surge", "surges", "rally", "rallies", "gain", "gains", "jumps", "soars", "record high", "beats",
		"upgrade", "upgraded", "outperform", "profit rises", "profit jumps", "strong demand", "order win",
		"bags order", "dividend", "buyback", "expansion", "approval", "bullish", "growth", "raises guidance",
	},
	Negative: {
		"plunge", "plunges", "slump", "slumps", "falls", "drops", "tumbles", "crash", "loss", "losses",
		"downgrade", "downgraded", "underperform", "profit falls", "misses", "penalty", "probe", "raid",
		"default", "fraud", "bearish", "layoffs", "cuts guidance", "resigns", "weak demand", "lawsuit",
	},
}

// negators flip the next keyword, e.g. "no loss".
var negators = []string{"no ", "not ", "without "}

// Analyze scores text against the keyword buckets. Ties and texts without
// any hit are neutral.
func Analyze(text string) Decision {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Decision{Label: Neutral}
	}

	scores := make(map[Label]int)
	hits := make([]string, 0, 4)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			count := strings.Count(normalized, word)
			if count == 0 {
				continue
			}
			negated := countNegated(normalized, word)
			scores[label] += 2 * (count - negated)
			scores[opposite(label)] += 2 * negated
			hits = append(hits, word)
		}
	}

	pos, neg := scores[Positive], scores[Negative]
	switch {
	case pos > neg:
		return Decision{Label: Positive, Score: pos - neg, Hits: hits}
	case neg > pos:
		return Decision{Label: Negative, Score: neg - pos, Hits: hits}
	default:
		return Decision{Label: Neutral, Hits: hits}
	}
}

func countNegated(text, word string) int {
	n := 0
	for _, neg := range negators {
		n += strings.Count(text, neg+word)
	}
	return n
}

func opposite(label Label) Label {
	if label == Positive {
		return Negative
	}
	return Positive
}
