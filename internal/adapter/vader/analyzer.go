// Package vader implements sentiment.Analyzer with the VADER lexicon and
// rules (negation, boosters, punctuation and capitalisation emphasis).
package vader

import (
	"strings"

	"github.com/jonreiter/govader"
)

// Analyzer scores text with the VADER compound score. It is safe for
// concurrent use; scoring only reads the lexicon.
type Analyzer struct {
	sia *govader.SentimentIntensityAnalyzer
}

// New returns an analyzer over the built-in VADER lexicon.
func New() *Analyzer {
	return &Analyzer{sia: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns the normalised compound score in [-1, 1]. Text without
// sentiment-bearing words scores 0.
func (a *Analyzer) Polarity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return a.sia.PolarityScores(text).Compound
}
