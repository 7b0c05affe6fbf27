// Package sentiment defines the port for coarse lexical sentiment scoring.
package sentiment

// Analyzer scores text polarity in [-1, 1].
type Analyzer interface {
	Polarity(text string) float64
}

// Tone labels handed to the language model.
const (
	ToneCheerful   = "cheerful"
	ToneEmpathetic = "empathetic"
	ToneNeutral    = "neutral"
)

// Tone maps a polarity score to a tone label.
func Tone(polarity float64) string {
	switch {
	case polarity > 0:
		return ToneCheerful
	case polarity < 0:
		return ToneEmpathetic
	default:
		return ToneNeutral
	}
}
