package hallucination

// #region imports
import (
	"math"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/similarity"
)

// #endregion

// #region severity-thresholds

const (
	criticalThreshold = 0.8
	highThreshold     = 0.6
	mediumThreshold   = 0.4
)

// ClassifySeverity maps a deviation score to a severity tier.
// Boundaries are inclusive: 0.8 is critical, 0.6 high, 0.4 medium.
func ClassifySeverity(deviation float64) crew.Severity {
	switch {
	case deviation >= criticalThreshold:
		return crew.SeverityCritical
	case deviation >= highThreshold:
		return crew.SeverityHigh
	case deviation >= mediumThreshold:
		return crew.SeverityMedium
	default:
		return crew.SeverityLow
	}
}

// #endregion

// #region components

// Scores holds the components of one deviation computation.
type Scores struct {
	Semantic   float64 `json:"semantic"`
	Factual    float64 `json:"factual"`
	Confidence float64 `json:"confidence"`
	Deviation  float64 `json:"deviation"`
}

// SemanticSimilarity compares a perspective's text with the consensus text.
func SemanticSimilarity(text, consensus string) float64 {
	return similarity.Semantic(text, consensus)
}

// FactualAlignment returns the fraction of claims in text that match some
// claim in consensus with at least similarity.MinClaimOverlap token overlap.
// With no claims on either side there is nothing to contradict and the
// alignment is 1; with claims on only one side it is 0.
func FactualAlignment(text, consensus string) float64 {
	ours := similarity.ExtractClaims(text)
	theirs := similarity.ExtractClaims(consensus)
	switch {
	case len(ours) == 0 && len(theirs) == 0:
		return 1.0
	case len(ours) == 0 || len(theirs) == 0:
		return 0.0
	}

	matched := 0
	for _, claim := range ours {
		for _, other := range theirs {
			if similarity.ClaimOverlap(claim, other) >= similarity.MinClaimOverlap {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(ours))
}

// ConfidenceAlignment is 1 when the confidences agree and falls to 0 once
// they are 0.5 or more apart.
func ConfidenceAlignment(perspective, consensus float64) float64 {
	return math.Max(0, 1-2*math.Abs(perspective-consensus))
}

// #endregion
