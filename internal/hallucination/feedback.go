package hallucination

// #region imports
import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/similarity"
)

// #endregion

// #region deviation-types

// DeviationType names the most likely reason a perspective diverged.
type DeviationType string

const (
	InsufficientDetail   DeviationType = "Insufficient Detail"
	ExcessiveDetail      DeviationType = "Excessive Detail"
	FactualContradiction DeviationType = "Factual Contradiction"
	LogicalInconsistency DeviationType = "Logical Inconsistency"
	GeneralDeviation     DeviationType = "General Deviation"
)

// Length ratios outside [minLengthRatio, maxLengthRatio] classify as a
// detail problem.
const (
	minLengthRatio = 0.5
	maxLengthRatio = 2.0
)

// recommendations are attached to every learning note.
var recommendations = []string{
	"Ground each claim in the request and in facts the rest of the crew agrees on.",
	"Match the depth of the consensus answer: cover the key points without padding.",
	"Reread the response for statements that contradict each other or the consensus before answering.",
}

// ClassifyDeviation picks a deviation type for text relative to consensus.
// Length ratio is checked first, then contradiction with the consensus,
// then contradiction within text itself.
func ClassifyDeviation(text, consensus string) DeviationType {
	own := utf8.RuneCountInString(strings.TrimSpace(text))
	ref := utf8.RuneCountInString(strings.TrimSpace(consensus))
	if ref > 0 {
		ratio := float64(own) / float64(ref)
		switch {
		case ratio < minLengthRatio:
			return InsufficientDetail
		case ratio > maxLengthRatio:
			return ExcessiveDetail
		}
	}
	if similarity.HasContradiction(text, consensus) {
		return FactualContradiction
	}
	if similarity.SelfContradiction(text) {
		return LogicalInconsistency
	}
	return GeneralDeviation
}

// #endregion

// #region correction-prompt

// CorrectionPrompt asks the persona behind perspectives[idx] to revise its
// answer. It quotes the persona's own text, the consensus and every other
// perspective verbatim.
func CorrectionPrompt(perspectives []crew.Perspective, idx int, consensus crew.ConsensusResult, deviation float64) string {
	p := perspectives[idx]
	var b strings.Builder
	fmt.Fprintf(&b, "Your response as %s diverged from the crew consensus (deviation %.2f).\n\n", p.PersonaID, deviation)
	fmt.Fprintf(&b, "Your response:\n%s\n\n", p.Content)
	fmt.Fprintf(&b, "Crew consensus (from %s):\n%s\n\n", consensus.DominantPersona, consensus.Response)

	others := 0
	for i, o := range perspectives {
		if i == idx {
			continue
		}
		if others == 0 {
			b.WriteString("Other crew perspectives:\n")
		}
		fmt.Fprintf(&b, "- %s:\n%s\n", o.PersonaID, o.Content)
		others++
	}
	if others > 0 {
		b.WriteString("\n")
	}

	b.WriteString("Revise your response so that it agrees with the consensus on the facts, ")
	b.WriteString("while keeping your own voice and expertise.")
	return b.String()
}

// #endregion

// #region learning-note

// LearningNote summarizes what a flagged perspective can learn from the cycle.
func LearningNote(p crew.Perspective, consensus crew.ConsensusResult, deviation float64, severity crew.Severity) string {
	kind := ClassifyDeviation(p.Content, consensus.Response)
	var b strings.Builder
	fmt.Fprintf(&b, "Learning opportunity for %s: %s (deviation %.2f, severity %s).\n",
		p.PersonaID, kind, deviation, severity)
	b.WriteString("Recommendations:\n")
	for i, r := range recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return strings.TrimRight(b.String(), "\n")
}

// #endregion
