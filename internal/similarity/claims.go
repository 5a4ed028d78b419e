package similarity

import (
	"strings"
)

// #region markers
// claimMarkers are the copular and modal verbs that mark a sentence as a
// factual claim. Naive on purpose: no parsing, just word presence.
var claimMarkers = map[string]bool{
	"is": true, "are": true, "was": true, "were": true,
	"will": true, "can": true, "has": true, "have": true,
}

var negationWords = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "nothing": true,
	"cannot": true, "neither": true, "nor": true, "without": true,
}

// MinClaimOverlap is the token overlap at which two claims talk about the same thing.
const MinClaimOverlap = 0.5

// #endregion markers

// #region sentences
// Sentences splits text on terminal punctuation and line breaks, dropping
// empty fragments.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == ';'
	})
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// #endregion sentences

// #region extract-claims
// ExtractClaims returns the sentences of text that contain a claim marker.
func ExtractClaims(text string) []string {
	var claims []string
	for _, s := range Sentences(text) {
		for _, w := range Words(s) {
			if isClaimMarker(w) {
				claims = append(claims, s)
				break
			}
		}
	}
	return claims
}

// contractedMarkers maps negated contractions whose stem is not the marker itself.
var contractedMarkers = map[string]string{
	"can't": "can", "cannot": "can", "won't": "will",
}

// isClaimMarker accepts a marker in plain or negated form ("isn't", "can't").
func isClaimMarker(w string) bool {
	if claimMarkers[w] {
		return true
	}
	if stem, ok := contractedMarkers[w]; ok {
		return claimMarkers[stem]
	}
	return claimMarkers[strings.TrimSuffix(w, "n't")]
}

// #endregion extract-claims

// #region claim-overlap
// ClaimOverlap returns the fraction of claim's content tokens that also
// appear in other. Negation words are ignored so that a statement and its
// negation overlap fully.
func ClaimOverlap(claim, other string) float64 {
	a := contentTokens(claim)
	b := contentTokens(other)
	if len(a) == 0 {
		if len(b) == 0 {
			return 1.0
		}
		return 0
	}
	shared := 0
	for t := range a {
		if b[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(a))
}

func contentTokens(text string) map[string]bool {
	set := TokenSet(text)
	for t := range set {
		if isNegation(t) {
			delete(set, t)
		}
	}
	return set
}

// #endregion claim-overlap

// #region contradiction
// Contradicts reports whether two sentences cover the same ground (at least
// MinClaimOverlap in either direction) while disagreeing on negation.
// It is a crude heuristic: only its direction is meaningful.
func Contradicts(a, b string) bool {
	if hasNegation(a) == hasNegation(b) {
		return false
	}
	overlap := max(ClaimOverlap(a, b), ClaimOverlap(b, a))
	return overlap >= MinClaimOverlap
}

// HasContradiction reports whether any claim in text contradicts any claim in other.
func HasContradiction(text, other string) bool {
	ours := ExtractClaims(text)
	theirs := ExtractClaims(other)
	for _, a := range ours {
		for _, b := range theirs {
			if Contradicts(a, b) {
				return true
			}
		}
	}
	return false
}

// SelfContradiction reports whether two sentences within text contradict each other.
func SelfContradiction(text string) bool {
	sentences := Sentences(text)
	for i := 0; i < len(sentences); i++ {
		for j := i + 1; j < len(sentences); j++ {
			if Contradicts(sentences[i], sentences[j]) {
				return true
			}
		}
	}
	return false
}

func hasNegation(sentence string) bool {
	for _, w := range Words(sentence) {
		if isNegation(w) {
			return true
		}
	}
	return false
}

func isNegation(w string) bool {
	return negationWords[w] || strings.HasSuffix(w, "n't")
}

// #endregion contradiction
