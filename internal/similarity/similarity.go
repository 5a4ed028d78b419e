// Package similarity provides pure text comparison primitives used by the
// consensus builder and the hallucination detector. Nothing here holds state.
package similarity

// #region weights
const (
	jaccardWeight = 0.6
	keywordWeight = 0.4
)

// #endregion weights

// #region jaccard
// Jaccard returns |A∩B| / |A∪B| over the token sets of a and b.
// Two texts with no tokens at all are treated as identical.
func Jaccard(a, b string) float64 {
	return jaccardSets(TokenSet(a), TokenSet(b))
}

func jaccardSets(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// #endregion jaccard

// #region keyword-overlap
// KeywordOverlap compares the keyword lists of a and b, normalized by the
// longer list.
func KeywordOverlap(a, b string) float64 {
	ka, kb := Keywords(a), Keywords(b)
	if len(ka) == 0 && len(kb) == 0 {
		return 1.0
	}
	denom := max(len(ka), len(kb))
	return float64(sharedKeywords(ka, kb)) / float64(denom)
}

// #endregion keyword-overlap

// #region semantic
// Semantic blends Jaccard token overlap (0.6) and keyword overlap (0.4).
// The result is in [0,1] and symmetric in its arguments.
func Semantic(a, b string) float64 {
	return Clamp01(jaccardWeight*Jaccard(a, b) + keywordWeight*KeywordOverlap(a, b))
}

// #endregion semantic

// #region clamp
// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion clamp
