package similarity

import (
	"sort"
	"strings"
	"unicode"
)

// #region stopwords
// stopwords contains common English words excluded from similarity scoring.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true,
	"and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "our": true, "these": true, "those": true, "there": true,
}

// #endregion stopwords

// #region tokenize
// Words splits text into lowercase words, keeping apostrophes inside words
// so that contractions like "isn't" survive intact.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// Tokenize splits text into unique lowercase non-stopword tokens, in first-seen order.
func Tokenize(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range Words(text) {
		w = strings.Trim(w, "'")
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// TokenSet returns the tokens of text as a set.
func TokenSet(text string) map[string]bool {
	tokens := Tokenize(text)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// #endregion tokenize

// #region keywords
// maxKeywords caps how many keywords represent one text.
const maxKeywords = 10

// minKeywordLen excludes short filler tokens from keyword extraction.
const minKeywordLen = 4

// Keywords returns up to maxKeywords of the most frequent content words in text.
// Ties are broken alphabetically so the result is deterministic.
func Keywords(text string) []string {
	counts := make(map[string]int)
	for _, w := range Words(text) {
		w = strings.Trim(w, "'")
		if len(w) < minKeywordLen || stopwords[w] {
			continue
		}
		counts[w]++
	}
	keywords := make([]string, 0, len(counts))
	for w := range counts {
		keywords = append(keywords, w)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// sharedKeywords returns the count of tokens present in both slices.
func sharedKeywords(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	count := 0
	for _, t := range b {
		if set[t] {
			count++
		}
	}
	return count
}

// #endregion keywords
