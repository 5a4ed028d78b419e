// Package backend provides the concrete collaborators behind agent.Selector
// and agent.Invoker: a keyword-driven backend selector, a prefix router and
// the OpenAI, gRPC and scripted invokers it dispatches to.
package backend

// #region imports
import (
	"strings"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/similarity"
)

// #endregion

// #region category

// Category is the coarse kind of request an input represents.
type Category string

const (
	CategoryTechnical      Category = "technical"
	CategoryCreative       Category = "creative"
	CategoryStrategic      Category = "strategic"
	CategoryFactual        Category = "factual"
	CategoryConversational Category = "conversational"
)

// #endregion

// #region keywords

var creativeKeywords = []string{
	"write me", "compose", "imagine", "describe a scene",
	"tell me a story", "make up", "create a", "write a",
	"poem", "story about", "fiction", "invent", "brainstorm",
}

var technicalKeywords = []string{
	"code", "bug", "deploy", "deployment", "api", "database", "server",
	"latency", "architecture", "debug", "compile", "algorithm", "performance",
	"refactor", "kubernetes", "docker", "cache", "query", "schema",
	"engine", "reactor", "sensor", "sensors", "network", "protocol",
	"stack trace", "memory leak",
}

var strategicKeywords = []string{
	"strategy", "plan", "roadmap", "should we", "prioritize", "priority",
	"decide", "decision", "trade-off", "tradeoff", "long-term", "goal",
	"goals", "negotiate", "negotiation", "invest", "budget", "mission",
}

var factualPrefixes = []string{
	"who is", "what is", "where is", "when did", "when was",
	"how many", "how much", "how old", "how far", "how long",
	"what year", "what date", "what time", "which",
}

var factualKeywords = []string{
	"capital", "population", "president", "author", "inventor",
	"temperature", "distance", "height", "weight", "price",
	"definition", "meaning of the word",
}

// #endregion

// #region classify

// Classify assigns input to a category via keyword heuristics. No model call.
// Creative is checked first so "write a deployment poem" stays creative.
func Classify(input string) Category {
	lower := strings.ToLower(strings.TrimSpace(input))
	words := wordSet(lower)

	if mentionsAny(lower, words, creativeKeywords) {
		return CategoryCreative
	}
	if mentionsAny(lower, words, technicalKeywords) {
		return CategoryTechnical
	}
	if mentionsAny(lower, words, strategicKeywords) {
		return CategoryStrategic
	}
	for _, p := range factualPrefixes {
		if strings.HasPrefix(lower, p) {
			return CategoryFactual
		}
	}
	if mentionsAny(lower, words, factualKeywords) {
		return CategoryFactual
	}
	return CategoryConversational
}

// #endregion

// #region matching

func wordSet(lower string) map[string]bool {
	ws := similarity.Words(lower)
	set := make(map[string]bool, len(ws))
	for _, w := range ws {
		set[w] = true
	}
	return set
}

// mentions matches single words against whole words and phrases against
// the raw text, so "api" does not fire on "capital".
func mentions(lower string, words map[string]bool, kw string) bool {
	if strings.ContainsAny(kw, " -") {
		return strings.Contains(lower, kw)
	}
	return words[kw]
}

func mentionsAny(lower string, words map[string]bool, kws []string) bool {
	for _, kw := range kws {
		if mentions(lower, words, kw) {
			return true
		}
	}
	return false
}

// #endregion
